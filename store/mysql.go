package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	moodvie "github.com/moodvielabs/moodvie-engine-go"
)

// MySQLSessionStore implements moodvie.SessionStore using MySQL, for
// deployments where conversation state must outlive both the process and
// the Redis cache. Sessions are stored as one JSON blob per row.
type MySQLSessionStore struct {
	db    *sql.DB
	table string
}

// MySQLStoreConfig configures the MySQL store.
type MySQLStoreConfig struct {
	Table       string // table name, default "sessions"
	AutoMigrate bool   // create table if not exist, default true
}

// NewMySQLSessionStore creates a SessionStore backed by MySQL.
// The sql.DB must be already opened with a MySQL driver.
func NewMySQLSessionStore(db *sql.DB, config ...MySQLStoreConfig) (*MySQLSessionStore, error) {
	cfg := MySQLStoreConfig{Table: "sessions", AutoMigrate: true}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Table == "" {
		cfg.Table = "sessions"
	}

	s := &MySQLSessionStore{db: db, table: cfg.Table}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			return nil, &moodvie.StoreError{Op: "mysql.migrate", Err: err}
		}
	}
	return s, nil
}

func (s *MySQLSessionStore) migrate() error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id         VARCHAR(255) NOT NULL,
		state      VARCHAR(32)  NOT NULL,
		data       LONGTEXT     NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, s.table)

	_, err := s.db.Exec(ddl)
	return err
}

func (s *MySQLSessionStore) Get(ctx context.Context, id string) (*moodvie.Session, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE id=?", s.table), id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &moodvie.StoreError{Op: "mysql.get", Err: err}
	}

	var sess moodvie.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, false, &moodvie.StoreError{Op: "mysql.decode", Err: err}
	}
	if sess.Likes == nil {
		sess.Likes = make(map[string]int)
	}
	if sess.Dislikes == nil {
		sess.Dislikes = make(map[string]int)
	}
	return &sess, true, nil
}

func (s *MySQLSessionStore) Put(ctx context.Context, sess *moodvie.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return &moodvie.StoreError{Op: "mysql.encode", Err: err}
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (id, state, data) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE state=VALUES(state), data=VALUES(data)",
		s.table,
	)
	if _, err := s.db.ExecContext(ctx, q, sess.ID, string(sess.State), string(data)); err != nil {
		return &moodvie.StoreError{Op: "mysql.put", Err: err}
	}
	return nil
}

func (s *MySQLSessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id=?", s.table), id)
	if err != nil {
		return &moodvie.StoreError{Op: "mysql.delete", Err: err}
	}
	return nil
}

// Compile-time interface check.
var _ moodvie.SessionStore = (*MySQLSessionStore)(nil)
