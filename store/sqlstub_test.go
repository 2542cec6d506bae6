package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

// ══════════════════════════════════════════════
// In-memory database/sql driver for store tests
// ══════════════════════════════════════════════

// The stub driver records every statement it receives and serves canned
// rows matched by substring on the query text, so the SQL-backed stores
// can be tested without a running Postgres or MySQL.

var (
	stubMu  sync.Mutex
	stubDBs = map[string]*stubDB{}
)

func init() { sql.Register("sqlstub", stubDriver{}) }

// newStubDB opens a *sql.DB wired to a fresh fixture, keyed by test name.
func newStubDB(t *testing.T) (*sql.DB, *stubDB) {
	t.Helper()
	fx := &stubDB{rows: map[string]stubRows{}}
	stubMu.Lock()
	stubDBs[t.Name()] = fx
	stubMu.Unlock()

	db, err := sql.Open("sqlstub", t.Name())
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, fx
}

type stubCall struct {
	query string
	args  []driver.Value
}

type stubRows struct {
	columns []string
	rows    [][]driver.Value
}

// stubDB is one test's statement log and canned result set.
type stubDB struct {
	mu    sync.Mutex
	calls []stubCall
	rows  map[string]stubRows
}

// serve registers a canned result for every query containing sub.
func (f *stubDB) serve(sub string, columns []string, rows ...[]driver.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[sub] = stubRows{columns: columns, rows: rows}
}

// statement returns the first recorded call whose query contains sub.
func (f *stubDB) statement(sub string) (stubCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(c.query, sub) {
			return c, true
		}
	}
	return stubCall{}, false
}

func (f *stubDB) record(query string, args []driver.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, stubCall{query: query, args: append([]driver.Value(nil), args...)})
}

func (f *stubDB) lookup(query string) (stubRows, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub, rs := range f.rows {
		if strings.Contains(query, sub) {
			return rs, true
		}
	}
	return stubRows{}, false
}

type stubDriver struct{}

func (stubDriver) Open(dsn string) (driver.Conn, error) {
	stubMu.Lock()
	defer stubMu.Unlock()
	fx, ok := stubDBs[dsn]
	if !ok {
		fx = &stubDB{rows: map[string]stubRows{}}
		stubDBs[dsn] = fx
	}
	return &stubConn{fx: fx}, nil
}

type stubConn struct{ fx *stubDB }

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{fx: c.fx, query: query}, nil
}
func (c *stubConn) Close() error { return nil }
func (c *stubConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

type stubStmt struct {
	fx    *stubDB
	query string
}

func (s *stubStmt) Close() error { return nil }

// NumInput of -1 skips the placeholder-count check, so one stub serves
// both $n and ? placeholder styles.
func (s *stubStmt) NumInput() int { return -1 }

func (s *stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.fx.record(s.query, args)
	return driver.RowsAffected(1), nil
}

func (s *stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.fx.record(s.query, args)
	rs, _ := s.fx.lookup(s.query)
	return &stubResultRows{rs: rs}, nil
}

type stubResultRows struct {
	rs  stubRows
	pos int
}

func (r *stubResultRows) Columns() []string { return r.rs.columns }
func (r *stubResultRows) Close() error      { return nil }

func (r *stubResultRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rs.rows) {
		return io.EOF
	}
	copy(dest, r.rs.rows[r.pos])
	r.pos++
	return nil
}
