package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	moodvie "github.com/moodvielabs/moodvie-engine-go"
)

// PgvectorStore implements moodvie.VectorStore using PostgreSQL + pgvector,
// for deployments that already run Postgres and want one less service than
// a dedicated vector database.
//
// Requires the pgvector extension: CREATE EXTENSION IF NOT EXISTS vector;
type PgvectorStore struct {
	db        *sql.DB
	table     string
	dimension int
}

// PgvectorConfig configures the pgvector store.
type PgvectorConfig struct {
	Table       string // table name, default "movies"
	Dimension   int    // vector dimension, default 384
	AutoMigrate bool   // create table if not exist, default true
}

// NewPgvectorStore creates a VectorStore backed by PostgreSQL + pgvector.
// The sql.DB must be already opened with a Postgres driver.
func NewPgvectorStore(db *sql.DB, config ...PgvectorConfig) (*PgvectorStore, error) {
	cfg := PgvectorConfig{Table: "movies", Dimension: 384, AutoMigrate: true}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Table == "" {
		cfg.Table = "movies"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 384
	}

	s := &PgvectorStore{db: db, table: cfg.Table, dimension: cfg.Dimension}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			return nil, &moodvie.StoreError{Op: "pgvector.migrate", Err: err}
		}
	}
	return s, nil
}

func (s *PgvectorStore) migrate() error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id           TEXT PRIMARY KEY,
		embedding    vector(%d) NOT NULL,
		title        TEXT NOT NULL,
		overview     TEXT NOT NULL DEFAULT '',
		genre_ids    JSONB DEFAULT '[]',
		vote_average DOUBLE PRECISION DEFAULT 0,
		vote_count   INTEGER DEFAULT 0,
		popularity   DOUBLE PRECISION DEFAULT 0,
		release_date TEXT DEFAULT '',
		raw_reviews  TEXT DEFAULT ''
	)`, s.table, s.dimension)

	idx := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
		s.table, s.table,
	)

	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	// Index creation may fail if not enough rows; ignore error
	s.db.Exec(idx)
	return nil
}

// Upsert writes one movie with its embedding, used by catalog ingest.
func (s *PgvectorStore) Upsert(ctx context.Context, movie moodvie.MovieRecord, embedding []float32) error {
	genreJSON, _ := json.Marshal(movie.GenreIDs)

	q := fmt.Sprintf(`INSERT INTO %s
		(id, embedding, title, overview, genre_ids, vote_average, vote_count, popularity, release_date, raw_reviews)
		VALUES ($1, $2::vector, $3, $4, $5::jsonb, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			embedding    = EXCLUDED.embedding,
			title        = EXCLUDED.title,
			overview     = EXCLUDED.overview,
			genre_ids    = EXCLUDED.genre_ids,
			vote_average = EXCLUDED.vote_average,
			vote_count   = EXCLUDED.vote_count,
			popularity   = EXCLUDED.popularity,
			release_date = EXCLUDED.release_date,
			raw_reviews  = EXCLUDED.raw_reviews`, s.table)

	_, err := s.db.ExecContext(ctx, q,
		movie.ID, float32SliceToSQL(embedding), movie.Title, movie.Overview,
		string(genreJSON), movie.VoteAverage, movie.VoteCount, movie.Popularity,
		movie.ReleaseDate, movie.RawReviews)
	if err != nil {
		return &moodvie.StoreError{Op: "pgvector.upsert", Err: err}
	}
	return nil
}

// Query runs a filtered cosine-similarity search, best matches first.
func (s *PgvectorStore) Query(ctx context.Context, vector []float32, filter moodvie.SearchFilter, limit, offset int) ([]moodvie.MovieHit, error) {
	where := "1=1"
	args := []interface{}{float32SliceToSQL(vector), limit, offset}
	argIdx := 4

	if len(filter.GenreIDs) > 0 {
		idJSON, _ := json.Marshal(filter.GenreIDs)
		// Overlap test: any requested genre appears in the row's genre_ids.
		where += fmt.Sprintf(
			" AND EXISTS (SELECT 1 FROM jsonb_array_elements(genre_ids) g WHERE g IN (SELECT jsonb_array_elements($%d::jsonb)))",
			argIdx)
		args = append(args, string(idJSON))
		argIdx++
	}
	if filter.MinVoteAverage > 0 {
		where += fmt.Sprintf(" AND vote_average >= $%d", argIdx)
		args = append(args, filter.MinVoteAverage)
		argIdx++
	}

	q := fmt.Sprintf(
		`SELECT id, title, overview, genre_ids, vote_average, vote_count, popularity, release_date, raw_reviews,
		        1 - (embedding <=> $1::vector) AS score
		 FROM %s WHERE %s
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2 OFFSET $3`, s.table, where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &moodvie.StoreError{Op: "pgvector.query", Err: err}
	}
	defer rows.Close()

	var hits []moodvie.MovieHit
	for rows.Next() {
		var m moodvie.MovieRecord
		var genreJSON string
		var score float64
		if err := rows.Scan(&m.ID, &m.Title, &m.Overview, &genreJSON, &m.VoteAverage,
			&m.VoteCount, &m.Popularity, &m.ReleaseDate, &m.RawReviews, &score); err != nil {
			return nil, &moodvie.StoreError{Op: "pgvector.scan", Err: err}
		}
		json.Unmarshal([]byte(genreJSON), &m.GenreIDs)
		hits = append(hits, moodvie.MovieHit{Movie: m, Similarity: score})
	}
	if err := rows.Err(); err != nil {
		return nil, &moodvie.StoreError{Op: "pgvector.query", Err: err}
	}
	return hits, nil
}

// FetchByTitle looks a movie up by exact title, case-insensitive.
func (s *PgvectorStore) FetchByTitle(ctx context.Context, title string) (*moodvie.MovieRecord, bool, error) {
	q := fmt.Sprintf(
		`SELECT id, title, overview, genre_ids, vote_average, vote_count, popularity, release_date, raw_reviews
		 FROM %s WHERE LOWER(title) = LOWER($1) LIMIT 1`, s.table)

	var m moodvie.MovieRecord
	var genreJSON string
	err := s.db.QueryRowContext(ctx, q, strings.TrimSpace(title)).Scan(
		&m.ID, &m.Title, &m.Overview, &genreJSON, &m.VoteAverage,
		&m.VoteCount, &m.Popularity, &m.ReleaseDate, &m.RawReviews)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &moodvie.StoreError{Op: "pgvector.fetch", Err: err}
	}
	json.Unmarshal([]byte(genreJSON), &m.GenreIDs)
	return &m, true, nil
}

// Delete removes movies from the catalog.
func (s *PgvectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.table, strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return &moodvie.StoreError{Op: "pgvector.delete", Err: err}
	}
	return nil
}

func float32SliceToSQL(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Compile-time interface check.
var _ moodvie.VectorStore = (*PgvectorStore)(nil)
