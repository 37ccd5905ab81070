// Package usagelog persists one audit row per admitted request: who used
// which key on which route, with status and latency. Rows back the admin
// /admin/logs endpoint.
package usagelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry is a single usage record. KeyPrefix carries only the first characters
// of the key so full secrets never land in the log store.
type Entry struct {
	RequestID  string    `json:"request_id"`
	KeyPrefix  string    `json:"key_prefix"`
	Owner      string    `json:"owner"`
	Method     string    `json:"method"`
	Route      string    `json:"route"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Writer persists usage entries.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// NoopWriter ignores all writes.
type NoopWriter struct{}

func (NoopWriter) Write(_ context.Context, _ Entry) error { return nil }

// Query filters a List call.
type Query struct {
	Limit  int
	Offset int
	Owner  string
	Route  string
	Since  *time.Time
}

// Result is one page of usage entries plus the unfiltered total.
type Result struct {
	Data  []Entry
	Total int
}

// Reader lists persisted usage entries.
type Reader interface {
	List(ctx context.Context, q Query) (Result, error)
}

// SQLStore persists entries to SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLiteStore creates a SQLite-backed usage log.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "mediagw-usage.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite usage log: %w", err)
	}
	s := &SQLStore{db: db, dialect: "sqlite"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore creates a Postgres-backed usage log.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres usage log: %w", err)
	}
	s := &SQLStore{db: db, dialect: "postgres"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s usage log: %w", s.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS usage_log (
	id INTEGER PRIMARY KEY,
	request_id TEXT,
	key_prefix TEXT NOT NULL,
	owner TEXT NOT NULL,
	method TEXT NOT NULL,
	route TEXT NOT NULL,
	status INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);`
	if s.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS usage_log (
	id BIGSERIAL PRIMARY KEY,
	request_id TEXT,
	key_prefix TEXT NOT NULL,
	owner TEXT NOT NULL,
	method TEXT NOT NULL,
	route TEXT NOT NULL,
	status INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize usage log schema: %w", err)
	}
	return nil
}

// Write appends one usage entry.
func (s *SQLStore) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO usage_log(request_id, key_prefix, owner, method, route, status, duration_ms, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?)`
	if s.dialect == "postgres" {
		query = `INSERT INTO usage_log(request_id, key_prefix, owner, method, route, status, duration_ms, created_at)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8)`
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.RequestID,
		entry.KeyPrefix,
		entry.Owner,
		entry.Method,
		entry.Route,
		entry.Status,
		entry.DurationMS,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write usage entry: %w", err)
	}
	return nil
}

// List returns a filtered page of entries, newest first, and the total count
// matching the filters.
func (s *SQLStore) List(ctx context.Context, q Query) (Result, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if q.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, q.Owner)
	}
	if q.Route != "" {
		where = append(where, "route = ?")
		args = append(args, q.Route)
	}
	if q.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, q.Since.UTC())
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := s.bind("SELECT COUNT(*) FROM usage_log" + clause)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return Result{}, fmt.Errorf("count usage entries: %w", err)
	}

	listQuery := s.bind(fmt.Sprintf(`
SELECT request_id, key_prefix, owner, method, route, status, duration_ms, created_at
FROM usage_log%s
ORDER BY created_at DESC, id DESC
LIMIT %d OFFSET %d`, clause, q.Limit, q.Offset))

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return Result{}, fmt.Errorf("list usage entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	data := make([]Entry, 0, q.Limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RequestID, &e.KeyPrefix, &e.Owner, &e.Method, &e.Route, &e.Status, &e.DurationMS, &e.CreatedAt); err != nil {
			return Result{}, fmt.Errorf("scan usage entry: %w", err)
		}
		data = append(data, e)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("list usage entries: %w", err)
	}
	return Result{Data: data, Total: total}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) bind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var (
		b      strings.Builder
		argNum = 1
	)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(fmt.Sprintf("$%d", argNum))
			argNum++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
