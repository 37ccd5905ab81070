package keys

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register Postgres SQL driver.
	_ "github.com/lib/pq"
	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"
)

type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

// SQLStore implements Snapshot on SQLite or Postgres. It keeps the same
// full-replace discipline as FileStore (Save rewrites the whole collection
// inside one transaction) so the Manager's serialization applies uniformly
// regardless of backend. The position column preserves insertion order across
// rewrites.
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
	now     func() time.Time
}

// NewSQLiteStore creates a SQLite-backed credential store. dsn can be a file
// path (e.g. /var/lib/mediagw/keys.db) or a SQLite DSN.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "mediagw-keys.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite key store: %w", err)
	}
	store := &SQLStore{db: db, dialect: dialectSQLite, now: time.Now}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore creates a Postgres-backed credential store.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres key store: %w", err)
	}
	store := &SQLStore{db: db, dialect: dialectPostgres, now: time.Now}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s key store: %w", s.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS credentials (
	key TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	usage_limit INTEGER NOT NULL,
	used INTEGER NOT NULL,
	status TEXT NOT NULL,
	role TEXT,
	created_at DATETIME NOT NULL,
	last_used DATETIME NULL,
	expires_at DATETIME NULL,
	position INTEGER NOT NULL
);`
	if s.dialect == dialectPostgres {
		ddl = `
CREATE TABLE IF NOT EXISTS credentials (
	key TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	usage_limit BIGINT NOT NULL,
	used BIGINT NOT NULL,
	status TEXT NOT NULL,
	role TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	last_used TIMESTAMPTZ NULL,
	expires_at TIMESTAMPTZ NULL,
	position INTEGER NOT NULL
);`
	}

	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize %s key store schema: %w", s.dialect, err)
	}
	return nil
}

// Load prunes expired rows and returns the surviving credentials in stored
// order.
func (s *SQLStore) Load(ctx context.Context) ([]Credential, error) {
	prune := s.bind(`DELETE FROM credentials WHERE expires_at IS NOT NULL AND expires_at <= ?`)
	if _, err := s.db.ExecContext(ctx, prune, s.now().UTC()); err != nil {
		return nil, storeErr("prune expired keys", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT key, owner, usage_limit, used, status, role, created_at, last_used, expires_at
FROM credentials
ORDER BY position`)
	if err != nil {
		return nil, storeErr("load keys", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	creds := make([]Credential, 0)
	for rows.Next() {
		var (
			c        Credential
			role     sql.NullString
			lastUsed sql.NullTime
			expires  sql.NullTime
		)
		if err := rows.Scan(&c.Key, &c.Owner, &c.Limit, &c.Used, &c.Status, &role, &c.CreatedAt, &lastUsed, &expires); err != nil {
			return nil, &Error{Kind: KindCorruptStore, Message: "scan credential row", cause: err}
		}
		c.Role = role.String
		if lastUsed.Valid {
			t := lastUsed.Time
			c.LastUsed = &t
		}
		if expires.Valid {
			t := expires.Time
			c.ExpiresAt = &t
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("load keys", err)
	}
	return creds, nil
}

// Save replaces the whole collection in a single transaction.
func (s *SQLStore) Save(ctx context.Context, creds []Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin save", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return storeErr("clear keys", err)
	}

	insert := s.bind(`
INSERT INTO credentials(key, owner, usage_limit, used, status, role, created_at, last_used, expires_at, position)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, c := range creds {
		var role sql.NullString
		if c.Role != "" {
			role = sql.NullString{String: c.Role, Valid: true}
		}
		var lastUsed, expires sql.NullTime
		if c.LastUsed != nil {
			lastUsed = sql.NullTime{Time: c.LastUsed.UTC(), Valid: true}
		}
		if c.ExpiresAt != nil {
			expires = sql.NullTime{Time: c.ExpiresAt.UTC(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert,
			c.Key, c.Owner, c.Limit, c.Used, string(c.Status), role,
			c.CreatedAt.UTC(), lastUsed, expires, i,
		); err != nil {
			return storeErr("insert credential", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit save", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// bind rewrites ? placeholders to $n for the Postgres dialect.
func (s *SQLStore) bind(query string) string {
	if s.dialect != dialectPostgres {
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
