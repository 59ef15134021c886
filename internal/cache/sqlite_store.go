package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
  key         TEXT PRIMARY KEY,
  value       BLOB NOT NULL,
  expires_at  INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore persists JSON-encoded values in a single SQLite table.
type SQLiteStore[V any] struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at dbPath with WAL mode enabled.
func NewSQLiteStore[V any](dbPath string) (*SQLiteStore[V], error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "fsguard-cache.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore[V]{db: db}, nil
}

func (s *SQLiteStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	var raw []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key).Scan(&raw, &expiresAt)
	if err == sql.ErrNoRows {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("query cache entry: %w", err)
	}
	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return zero, false, nil
	}

	var value V
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, false, nil
	}
	return value, true, nil
}

func (s *SQLiteStore[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	var expiresAt int64
	if exp := expiry(ttl); !exp.IsZero() {
		expiresAt = exp.UnixNano()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, raw, expiresAt)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore[V]) Forever(ctx context.Context, key string, value V) error {
	return s.Put(ctx, key, value, 0)
}

func (s *SQLiteStore[V]) Forget(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore[V]) Close() error {
	return s.db.Close()
}
