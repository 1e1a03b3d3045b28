package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/wordtrail/wordtrail/internal/platform/storage/sqlitemigrate"
	"github.com/wordtrail/wordtrail/internal/storage"
	"github.com/wordtrail/wordtrail/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed document and telemetry persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a sync SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get fetches a document body by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("document key is required")
	}

	var body []byte
	row := s.sqlDB.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return body, nil
}

// Put overwrites the document stored under key.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("document key is required")
	}
	if len(body) == 0 {
		return fmt.Errorf("document body is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
`, key, body, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// Delete removes the document stored under key. Deleting an absent key is not
// an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("document key is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// DeletePrefix removes every document whose key starts with prefix and
// returns how many were removed.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("key prefix is required")
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM documents WHERE key GLOB ?`, globEscape(prefix)+"*")
	if err != nil {
		return 0, fmt.Errorf("delete documents by prefix: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted documents: %w", err)
	}
	return int(affected), nil
}

// ListPrefix returns key and body for every document under prefix, ordered by key.
func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("key prefix is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT key, body FROM documents WHERE key GLOB ? ORDER BY key`, globEscape(prefix)+"*")
	if err != nil {
		return nil, fmt.Errorf("list documents by prefix: %w", err)
	}
	defer rows.Close()

	var docs []storage.Document
	for rows.Next() {
		var doc storage.Document
		if err := rows.Scan(&doc.Key, &doc.Body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// globEscape neutralizes GLOB metacharacters in a literal key prefix.
func globEscape(prefix string) string {
	replacer := strings.NewReplacer("*", "[*]", "?", "[?]", "[", "[[]")
	return replacer.Replace(prefix)
}
