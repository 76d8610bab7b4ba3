// Copyright © 2024 The ELPS authors

// Package cache stores lint results keyed by file content so unchanged
// files are not re-checked. Results live in a SQLite database.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/luthersystems/flakes/lint"
)

const sqliteDriverName = "sqlite"

// schemaVersion is mixed into every key. Bump it when the stored
// diagnostic format or the checker's output changes.
const schemaVersion = "flakes-cache-1"

const schema = `
CREATE TABLE IF NOT EXISTS results (
  key         TEXT PRIMARY KEY,
  filename    TEXT NOT NULL,
  diagnostics TEXT NOT NULL,
  created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS results_created_at ON results(created_at);
`

// Cache is a content-addressed store of lint results. It is safe for
// concurrent use.
type Cache struct {
	db   *sql.DB
	get  *sql.Stmt
	put  *sql.Stmt
	path string
}

// DefaultPath returns the database path under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "flakes", "results.db"), nil
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory, expected file", cleanPath)
	}
	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache %q: %w", cleanPath, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache %q: %w", cleanPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate cache %q: %w", cleanPath, err)
	}

	c := &Cache{db: db, path: cleanPath}
	if c.get, err = db.Prepare(`SELECT diagnostics FROM results WHERE key = ?`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare get stmt: %w", err)
	}
	if c.put, err = db.Prepare(`INSERT INTO results (key, filename, diagnostics, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET diagnostics = excluded.diagnostics, created_at = excluded.created_at`); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("prepare put stmt: %w", err)
	}
	return c, nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Key derives the cache key for a file. settings must capture every option
// that changes the result, such as the selected checks and extra builtins.
func Key(filename string, src []byte, settings ...string) string {
	h := sha256.New()
	h.Write([]byte(schemaVersion))
	h.Write([]byte{0})
	h.Write([]byte(filename))
	h.Write([]byte{0})
	for _, s := range settings {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	h.Write(src)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the stored diagnostics for key. The bool is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]lint.Diagnostic, bool, error) {
	var raw string
	err := c.get.QueryRowContext(ctx, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var diags []lint.Diagnostic
	if err := json.Unmarshal([]byte(raw), &diags); err != nil {
		return nil, false, fmt.Errorf("cache get: decode: %w", err)
	}
	return diags, true, nil
}

// Put stores the diagnostics for key.
func (c *Cache) Put(ctx context.Context, key, filename string, diags []lint.Diagnostic) error {
	if diags == nil {
		diags = []lint.Diagnostic{}
	}
	raw, err := json.Marshal(diags)
	if err != nil {
		return fmt.Errorf("cache put: encode: %w", err)
	}
	if _, err := c.put.ExecContext(ctx, key, filename, string(raw), time.Now().Unix()); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Prune deletes entries stored before cutoff and returns how many were
// removed.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM results WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of stored entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache len: %w", err)
	}
	return n, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{c.get, c.put} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	errs = append(errs, c.db.Close())
	return errors.Join(errs...)
}
