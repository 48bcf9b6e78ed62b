package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is a stored value. Sealed marks values encrypted by the caller.
type Entry struct {
	Key       string
	Value     []byte
	Sealed    bool
	UpdatedAt time.Time
}

// KVRepository is a small key-value table in an app-private SQLite file.
type KVRepository struct {
	db      *sql.DB
	path    string
	version uint
}

func NewKVRepository(dbPath string) (*KVRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Create the file up front so it never exists with wider permissions.
	f, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create db file: %w", err)
	}
	f.Close()
	if err := os.Chmod(dbPath, 0o600); err != nil {
		return nil, fmt.Errorf("restrict db file permissions: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &KVRepository{db: db, path: dbPath, version: version}, nil
}

func (r *KVRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version applied when the repository opened.
func (r *KVRepository) SchemaVersion() uint {
	return r.version
}

// Path returns the database file location.
func (r *KVRepository) Path() string {
	return r.path
}

// Get returns the entry for key. found is false when the key is absent.
func (r *KVRepository) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e       Entry
		sealed  int64
		updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, sealed, updated_at FROM kv WHERE key = ?`, key,
	).Scan(&e.Key, &e.Value, &sealed, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	e.Sealed = sealed != 0
	e.UpdatedAt = time.Unix(updated, 0)
	return e, true, nil
}

// Put inserts or replaces the value stored under key.
func (r *KVRepository) Put(ctx context.Context, key string, value []byte, sealed bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, sealed, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, sealed = excluded.sealed, updated_at = excluded.updated_at`,
		key, value, boolToInt(sealed), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Count returns the number of stored keys.
func (r *KVRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count keys: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
