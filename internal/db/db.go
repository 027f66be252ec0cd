// Package db stores switch history and quota snapshots in SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// connection pragmas, applied by the driver to every pooled connection
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

// DB is the history database.
type DB struct {
	*sql.DB
	path string
}

// New opens the history database at path, creating parent directories and
// applying pending migrations.
func New(path string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return Open(ctx, path)
}

// Open is New with a caller supplied deadline for connecting and migrating.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer keeps WAL checkpoints and user_version updates serialized
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: path}
	if err := d.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := d.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return d, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close truncates the WAL and closes the pool.
func (db *DB) Close() error {
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Compact prunes rows older than retention and reclaims the freed pages.
// It returns the number of rows removed.
func (db *DB) Compact(retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := db.Prune(time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if _, err := db.ExecContext(context.Background(), "VACUUM"); err != nil {
			return n, fmt.Errorf("failed to vacuum database: %w", err)
		}
	}
	return n, nil
}
