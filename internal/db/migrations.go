package db

import (
	"context"
	"fmt"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
)

// migrations are applied in order; the schema version is their count.
// Append only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS switch_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		from_id TEXT,
		to_id TEXT NOT NULL,
		to_email TEXT,
		success INTEGER NOT NULL DEFAULT 0,
		stage TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_switch_events_timestamp ON switch_events(timestamp);`,

	`CREATE TABLE IF NOT EXISTS quota_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		account_id TEXT NOT NULL,
		email TEXT,
		gemini INTEGER NOT NULL DEFAULT -1,
		claude INTEGER NOT NULL DEFAULT -1,
		forbidden INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_quota_snapshots_account_time ON quota_snapshots(account_id, timestamp);`,
}

// SchemaVersion returns the applied schema version.
func (db *DB) SchemaVersion() (int, error) {
	return db.schemaVersion(context.Background())
}

func (db *DB) schemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (db *DB) migrate(ctx context.Context) error {
	current, err := db.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
		logger.Debug("applied migration", "version", i+1)
	}

	return nil
}
