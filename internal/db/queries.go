package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// RecordSwitch stores the outcome of a switch attempt.
func (db *DB) RecordSwitch(rec *models.SwitchRecord) error {
	query := `
		INSERT INTO switch_events (timestamp, from_id, to_id, to_email, success, stage, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := rec.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.Unix(),
		nullString(rec.FromID),
		rec.ToID,
		nullString(rec.ToEmail),
		boolToInt(rec.Success),
		nullString(rec.Stage),
		nullString(rec.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert switch event: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// RecentSwitches returns the most recent switch attempts, newest first.
func (db *DB) RecentSwitches(limit int) ([]models.SwitchRecord, error) {
	query := `
		SELECT id, timestamp, from_id, to_id, to_email, success, stage, error
		FROM switch_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query switch events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.SwitchRecord
	for rows.Next() {
		var rec models.SwitchRecord
		var ts, success int64
		var fromID, toEmail, stage, errStr sql.NullString

		if err := rows.Scan(&rec.ID, &ts, &fromID, &rec.ToID, &toEmail, &success, &stage, &errStr); err != nil {
			return nil, fmt.Errorf("failed to scan switch event: %w", err)
		}

		rec.Timestamp = time.Unix(ts, 0)
		rec.FromID = fromID.String
		rec.ToEmail = toEmail.String
		rec.Success = success != 0
		rec.Stage = stage.String
		rec.Error = errStr.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// RecordQuota stores a quota snapshot.
func (db *DB) RecordQuota(snapshot *models.QuotaSnapshot) error {
	query := `
		INSERT INTO quota_snapshots (timestamp, account_id, email, gemini, claude, forbidden)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	timestamp := snapshot.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.Unix(),
		snapshot.AccountID,
		nullString(snapshot.Email),
		snapshot.Gemini,
		snapshot.Claude,
		boolToInt(snapshot.Forbidden),
	)
	if err != nil {
		return fmt.Errorf("failed to insert quota snapshot: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		snapshot.ID = id
	}
	return nil
}

// QuotaHistory returns an account's snapshots newer than since, oldest first.
func (db *DB) QuotaHistory(accountID string, since time.Time) ([]models.QuotaSnapshot, error) {
	query := `
		SELECT id, timestamp, account_id, email, gemini, claude, forbidden
		FROM quota_snapshots
		WHERE account_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := db.QueryContext(context.Background(), query, accountID, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query quota history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshots []models.QuotaSnapshot
	for rows.Next() {
		var s models.QuotaSnapshot
		var ts, forbidden int64
		var email sql.NullString

		if err := rows.Scan(&s.ID, &ts, &s.AccountID, &email, &s.Gemini, &s.Claude, &forbidden); err != nil {
			return nil, fmt.Errorf("failed to scan quota snapshot: %w", err)
		}

		s.Timestamp = time.Unix(ts, 0)
		s.Email = email.String
		s.Forbidden = forbidden != 0
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// Prune deletes switch events and snapshots older than before.
func (db *DB) Prune(before time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"switch_events", "quota_snapshots"} {
		// table names come from the fixed list above
		result, err := db.ExecContext(context.Background(),
			"DELETE FROM "+table+" WHERE timestamp < ?", before.Unix())
		if err != nil {
			return total, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}
	return total, nil
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
