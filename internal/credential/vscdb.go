// Package credential writes the active account into the target app's global
// state database, which is where the app reads its login from on startup.
package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// sqlite driver
	_ "modernc.org/sqlite"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// AuthStatusKey is the ItemTable key holding the app's login.
const AuthStatusKey = "antigravityAuthStatus"

// AuthStatus is the JSON value stored under AuthStatusKey.
type AuthStatus struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	APIKey          string `json:"apiKey"`
	RefreshToken    string `json:"refreshToken"`
	ExpiryTimestamp int64  `json:"expiryTimestamp"`
}

// Writer makes an account the one the target app will log in as.
type Writer interface {
	Write(ctx context.Context, account models.Account) error
}

// StateDB is the Writer backed by state.vscdb.
type StateDB struct {
	path string
}

var _ Writer = (*StateDB)(nil)

// NewStateDB returns a writer for the database at path.
func NewStateDB(path string) *StateDB {
	return &StateDB{path: path}
}

// Path returns the database file path.
func (s *StateDB) Path() string {
	return s.path
}

// Write stores the account's credentials. The app must not be running,
// otherwise it overwrites the row on exit.
func (s *StateDB) Write(ctx context.Context, account models.Account) error {
	if account.Token.AccessToken == "" && account.Token.RefreshToken == "" {
		return fmt.Errorf("account %s has no token", account.ID)
	}

	value, err := json.Marshal(AuthStatus{
		Name:            account.DisplayName(),
		Email:           account.Email,
		APIKey:          account.Token.AccessToken,
		RefreshToken:    account.Token.RefreshToken,
		ExpiryTimestamp: account.Token.ExpiryTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal auth status: %w", err)
	}

	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if _, err := db.ExecContext(ctx,
		`INSERT INTO ItemTable (key, value) VALUES (?, ?)`, AuthStatusKey, string(value)); err != nil {
		return fmt.Errorf("failed to write auth status: %w", err)
	}

	logger.Info("credential written", "account", account.ID, "path", s.path)
	return nil
}

// Read returns the stored login, or nil when there is none.
func (s *StateDB) Read(ctx context.Context) (*AuthStatus, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat state database: %w", err)
	}

	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer closeDB(db)

	var raw string
	err = db.QueryRowContext(ctx, `SELECT value FROM ItemTable WHERE key = ?`, AuthStatusKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read auth status: %w", err)
	}

	var status AuthStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, fmt.Errorf("failed to parse auth status: %w", err)
	}
	return &status, nil
}

func (s *StateDB) open(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	// the app may hold the file; every pooled connection waits for its lock
	db, err := sql.Open("sqlite", "file:"+s.path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS ItemTable (key TEXT UNIQUE ON CONFLICT REPLACE, value BLOB)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to prepare state database: %w", err)
	}
	return db, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close state database", "error", err)
	}
}
