// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AccountsPath         string
	DatabasePath         string
	LogPath              string
	LogLevel             string
	StateDBPath          string
	GoogleClientID       string
	GoogleClientSecret   string
	CallbackAddr         string
	StopTimeout          time.Duration
	QuotaRetryDelay      time.Duration
	QuotaRefreshInterval time.Duration
	HistoryRetention     time.Duration
	QuotaRetryAttempts   int
	LowQuotaThreshold    int
}

// Default values
const (
	defaultCallbackAddr         = "127.0.0.1:8888"
	defaultStopTimeout          = 20 * time.Second
	defaultQuotaRetryAttempts   = 3
	defaultQuotaRetryDelay      = 500 * time.Millisecond
	defaultQuotaRefreshInterval = 5 * time.Minute
	defaultLowQuotaThreshold    = 10
	defaultHistoryRetention     = 30 * 24 * time.Hour
	appDirName                  = "antigravity-switcher"
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// First .env found wins
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	creds := LoadClientCredentials()
	var defaultClientID, defaultClientSecret string
	if creds != nil {
		defaultClientID = creds.ClientID
		defaultClientSecret = creds.ClientSecret
	}

	cfg := &Config{
		AccountsPath:         getEnvString("ACCOUNTS_PATH", defaultDataPath("accounts.json")),
		DatabasePath:         getEnvString("DATABASE_PATH", defaultDataPath("history.db")),
		LogPath:              getEnvString("LOG_PATH", defaultDataPath("agswitch.log")),
		LogLevel:             getEnvString("LOG_LEVEL", "info"),
		StateDBPath:          getEnvString("ANTIGRAVITY_STATE_DB", DefaultStateDBPath()),
		GoogleClientID:       getEnvString("GOOGLE_CLIENT_ID", defaultClientID),
		GoogleClientSecret:   getEnvString("GOOGLE_CLIENT_SECRET", defaultClientSecret),
		CallbackAddr:         getEnvString("OAUTH_CALLBACK_ADDR", defaultCallbackAddr),
		StopTimeout:          getEnvDuration("STOP_TIMEOUT", defaultStopTimeout),
		QuotaRetryAttempts:   getEnvInt("QUOTA_RETRY_ATTEMPTS", defaultQuotaRetryAttempts),
		QuotaRetryDelay:      getEnvDuration("QUOTA_RETRY_DELAY", defaultQuotaRetryDelay),
		QuotaRefreshInterval: getEnvDuration("QUOTA_REFRESH_INTERVAL", defaultQuotaRefreshInterval),
		LowQuotaThreshold:    getEnvInt("LOW_QUOTA_THRESHOLD", defaultLowQuotaThreshold),
		HistoryRetention:     getEnvDuration("HISTORY_RETENTION", defaultHistoryRetention),
	}

	if cfg.QuotaRetryAttempts < 1 {
		cfg.QuotaRetryAttempts = 1
	}

	if err := ensureDir(filepath.Dir(cfg.AccountsPath)); err != nil {
		return nil, err
	}
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireOAuth reports an error when the Google client credentials are missing.
// Only commands that talk to the authorization server need them.
func (c *Config) RequireOAuth() error {
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required (set via env or opencode-antigravity-auth)")
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", appDirName, ".env"),
			filepath.Join(home, ".antigravity", ".env"),
		)
	}

	return paths
}

// defaultDataPath returns a file path inside the application config directory.
func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", appDirName, name)
}

// DefaultStateDBPath returns where the target app keeps its global state
// database on this OS.
func DefaultStateDBPath() string {
	return stateDBPathFor(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

func stateDBPathFor(goos string, getenv func(string) string, homeDir func() (string, error)) string {
	const rel = "User/globalStorage/state.vscdb"

	home, err := homeDir()
	if err != nil {
		home = ""
	}

	var base string
	switch goos {
	case "windows":
		base = getenv("APPDATA")
		if base == "" && home != "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
	case "darwin":
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "Antigravity", filepath.FromSlash(rel))
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Bare numbers are seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
