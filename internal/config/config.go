// Package config contains everything related to configuration
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	BackendURL     string
	RequestTimeout time.Duration
	HoverDebounce  time.Duration
	DatabasePath   string
	LogPath        string
	LogLevel       string
	ExportDir      string
	// InboxDir is the folder watched for new uploads. Empty disables the watcher.
	InboxDir      string
	NotifyEnabled bool
	// RefreshInterval is how often the project list is re-polled.
	RefreshInterval time.Duration
	// JournalRetention bounds how long request journal rows are kept.
	JournalRetention time.Duration
}

// Default values
const (
	defaultBackendURL     = "http://localhost:8000"
	defaultRequestTimeout = 30 * time.Second
	defaultHoverDebounce  = 100 * time.Millisecond
	defaultLogLevel       = "info"
	defaultRefresh        = time.Minute
	defaultRetention      = 30 * 24 * time.Hour
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		BackendURL:     strings.TrimRight(getEnvString("CELLTRACK_BACKEND_URL", defaultBackendURL), "/"),
		RequestTimeout: getEnvDuration("CELLTRACK_REQUEST_TIMEOUT", defaultRequestTimeout),
		HoverDebounce:  getEnvDuration("CELLTRACK_HOVER_DEBOUNCE", defaultHoverDebounce),
		DatabasePath:   getEnvString("DATABASE_PATH", getDefaultDatabasePath()),
		LogPath:        getEnvString("CELLTRACK_LOG_PATH", getDefaultLogPath()),
		LogLevel:       strings.ToLower(getEnvString("LOG_LEVEL", defaultLogLevel)),
		ExportDir:      getEnvString("CELLTRACK_EXPORT_DIR", getDefaultExportDir()),
		InboxDir:       getEnvString("CELLTRACK_INBOX_DIR", ""),
		NotifyEnabled:  getEnvBool("CELLTRACK_NOTIFY", true),

		RefreshInterval:  getEnvDuration("CELLTRACK_REFRESH_INTERVAL", defaultRefresh),
		JournalRetention: getEnvDuration("CELLTRACK_JOURNAL_RETENTION", defaultRetention),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	if err := ensureDir(filepath.Dir(cfg.LogPath)); err != nil {
		return nil, err
	}

	if err := ensureDir(cfg.ExportDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CELLTRACK_BACKEND_URL must be an http(s) URL, got %q", c.BackendURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("CELLTRACK_REQUEST_TIMEOUT must be positive")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("CELLTRACK_REFRESH_INTERVAL must be positive")
	}
	if c.HoverDebounce < 0 {
		return fmt.Errorf("CELLTRACK_HOVER_DEBOUNCE must not be negative")
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "celltrack", ".env"),
			filepath.Join(home, ".celltrack", ".env"),
		)
	}

	// Parent directory (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(cwd), ".env"))
	}

	return paths
}

// dataDir is where the journal and log live.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "celltrack")
}

// getDefaultDatabasePath returns the default path for the SQLite request journal.
func getDefaultDatabasePath() string {
	return filepath.Join(dataDir(), "requests.db")
}

func getDefaultLogPath() string {
	return filepath.Join(dataDir(), "celltrack.log")
}

// getDefaultExportDir prefers ~/Downloads, falling back to the working directory.
func getDefaultExportDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		downloads := filepath.Join(home, "Downloads")
		if info, err := os.Stat(downloads); err == nil && info.IsDir() {
			return downloads
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
