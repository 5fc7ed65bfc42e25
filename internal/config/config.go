package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvAPIKey        = "GEMINI_API_KEY"
	EnvDBPath        = "LUMINA_DB_PATH"
	EnvBookmarksPath = "LUMINA_BOOKMARKS_PATH"
	EnvLanguage      = "LUMINA_LANGUAGE"
	EnvHTTPAddr      = "LUMINA_HTTP_ADDR"
	EnvDebounceMs    = "LUMINA_DEBOUNCE_MS"
)

// Defaults
const (
	DefaultLanguage   = "en"
	DefaultHTTPAddr   = ":8080"
	DefaultDebounceMs = 800
)

// Config holds runtime configuration, loaded from the environment with an
// optional .env file for local development.
type Config struct {
	// APIKey is the Gemini credential. Empty is valid: search then
	// short-circuits to the unfiltered bookmark list and enrichment
	// records errors.
	APIKey string

	// DBPath is the SQLite metadata database file.
	DBPath string

	// BookmarksPath points at the browser bookmarks file to search.
	BookmarksPath string

	// Language is the target language for summaries and tags.
	Language string

	// HTTPAddr is the listen address for the HTTP API server.
	HTTPAddr string

	// Debounce is the interactive-search quiet interval.
	Debounce time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:        os.Getenv(EnvAPIKey),
		DBPath:        os.Getenv(EnvDBPath),
		BookmarksPath: os.Getenv(EnvBookmarksPath),
		Language:      os.Getenv(EnvLanguage),
		HTTPAddr:      os.Getenv(EnvHTTPAddr),
		Debounce:      DefaultDebounceMs * time.Millisecond,
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".lumina", "lumina.db")
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	if raw := os.Getenv(EnvDebounceMs); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvDebounceMs, raw)
		}
		cfg.Debounce = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}

// HasAPIKey reports whether a Gemini credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// EnsureDBDir creates the directory holding the database file.
func (c *Config) EnsureDBDir() error {
	return os.MkdirAll(filepath.Dir(c.DBPath), 0755)
}
