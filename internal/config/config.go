// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the runtime configuration of the catalog server.
type Config struct {
	DataDir    string // root data directory (default "./data")
	MetaDBPath string // SQLite metastore path (default <DataDir>/catalog.db)
	DuckDBPath string // DuckDB database path (default <DataDir>/warehouse.duckdb)
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// CORS
	CORSAllowedOrigins []string // allowed origins (default: ["*"])
}

// FilesDir is where uploaded source files are stored.
func (c *Config) FilesDir() string { return filepath.Join(c.DataDir, "files") }

// ExportsDir is where CSV exports are written.
func (c *Config) ExportsDir() string { return filepath.Join(c.DataDir, "exports") }

// IsProduction returns true when the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables, filling
// defaults for anything unset.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DataDir:    os.Getenv("DATA_DIR"),
		MetaDBPath: os.Getenv("META_DB_PATH"),
		DuckDBPath: os.Getenv("DUCKDB_PATH"),
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		Env:        os.Getenv("ENV"),
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = filepath.Join(cfg.DataDir, "catalog.db")
	}
	if cfg.DuckDBPath == "" {
		cfg.DuckDBPath = filepath.Join(cfg.DataDir, "warehouse.duckdb")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	cfg.CORSAllowedOrigins = []string{"*"}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be KEY=VALUE; comments (#) and blank lines are
// skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes when both ends
// match.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
