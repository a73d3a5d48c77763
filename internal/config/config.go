// Package config reads server settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/forgenotes/internal/auth"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port           int
	StorageBackend string
	DBPath         string
	SeedFile       string // empty means the embedded defaults
	JWTSecret      string // empty disables write protection
	LogLevel       slog.Level
	LogFormat      string // "text" or "json"
}

// Load reads .env if present, then the environment. Real environment
// variables win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone.
func FromEnv() (*Config, error) {
	port, err := getEnvAsInt("PORT", 8080)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           port,
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendMemory)),
		DBPath:         getEnv("DB_PATH", "data/forgenotes.db"),
		SeedFile:       getEnv("SEED_FILE", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	switch c.StorageBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("config: STORAGE_BACKEND must be %q or %q, got %q", BackendMemory, BackendSQLite, c.StorageBackend)
	}
	if c.StorageBackend == BackendSQLite && c.DBPath == "" {
		return errors.New("config: DB_PATH is required for the sqlite backend")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", auth.MinSecretLength)
	}
	return nil
}

// WriteProtected reports whether mutating routes require a token.
func (c *Config) WriteProtected() bool {
	return c.JWTSecret != ""
}

// NewLogger builds the process logger described by the config.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid integer %q", key, raw)
	}
	return v, nil
}
