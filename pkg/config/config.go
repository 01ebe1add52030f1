package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
	StorageFile     = "file"
)

const defaultSQLiteURL = "file:db.sqlite"

type Config struct {
	Port    string
	AppEnv  string
	BaseURL string

	StorageType string
	DatabaseURL string
	DataFile    string

	LogLevel     string
	// LogSinkURL is the remote diagnostic collector, empty disables it.
	// Delivery is best-effort: the long-running binaries drain the queue on
	// shutdown, the serverless entrypoint has no shutdown hook and may drop
	// queued events when its instance is frozen.
	LogSinkURL   string
	LogSinkStack string

	ShortcodeLength        int
	AllocationMaxAttempts  int
	DefaultValidityMinutes int
}

func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		AppEnv:       getEnv("APP_ENV", "local"),
		BaseURL:      strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		StorageType:  strings.ToLower(getEnv("STORAGE_TYPE", StorageSQLite)),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DataFile:     getEnv("DATA_FILE", "shortlinks.json"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogSinkURL:   getEnv("LOG_SINK_URL", ""),
		LogSinkStack: getEnv("LOG_SINK_STACK", "backend"),
	}
	if cfg.StorageType == StorageSQLite && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultSQLiteURL
	}

	var err error
	if cfg.ShortcodeLength, err = getEnvInt("SHORTCODE_LENGTH", 6); err != nil {
		return nil, err
	}
	if cfg.AllocationMaxAttempts, err = getEnvInt("ALLOCATION_MAX_ATTEMPTS", 1000); err != nil {
		return nil, err
	}
	if cfg.DefaultValidityMinutes, err = getEnvInt("DEFAULT_VALIDITY_MINUTES", 30); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late, at first use.
func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageSQLite, StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_TYPE=%s", StoragePostgres)
		}
	case StorageFile:
		if c.DataFile == "" {
			return fmt.Errorf("DATA_FILE is required when STORAGE_TYPE=%s", StorageFile)
		}
	default:
		return fmt.Errorf("invalid storage type: %q (must be sqlite, postgres, memory or file)", c.StorageType)
	}

	if c.ShortcodeLength < 3 || c.ShortcodeLength > 20 {
		return fmt.Errorf("SHORTCODE_LENGTH must be between 3 and 20, got %d", c.ShortcodeLength)
	}
	if c.AllocationMaxAttempts <= 0 {
		return fmt.Errorf("ALLOCATION_MAX_ATTEMPTS must be positive, got %d", c.AllocationMaxAttempts)
	}
	if c.DefaultValidityMinutes < 1 || c.DefaultValidityMinutes > 43200 {
		return fmt.Errorf("DEFAULT_VALIDITY_MINUTES must be between 1 and 43200, got %d", c.DefaultValidityMinutes)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
