package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "") // registers the restore
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "PORT", "APP_ENV", "BASE_URL", "STORAGE_TYPE", "DATABASE_URL", "DATA_FILE",
		"LOG_LEVEL", "LOG_SINK_URL", "SHORTCODE_LENGTH", "ALLOCATION_MAX_ATTEMPTS", "DEFAULT_VALIDITY_MINUTES")
	t.Setenv("BASE_URL", "http://localhost:8080/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StorageType != StorageSQLite || cfg.DatabaseURL != defaultSQLiteURL {
		t.Errorf("storage = %s %s", cfg.StorageType, cfg.DatabaseURL)
	}
	if cfg.Port != "8080" || cfg.AppEnv != "local" || cfg.DataFile != "shortlinks.json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.ShortcodeLength != 6 || cfg.AllocationMaxAttempts != 1000 || cfg.DefaultValidityMinutes != 30 {
		t.Errorf("numeric defaults = %d/%d/%d", cfg.ShortcodeLength, cfg.AllocationMaxAttempts, cfg.DefaultValidityMinutes)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/links?sslmode=disable")
	t.Setenv("SHORTCODE_LENGTH", "8")
	t.Setenv("DEFAULT_VALIDITY_MINUTES", "120")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_SINK_URL", "http://collector.example.com/logs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StorageType != StoragePostgres || cfg.ShortcodeLength != 8 || cfg.DefaultValidityMinutes != 120 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogSinkURL == "" {
		t.Error("LogSinkURL not loaded")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown storage", map[string]string{"STORAGE_TYPE": "redis"}, "invalid storage type"},
		{"postgres without url", map[string]string{"STORAGE_TYPE": "postgres", "DATABASE_URL": ""}, "DATABASE_URL is required"},
		{"bad number", map[string]string{"STORAGE_TYPE": "memory", "SHORTCODE_LENGTH": "six"}, "invalid SHORTCODE_LENGTH"},
		{"short code length", map[string]string{"STORAGE_TYPE": "memory", "SHORTCODE_LENGTH": "2"}, "SHORTCODE_LENGTH"},
		{"attempts", map[string]string{"STORAGE_TYPE": "memory", "ALLOCATION_MAX_ATTEMPTS": "0"}, "ALLOCATION_MAX_ATTEMPTS"},
		{"validity", map[string]string{"STORAGE_TYPE": "memory", "DEFAULT_VALIDITY_MINUTES": "50000"}, "DEFAULT_VALIDITY_MINUTES"},
		{"log level", map[string]string{"STORAGE_TYPE": "memory", "LOG_LEVEL": "loud"}, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{AppEnv: "test", LogLevel: "warn"}
	logger := cfg.NewLogger(&buf)

	logger.Info("dropped")
	logger.Warn("kept", "component", "link_service")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["env"] != "test" || rec["component"] != "link_service" {
		t.Errorf("record = %v", rec)
	}
}
