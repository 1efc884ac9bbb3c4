package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	// ScanRoot is the managed file tree scans operate on.
	ScanRoot string
	// VaultDir holds quarantined file content. Must not be web-accessible.
	VaultDir string

	// ScanDeadline is the soft execution budget for a single scan.
	ScanDeadline time.Duration
	// FilePause is the pause between scanned files to avoid starving other work.
	FilePause time.Duration
	// RetentionDays is how long terminal scan jobs are kept before the purge sweep.
	RetentionDays int

	Debug bool
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:   getEnv("WARDEN_ENV", "development"),
		HTTPPort:      getEnv("WARDEN_HTTP_PORT", "8080"),
		DatabasePath:  getEnv("WARDEN_DB_PATH", filepath.Join("data", "warden.db")),
		ScanRoot:      getEnv("WARDEN_SCAN_ROOT", "data/site"),
		VaultDir:      getEnv("WARDEN_VAULT_DIR", filepath.Join("data", "vault")),
		ScanDeadline:  getEnvDuration("WARDEN_SCAN_DEADLINE", 300*time.Second),
		FilePause:     getEnvDuration("WARDEN_FILE_PAUSE", 10*time.Millisecond),
		RetentionDays: getEnvInt("WARDEN_RETENTION_DAYS", 30),
		Debug:         getEnv("WARDEN_DEBUG", "") == "true",
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	if err := os.MkdirAll(cfg.VaultDir, 0o700); err != nil {
		return Config{}, fmt.Errorf("ensure vault directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}

	return fallback
}
