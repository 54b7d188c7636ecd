// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for the sqlite databases, always absolute
	Port        int
	LogLevel    string
	DevMode     bool
	MoexBaseURL string // MOEX ISS API base, overridable for tests

	CacheTTL     time.Duration // TTL for cached calculation results
	SyncSchedule string        // cron spec for the daily price sync
	SyncWindow   int           // trailing days refreshed by the daily sync

	Backup *BackupConfig
}

// BackupConfig holds S3 backup configuration.
// Disabled unless an endpoint and bucket are configured.
type BackupConfig struct {
	Enabled       bool
	Endpoint      string // S3-compatible endpoint URL
	Region        string
	Bucket        string
	AccessKeyID   string
	SecretKey     string
	Schedule      string // cron spec for the nightly backup
	RetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FINCALC_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		Port:         getEnvAsInt("FINCALC_PORT", 8080),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		MoexBaseURL:  getEnv("MOEX_BASE_URL", "https://iss.moex.com/iss"),
		CacheTTL:     getEnvAsDuration("CALC_CACHE_TTL", time.Hour),
		SyncSchedule: getEnv("SYNC_SCHEDULE", "0 3 * * *"), // 03:00 daily, after market close
		SyncWindow:   getEnvAsInt("SYNC_WINDOW_DAYS", 30),
		Backup:       loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.SyncWindow <= 0 {
		return fmt.Errorf("invalid sync window: %d days", c.SyncWindow)
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("backup enabled but no bucket configured")
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	cfg := &BackupConfig{
		Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:        getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
		AccessKeyID:   getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretKey:     getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		Schedule:      getEnv("BACKUP_SCHEDULE", "30 2 * * *"), // 02:30 daily, before the price sync
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
	cfg.Enabled = getEnvAsBool("BACKUP_ENABLED", cfg.Endpoint != "" && cfg.Bucket != "")
	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
