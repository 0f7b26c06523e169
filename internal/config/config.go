// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Risk core settings
	RiskTarget      float64 // Fixed CVaR target as fraction of portfolio value
	WarningLevel    float64 // Alert threshold, multiple of target utilization
	CriticalLevel   float64
	ExcessiveLevel  float64
	MaxAlerts       int
	AlertsEnabled   bool
	MonitorSchedule string // cron spec for the risk monitor tick
	SnapshotRetain  int    // how many risk snapshots to keep for the history chart

	Backup *BackupConfig
}

// BackupConfig holds settings for database backups to S3-compatible storage
type BackupConfig struct {
	Enabled   bool
	Schedule  string // cron spec
	Bucket    string
	Prefix    string
	Endpoint  string // S3-compatible endpoint (R2, MinIO); empty = AWS
	Region    string
	AccessKey string
	SecretKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RISKDESK_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		RiskTarget:      getEnvAsFloat("RISK_TARGET", 0.118),
		WarningLevel:    getEnvAsFloat("ALERT_WARNING_LEVEL", 0.8),
		CriticalLevel:   getEnvAsFloat("ALERT_CRITICAL_LEVEL", 1.0),
		ExcessiveLevel:  getEnvAsFloat("ALERT_EXCESSIVE_LEVEL", 1.2),
		MaxAlerts:       getEnvAsInt("MAX_ALERTS", 5),
		AlertsEnabled:   getEnvAsBool("ALERTS_ENABLED", true),
		MonitorSchedule: getEnv("MONITOR_SCHEDULE", "@every 1m"),
		SnapshotRetain:  getEnvAsInt("SNAPSHOT_RETAIN", 288),

		Backup: loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.RiskTarget <= 0 || c.RiskTarget >= 1 {
		return fmt.Errorf("RISK_TARGET must be in (0, 1), got %v", c.RiskTarget)
	}
	if c.WarningLevel <= 0 || c.CriticalLevel < c.WarningLevel || c.ExcessiveLevel < c.CriticalLevel {
		return fmt.Errorf("alert levels must satisfy 0 < warning <= critical <= excessive")
	}
	if c.MaxAlerts <= 0 {
		return fmt.Errorf("MAX_ALERTS must be positive, got %d", c.MaxAlerts)
	}
	if c.Backup != nil && c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("BACKUP_BUCKET is required when backups are enabled")
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:   getEnvAsBool("BACKUP_ENABLED", false),
		Schedule:  getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"), // 3 AM daily
		Bucket:    getEnv("BACKUP_BUCKET", ""),
		Prefix:    getEnv("BACKUP_PREFIX", "riskdesk"),
		Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:    getEnv("BACKUP_S3_REGION", "auto"),
		AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
