package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application-wide configuration.
type Config struct {
	Addr                 string
	DataDir              string
	BackupDir            string
	EnableBackups        bool
	BackupInterval       time.Duration
	BackupRetention      time.Duration
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	ShutdownTimeout      time.Duration
	DefaultAdminEmail    string
	DefaultAdminPassword string
}

// NewDefaultConfig creates a Config struct with sensible default values.
func NewDefaultConfig() Config {
	return Config{
		Addr:                 ":1111",
		DataDir:              "data",
		BackupDir:            "backups",
		EnableBackups:        true,
		BackupInterval:       1 * time.Hour,
		BackupRetention:      7 * 24 * time.Hour,
		SessionTTL:           24 * time.Hour,
		SessionSweepInterval: 5 * time.Minute,
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         10 * time.Second,
		IdleTimeout:          120 * time.Second,
		ShutdownTimeout:      10 * time.Second,
		DefaultAdminEmail:    "admin@example.com",
		DefaultAdminPassword: "changeme",
	}
}

// Load loads configuration with a clear precedence: Environment > .env > Defaults.
func Load() Config {
	// A missing .env file is fine; real environment variables still apply.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded configuration from .env file")
	}

	cfg := NewDefaultConfig()
	applyEnvConfig(&cfg)
	return cfg
}

// applyEnvConfig overrides config values from environment variables.
func applyEnvConfig(cfg *Config) {
	if addr := os.Getenv("SHOPFRONT_ADDR"); addr != "" {
		cfg.Addr = addr
		slog.Info("Overriding Addr from environment", "value", addr)
	}
	if dataDir := os.Getenv("SHOPFRONT_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
		slog.Info("Overriding DataDir from environment", "value", dataDir)
	}
	if backupDir := os.Getenv("SHOPFRONT_BACKUP_DIR"); backupDir != "" {
		cfg.BackupDir = backupDir
		slog.Info("Overriding BackupDir from environment", "value", backupDir)
	}
	if adminEmail := os.Getenv("SHOPFRONT_ADMIN_EMAIL"); adminEmail != "" {
		cfg.DefaultAdminEmail = adminEmail
	}
	if adminPass := os.Getenv("SHOPFRONT_ADMIN_PASSWORD"); adminPass != "" {
		cfg.DefaultAdminPassword = adminPass
	}

	overrideBool("SHOPFRONT_ENABLE_BACKUPS", &cfg.EnableBackups)
	overrideDuration("SHOPFRONT_BACKUP_INTERVAL", &cfg.BackupInterval)
	overrideDuration("SHOPFRONT_BACKUP_RETENTION", &cfg.BackupRetention)
	overrideDuration("SHOPFRONT_SESSION_TTL", &cfg.SessionTTL)
	overrideDuration("SHOPFRONT_SESSION_SWEEP_INTERVAL", &cfg.SessionSweepInterval)
	overrideDuration("SHOPFRONT_READ_TIMEOUT", &cfg.ReadTimeout)
	overrideDuration("SHOPFRONT_WRITE_TIMEOUT", &cfg.WriteTimeout)
	overrideDuration("SHOPFRONT_IDLE_TIMEOUT", &cfg.IdleTimeout)
	overrideDuration("SHOPFRONT_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
}

func overrideBool(envKey string, target *bool) {
	envVal := os.Getenv(envKey)
	if envVal == "" {
		return
	}
	if b, err := strconv.ParseBool(envVal); err == nil {
		*target = b
		slog.Info("Overriding bool from environment", "key", envKey, "value", b)
	} else {
		slog.Warn("Invalid bool format in env var, using default", "key", envKey, "value", envVal)
	}
}

func overrideDuration(envKey string, target *time.Duration) {
	envVal := os.Getenv(envKey)
	if envVal == "" {
		return
	}
	if d, err := time.ParseDuration(envVal); err == nil {
		*target = d
		slog.Info("Overriding duration from environment", "key", envKey, "value", envVal)
	} else {
		slog.Warn("Invalid duration format in env var, using default", "key", envKey, "value", envVal)
	}
}
