package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr              string
	DatabaseURL       string
	Environment       string
	DataEncryptionKey string
	RunMigrations     bool
	RunSeed           bool
	MigrationsDir     string
	PayslipDir        string

	DirectoryMode    string
	DirectoryBaseURL string
	DirectoryTimeout time.Duration

	BreakerStore     string
	BreakerThreshold int
	BreakerCooldown  time.Duration
	RedisAddr        string

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	MetricsEnabled bool

	EmailEnabled    bool
	EmailFrom       string
	PayrollNotifyTo string
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	SMTPUseTLS      bool
}

func Load() Config {
	return Config{
		Addr:              getEnv("APP_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		Environment:       getEnv("APP_ENV", "development"),
		DataEncryptionKey: getEnv("DATA_ENCRYPTION_KEY", ""),
		RunMigrations:     getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:           getEnvBool("RUN_SEED", true),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", "migrations"),
		PayslipDir:        getEnv("PAYSLIP_DIR", "storage/payslips"),
		DirectoryMode:     getEnv("DIRECTORY_MODE", "local"),
		DirectoryBaseURL:  getEnv("DIRECTORY_BASE_URL", ""),
		DirectoryTimeout:  getEnvDuration("DIRECTORY_TIMEOUT", 5*time.Second),
		BreakerStore:      getEnv("BREAKER_STORE", "memory"),
		BreakerThreshold:  getEnvInt("BREAKER_THRESHOLD", 5),
		BreakerCooldown:   getEnvDuration("BREAKER_COOLDOWN", 60*time.Second),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RetryMaxAttempts:  getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:    getEnvDuration("RETRY_BASE_DELAY", 100*time.Millisecond),
		RetryMaxDelay:     getEnvDuration("RETRY_MAX_DELAY", 2*time.Second),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		EmailEnabled:      getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:         getEnv("EMAIL_FROM", "payroll@localhost"),
		PayrollNotifyTo:   getEnv("PAYROLL_NOTIFY_TO", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:        getEnvBool("SMTP_USE_TLS", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.DirectoryMode {
	case "local":
	case "remote":
		if strings.TrimSpace(c.DirectoryBaseURL) == "" {
			return fmt.Errorf("DIRECTORY_BASE_URL must be set when DIRECTORY_MODE is remote")
		}
	default:
		return fmt.Errorf("DIRECTORY_MODE must be local or remote, got %q", c.DirectoryMode)
	}
	switch c.BreakerStore {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR must be set when BREAKER_STORE is redis")
		}
	default:
		return fmt.Errorf("BREAKER_STORE must be memory or redis, got %q", c.BreakerStore)
	}
	if c.BreakerThreshold <= 0 {
		return fmt.Errorf("BREAKER_THRESHOLD must be positive")
	}
	if c.BreakerCooldown <= 0 {
		return fmt.Errorf("BREAKER_COOLDOWN must be positive")
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive")
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 < RETRY_BASE_DELAY <= RETRY_MAX_DELAY")
	}
	return nil
}
