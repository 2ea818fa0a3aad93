package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Addr:             ":8080",
		DatabaseURL:      "postgres://localhost:5432/payroll",
		DirectoryMode:    "local",
		BreakerStore:     "memory",
		BreakerThreshold: 5,
		BreakerCooldown:  time.Minute,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   100 * time.Millisecond,
		RetryMaxDelay:    2 * time.Second,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRequiresDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestValidateRemoteModeNeedsBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.DirectoryMode = "remote"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for remote mode without base URL")
	}

	cfg.DirectoryBaseURL = "http://directory:8081"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid remote config, got %v", err)
	}
}

func TestValidateRejectsUnknownDirectoryMode(t *testing.T) {
	cfg := validConfig()
	cfg.DirectoryMode = "grpc"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown directory mode")
	}
}

func TestValidateRedisStoreNeedsAddr(t *testing.T) {
	cfg := validConfig()
	cfg.BreakerStore = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis store without addr")
	}

	cfg.RedisAddr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid redis config, got %v", err)
	}
}

func TestValidateRejectsInvertedRetryDelays(t *testing.T) {
	cfg := validConfig()
	cfg.RetryBaseDelay = 3 * time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when base delay exceeds max delay")
	}
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("PAYROLL_TEST_INT", "not-a-number")
	if got := getEnvInt("PAYROLL_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}

	t.Setenv("PAYROLL_TEST_DURATION", "250ms")
	if got := getEnvDuration("PAYROLL_TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}

	t.Setenv("PAYROLL_TEST_BOOL", "true")
	if !getEnvBool("PAYROLL_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
}
