package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "dev-secret",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" || cfg.IsProduction() {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.Auth.JWTTTL != 8*time.Hour || cfg.Auth.VerificationTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl defaults: %+v", cfg.Auth)
	}
	if !cfg.Auth.RequireEmailVerification || cfg.Auth.AutoApprove {
		t.Fatalf("verification must be required and approval manual by default")
	}
	if cfg.Auth.LoginMaxAttempts != 5 || cfg.Auth.LoginLockWindow != 15*time.Minute {
		t.Fatalf("unexpected throttle defaults: %+v", cfg.Auth)
	}
	if cfg.Mongo.Database != "backoffice" || cfg.Mail.Queue != "email_jobs" || cfg.Mail.RabbitURL != "" {
		t.Fatalf("unexpected storage defaults: %+v %+v", cfg.Mongo, cfg.Mail)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":                 "dev-secret",
		"AUTO_APPROVE":               "true",
		"REQUIRE_EMAIL_VERIFICATION": "false",
		"VERIFICATION_TTL":           "2h",
		"REDIS_PASSWORD":             "pw",
		"MAIL_WORKERS":               "8",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Auth.AutoApprove || cfg.Auth.RequireEmailVerification || cfg.Auth.VerificationTTL != 2*time.Hour {
		t.Fatalf("overrides not applied: %+v", cfg.Auth)
	}
	if cfg.Redis.Password != "pw" || cfg.Mail.Workers != 8 {
		t.Fatalf("overrides not applied: %+v %+v", cfg.Redis, cfg.Mail)
	}
}

func TestLoadFrom_MissingSecret(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected missing JWT_SECRET error, got %v", err)
	}
}

func TestLoadFrom_ProductionRequiresStrongSecret(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":        "production",
		"JWT_SECRET": "short",
	}))
	if err == nil {
		t.Fatalf("expected weak secret to be rejected in production")
	}

	_, err = LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":        "production",
		"JWT_SECRET": strings.Repeat("x", 32),
	}))
	if err != nil {
		t.Fatalf("32-byte secret must be accepted: %v", err)
	}
}

func TestLoadFrom_RejectsNonPositiveTTL(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":       "dev-secret",
		"VERIFICATION_TTL": "0s",
	}))
	if err == nil {
		t.Fatalf("expected zero VERIFICATION_TTL to be rejected")
	}
}
