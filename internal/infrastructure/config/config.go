package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	Mail  MailConfig
}

type AuthConfig struct {
	JWTSecret                string        `env:"JWT_SECRET, required"`
	JWTTTL                   time.Duration `env:"JWT_TTL,    default=8h"`
	JWTIssuer                string        `env:"JWT_ISSUER, default=backoffice"`
	VerificationTTL          time.Duration `env:"VERIFICATION_TTL, default=24h"`
	RequireEmailVerification bool          `env:"REQUIRE_EMAIL_VERIFICATION, default=true"`
	AutoApprove              bool          `env:"AUTO_APPROVE, default=false"`
	BcryptCost               int           `env:"BCRYPT_COST, default=10"`
	PublicBaseURL            string        `env:"PUBLIC_BASE_URL,   default=http://localhost:8080"`
	FrontendBaseURL          string        `env:"FRONTEND_BASE_URL, default=http://localhost:3000"`
	LoginMaxAttempts         int           `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	LoginLockWindow          time.Duration `env:"LOGIN_LOCK_WINDOW,  default=15m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=backoffice"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// MailConfig selects the outbound email transport. An empty RabbitURL makes
// the service log emails instead of publishing them.
type MailConfig struct {
	RabbitURL string `env:"RABBITMQ_URL"`
	Queue     string `env:"MAIL_QUEUE,   default=email_jobs"`
	From      string `env:"MAIL_FROM,    default=no-reply@backoffice.local"`
	Workers   int    `env:"MAIL_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadFrom is Load with an explicit lookuper, for tests.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether logs should be emitted as plain JSON.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if len(c.Auth.JWTSecret) < 32 && c.IsProduction() {
		return errors.New("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Auth.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Auth.VerificationTTL <= 0 {
		return errors.New("VERIFICATION_TTL must be positive")
	}
	return nil
}
