package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV,default=development"`
	Port        string `env:"PORT,default=8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`

	// Payment provider credentials. The secret key authenticates outbound
	// API calls; the signing secret verifies inbound webhook deliveries.
	ProviderSecretKey    string `env:"PROVIDER_SECRET_KEY"`
	WebhookSigningSecret string `env:"WEBHOOK_SIGNING_SECRET"`

	FrontendBaseURL    string   `env:"FRONTEND_BASE_URL,default=http://localhost:3000"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE,default=30"`

	// How long past the billing date the sweeper waits for an invoice event
	// before expiring a subscription.
	BillingGracePeriod time.Duration `env:"BILLING_GRACE_PERIOD,default=72h"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL,default=1h"`
	SweepBatchSize     int           `env:"SWEEP_BATCH_SIZE,default=200"`
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.WebhookSigningSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SIGNING_SECRET is required")
	}

	return &cfg, nil
}
