// Package config loads the goidentityd daemon configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the daemon configuration. Optional backends are disabled when
// their address is empty.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev      bool   `env:"LOG_DEV" envDefault:"false"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// DatabaseURL selects the Postgres store. Empty runs on the in-memory store.
	DatabaseURL string `env:"DATABASE_URL"`
	Migrate     bool   `env:"DB_MIGRATE" envDefault:"true"`
	SeedAccess  bool   `env:"SEED_DEFAULTS" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_CODES_TOPIC" envDefault:"identity.codes"`

	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"goIdentity"`
	JWTAccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"1h"`
	JWTRefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`

	OTPTTL           time.Duration `env:"OTP_TTL" envDefault:"10m"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`
	TOTPIssuer       string        `env:"TOTP_ISSUER" envDefault:"goIdentity"`
	RequireVerified  bool          `env:"REQUIRE_VERIFIED" envDefault:"false"`
	AuditEnabled     bool          `env:"AUDIT_ENABLED" envDefault:"true"`
	// AuditFile additionally appends audit events as JSON lines.
	AuditFile string `env:"AUDIT_FILE"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
	GitHubEnabled  bool   `env:"GITHUB_LOGIN_ENABLED" envDefault:"false"`
	GitHubAPIURL   string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.Environment != "development" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set in %q mode", cfg.Environment)
	}
	return cfg, nil
}

// Engine maps the daemon settings onto an engine configuration.
func (c *Config) Engine() goIdentity.Config {
	ec := goIdentity.DefaultConfig()
	ec.JWT.AccessSecret = []byte(c.JWTAccessSecret)
	ec.JWT.RefreshSecret = []byte(c.JWTRefreshSecret)
	ec.JWT.Issuer = c.JWTIssuer
	ec.JWT.AccessTTL = c.JWTAccessTTL
	ec.JWT.RefreshTTL = c.JWTRefreshTTL
	ec.OTP.TTL = c.OTPTTL
	ec.PasswordReset.TTL = c.PasswordResetTTL
	ec.TOTP.Issuer = c.TOTPIssuer
	ec.Account.RequireVerified = c.RequireVerified
	ec.Audit.Enabled = c.AuditEnabled
	return ec
}
