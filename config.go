package goIdentity

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goIdentity/internal/validate"
)

// Config holds every tunable of the Engine. Start from DefaultConfig and
// set at least JWT.AccessSecret and JWT.RefreshSecret.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	OTP           OTPConfig
	TOTP          TOTPConfig
	Account       AccountConfig
	PasswordReset PasswordResetConfig
	Cache         CacheConfig
	Audit         AuditConfig
	Delivery      DeliveryConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the two token kinds. Access and refresh tokens are
// always signed with different keys.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional

	// AccessSecret is the HS256 secret, or the Ed25519 private key.
	AccessSecret    []byte
	AccessPublicKey []byte
	// RefreshSecret is the HS256 secret, or the Ed25519 private key.
	RefreshSecret    []byte
	RefreshPublicKey []byte

	Issuer   string
	Audience string
	Leeway   time.Duration

	// KeyID and VerifyKeys enable access-key rotation by "kid" header.
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id cost parameters.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int

	// UpgradeOnLogin re-hashes bcrypt and under-cost Argon2id hashes after a
	// successful login.
	UpgradeOnLogin bool
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// OTPConfig controls registration verification codes.
type OTPConfig struct {
	TTL time.Duration
}

// TOTPConfig controls the authenticator-app second factor.
type TOTPConfig struct {
	Issuer string
	Period uint
	Digits int
	Skew   uint
	QRSize int
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls account creation and the login gate.
type AccountConfig struct {
	// AssignDefaultRole grants DefaultRole to accounts created by Register.
	// Federated sign-ups always receive it.
	AssignDefaultRole bool
	DefaultRole       string
	// RequireVerified rejects login until one contact channel is verified.
	// Registered accounts are inactive until verification either way.
	RequireVerified bool
}

// PasswordResetConfig controls reset tokens.
type PasswordResetConfig struct {
	TTL time.Duration
}

/*
====================================
INFRASTRUCTURE CONFIG
====================================
*/

// CacheConfig controls the Redis-backed authorization cache. It is used only
// when a Redis client is supplied to the Builder.
type CacheConfig struct {
	Prefix string
	TTL    time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DeliveryConfig controls the asynchronous notification dispatcher.
type DeliveryConfig struct {
	BufferSize  int
	SendTimeout time.Duration
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults. Secrets are left empty.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "goIdentity",
		},
		Password: PasswordConfig{
			Memory:           64 * 1024,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		OTP: OTPConfig{
			TTL: 10 * time.Minute,
		},
		TOTP: TOTPConfig{
			Issuer: "goIdentity",
			Period: 30,
			Digits: 6,
			Skew:   1,
			QRSize: 200,
		},
		Account: AccountConfig{
			AssignDefaultRole: true,
			DefaultRole:       RoleUser,
		},
		PasswordReset: PasswordResetConfig{
			TTL: time.Hour,
		},
		Cache: CacheConfig{
			Prefix: "goidentity",
			TTL:    5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Delivery: DeliveryConfig{
			BufferSize:  256,
			SendTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256", "ed25519":
	default:
		return errors.New("jwt signing method must be hs256 or ed25519")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt ttl values must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("jwt refresh ttl must be >= access ttl")
	}
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
		return errors.New("jwt access and refresh secrets are required")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("jwt access and refresh secrets must differ")
	}
	if strings.EqualFold(c.JWT.SigningMethod, "hs256") && (len(c.JWT.AccessSecret) < 32 || len(c.JWT.RefreshSecret) < 32) {
		return errors.New("jwt hs256 secrets must be at least 32 bytes")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("jwt leeway must be between 0 and 2m")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("jwt audience must not be blank")
	}

	if c.Password.Memory < 8*1024 || c.Password.Time < 1 || c.Password.Parallelism < 1 {
		return errors.New("password argon2 parameters are below minimum")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("password salt and key length must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("password max bytes must be >= 0")
	}

	if c.OTP.TTL <= 0 {
		return errors.New("otp ttl must be > 0")
	}
	if strings.TrimSpace(c.TOTP.Issuer) == "" {
		return errors.New("totp issuer must be set")
	}
	if c.TOTP.Period == 0 {
		return errors.New("totp period must be > 0")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("totp digits must be 6 or 8")
	}
	if c.TOTP.Skew > 3 {
		return errors.New("totp skew must be <= 3")
	}

	if c.Account.AssignDefaultRole && !validate.AccessName(c.Account.DefaultRole) {
		return errors.New("account default role must be an uppercase role name")
	}
	if c.PasswordReset.TTL <= 0 {
		return errors.New("password reset ttl must be > 0")
	}

	if c.Cache.TTL <= 0 {
		return errors.New("cache ttl must be > 0")
	}
	if strings.TrimSpace(c.Cache.Prefix) == "" {
		return errors.New("cache prefix must be set")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be > 0")
	}
	if c.Delivery.BufferSize <= 0 {
		return errors.New("delivery buffer size must be > 0")
	}
	if c.Delivery.SendTimeout <= 0 {
		return errors.New("delivery send timeout must be > 0")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("latency histograms require metrics to be enabled")
	}
	return nil
}
