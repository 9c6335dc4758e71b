package goIdentity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/MrEthical07/goIdentity/internal/delivery"
	"github.com/MrEthical07/goIdentity/internal/stores"
	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/MrEthical07/goIdentity/totp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config    Config
	store     Store
	notifier  NotificationSender
	redis     redis.UniversalClient
	logger    *zap.Logger
	auditSink AuditSink
	verifiers map[string]IdentityVerifier
	clock     func() time.Time

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config:    DefaultConfig(),
		verifiers: map[string]IdentityVerifier{},
	}
}

// WithConfig replaces the whole configuration. The config is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the user, role and permission repository. Required.
func (b *Builder) WithStore(store Store) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the sender used for verification and reset codes.
// Without one, codes are generated and stored but never delivered.
func (b *Builder) WithNotifier(sender NotificationSender) *Builder {
	b.notifier = sender
	return b
}

// WithRedis enables the authorization cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger for infrastructure failures. Default is a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. It has no effect unless
// Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithIdentityVerifier registers the verifier used by LoginWithProvider for
// method. Registering the same method twice replaces the earlier verifier.
func (b *Builder) WithIdentityVerifier(method string, verifier IdentityVerifier) *Builder {
	method = strings.ToLower(strings.TrimSpace(method))
	if method != "" && verifier != nil {
		b.verifiers[method] = verifier
	}
	return b
}

// WithClock overrides time.Now for token issuing, code expiry and audit
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and wires every component.
//
// Build returns an error for an invalid Config, a missing Store, or when the
// Builder was already used.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("store is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cfg := b.config
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}

	method := jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod))
	tokens, err := jwt.NewTokenService(
		jwt.Config{
			TTL:           cfg.JWT.AccessTTL,
			SigningMethod: method,
			PrivateKey:    cfg.JWT.AccessSecret,
			PublicKey:     cfg.JWT.AccessPublicKey,
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			KeyID:         cfg.JWT.KeyID,
			VerifyKeys:    cfg.JWT.VerifyKeys,
			Now:           clock,
		},
		jwt.Config{
			TTL:           cfg.JWT.RefreshTTL,
			SigningMethod: method,
			PrivateKey:    cfg.JWT.RefreshSecret,
			PublicKey:     cfg.JWT.RefreshPublicKey,
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			Now:           clock,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("jwt config: %w", err)
	}

	authenticator, err := totp.New(totp.Config{
		Issuer:     cfg.TOTP.Issuer,
		Period:     cfg.TOTP.Period,
		Digits:     cfg.TOTP.Digits,
		Skew:       cfg.TOTP.Skew,
		SecretSize: 20,
		QRSize:     cfg.TOTP.QRSize,
	})
	if err != nil {
		return nil, fmt.Errorf("totp config: %w", err)
	}

	e := &Engine{
		config:    cfg,
		store:     b.store,
		tokens:    tokens,
		hasher:    hasher,
		totp:      authenticator,
		verifiers: make(map[string]IdentityVerifier, len(b.verifiers)),
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		clock:     clock,
	}
	for method, v := range b.verifiers {
		e.verifiers[method] = v
	}

	if b.redis != nil {
		e.cache = stores.NewPermissionCache(b.redis, cfg.Cache.Prefix, cfg.Cache.TTL)
	}

	if cfg.Audit.Enabled {
		e.audit = audit.NewDispatcher(audit.Config{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink, logger)
	}

	if b.notifier != nil {
		sender := b.notifier
		e.delivery = delivery.NewDispatcher(delivery.Config{
			BufferSize:  cfg.Delivery.BufferSize,
			SendTimeout: cfg.Delivery.SendTimeout,
		}, delivery.SenderFunc(func(ctx context.Context, msg delivery.Message) error {
			return sender.SendCode(ctx, Notification{
				Channel: Channel(msg.Channel),
				Address: msg.Address,
				Code:    msg.Code,
				Purpose: Purpose(msg.Purpose),
				UserID:  msg.UserID,
			})
		}), logger)
	}

	b.built = true
	return e, nil
}
