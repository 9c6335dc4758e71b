package goIdentity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goIdentity/internal"
	"github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/MrEthical07/goIdentity/internal/delivery"
	"github.com/MrEthical07/goIdentity/internal/flows"
	"github.com/MrEthical07/goIdentity/internal/stores"
	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/MrEthical07/goIdentity/totp"
	"go.uber.org/zap"
)

// Engine authenticates users, issues and rotates session tokens, verifies
// one-time and second-factor codes, and answers authorization checks.
//
// An Engine is safe for concurrent use. Call Close on shutdown to flush
// pending notifications and audit events.
type Engine struct {
	config Config
	store  Store

	tokens *jwt.TokenService
	hasher *password.Hasher
	totp   *totp.Authenticator
	cache  *stores.PermissionCache

	verifiers map[string]IdentityVerifier

	logger   *zap.Logger
	audit    *audit.Dispatcher
	delivery *delivery.Dispatcher
	metrics  *Metrics
	clock    func() time.Time
}

// Close drains the notification and audit dispatchers. The Engine must not
// be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.delivery.Close()
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// DeliveryDropped returns the number of notifications dropped because the
// delivery queue was full.
func (e *Engine) DeliveryDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.delivery.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return e.clock()
}

// internalError logs the cause of an infrastructure failure and returns the
// opaque ErrInternal.
func (e *Engine) internalError(op string, err error, fields ...zap.Field) error {
	e.metricInc(MetricInternalError)
	e.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	return ErrInternal
}

// loadUser maps a store lookup to ErrUserNotFound or ErrInternal.
func (e *Engine) loadUser(ctx context.Context, op, userID string) (*User, error) {
	u, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, e.internalError(op, err, zap.String("user_id", userID))
	}
	return u, nil
}

// updateUser applies upd and maps store errors. notFound is returned for a
// missing row and ErrInternal for anything else.
func (e *Engine) updateUser(ctx context.Context, op, userID string, upd UserUpdate, notFound error) (*User, error) {
	u, err := e.store.UpdateUser(ctx, userID, upd)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, e.internalError(op, err, zap.String("user_id", userID))
	}
	return u, nil
}

// findByIdentifier resolves an email (contains "@") or a phone number.
func (e *Engine) findByIdentifier(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return e.store.FindUserByEmail(ctx, strings.ToLower(identifier))
	}
	return e.store.FindUserByPhone(ctx, identifier)
}

func toAccount(u *User) flows.Account {
	if u == nil {
		return flows.Account{}
	}
	return flows.Account{
		UserID:           u.ID,
		Email:            u.Email,
		Phone:            u.Phone,
		PasswordHash:     u.PasswordHash,
		Active:           u.Active,
		Deleted:          u.Deleted(),
		Verified:         u.Verified(),
		EmailVerified:    u.EmailVerified,
		PhoneVerified:    u.PhoneVerified,
		Provider:         u.Provider,
		ProviderID:       u.ProviderID,
		TwoFactorEnabled: u.TwoFactorEnabled,
		TwoFactorSecret:  u.TwoFactorSecret,
		RefreshTokenHash: u.RefreshTokenHash,
		OTPCode:          u.OTPCode,
		OTPExpiresAt:     u.OTPExpiresAt,
	}
}

// accountLoader adapts FindUserByID to the flows, remembering the last user
// it returned so the caller can build a response without a second read.
type accountLoader struct {
	store CredentialStore
	last  *User
}

func (l *accountLoader) load(ctx context.Context, userID string) (flows.Account, error) {
	u, err := l.store.FindUserByID(ctx, userID)
	if err != nil {
		return flows.Account{}, err
	}
	l.last = u
	return toAccount(u), nil
}

func (e *Engine) sessionDeps() flows.SessionDeps {
	return flows.SessionDeps{
		ListRoles: e.userRoles,
		IssuePair: func(userID, email string, roles []string) (string, string, error) {
			var emailClaim *string
			if email != "" {
				emailClaim = &email
			}
			return e.tokens.Issue(userID, emailClaim, roles)
		},
		HashToken: internal.HashToken,
	}
}

// enqueueCode hands a code to the delivery dispatcher. Delivery never fails
// the caller.
func (e *Engine) enqueueCode(n Notification) {
	if e.delivery == nil {
		e.logger.Debug("no notifier configured, code not delivered",
			zap.String("user_id", n.UserID),
			zap.String("purpose", string(n.Purpose)),
		)
		return
	}
	if !e.delivery.Enqueue(delivery.Message{
		Channel: string(n.Channel),
		Address: n.Address,
		Code:    n.Code,
		Purpose: string(n.Purpose),
		UserID:  n.UserID,
	}) {
		e.metricInc(MetricDeliveryDropped)
	}
}

func boolPtr(b bool) *bool { return &b }

func stringPtr(s string) *string { return &s }
