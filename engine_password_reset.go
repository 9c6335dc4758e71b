package goIdentity

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goIdentity/internal"
	"github.com/MrEthical07/goIdentity/password"
	"go.uber.org/zap"
)

// InitiatePasswordReset stores a fresh reset token for the account with the
// given email and sends it with purpose password_reset. The token is also
// returned to the caller.
//
// Unknown, inactive and deleted accounts get ("", nil): the response does
// not reveal whether the email is registered.
func (e *Engine) InitiatePasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := checkInput(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return "", err
	}

	e.metricInc(MetricPasswordResetRequest)
	u, err := e.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", ErrUserNotFound, nil)
			return "", nil
		}
		return "", e.internalError("find user for password reset", err)
	}
	if !u.Usable() {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, u.ID, ErrAccountDisabled, nil)
		return "", nil
	}

	token, err := internal.NewResetToken()
	if err != nil {
		return "", e.internalError("generate reset token", err, zap.String("user_id", u.ID))
	}
	hash := internal.HashToken(token)
	expiresAt := e.now().Add(e.config.PasswordReset.TTL)
	if _, err := e.updateUser(ctx, "store reset token", u.ID, UserUpdate{
		ResetTokenHash: &hash,
		ResetExpiresAt: &expiresAt,
	}, ErrUserNotFound); err != nil {
		return "", err
	}

	e.enqueueCode(Notification{
		Channel: ChannelEmail,
		Address: u.Email,
		Code:    token,
		Purpose: PurposePasswordReset,
		UserID:  u.ID,
	})
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, u.ID, nil, nil)
	return token, nil
}

// ResetPassword sets a new password using a token from
// InitiatePasswordReset. The token is single use. Unknown and expired tokens
// fail with ErrResetTokenInvalid. The refresh token is revoked.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	err := e.resetPassword(ctx, token, newPassword)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", err, nil)
		return err
	}
	e.metricInc(MetricPasswordResetSuccess)
	return nil
}

func (e *Engine) resetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrResetTokenInvalid
	}
	if err := checkInput(passwordInput{Password: newPassword}); err != nil {
		return err
	}

	hash := internal.HashToken(token)
	u, err := e.store.FindUserByResetToken(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrResetTokenInvalid
		}
		return e.internalError("find user by reset token", err)
	}
	if u.ResetExpiresAt.IsZero() || e.now().After(u.ResetExpiresAt) || u.Deleted() {
		return ErrResetTokenInvalid
	}

	passwordHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return &ValidationError{Fields: map[string]string{"password": "is too long"}}
		}
		return e.internalError("hash password", err, zap.String("user_id", u.ID))
	}

	_, err = e.store.UpdateUser(ctx, u.ID, UserUpdate{
		PasswordHash:         &passwordHash,
		ClearReset:           true,
		ClearRefreshToken:    true,
		ExpectResetTokenHash: &hash,
	})
	if err != nil {
		if errors.Is(err, ErrRecordStale) || errors.Is(err, ErrRecordNotFound) {
			return ErrResetTokenInvalid
		}
		return e.internalError("reset password", err, zap.String("user_id", u.ID))
	}

	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, u.ID, nil, nil)
	return nil
}
