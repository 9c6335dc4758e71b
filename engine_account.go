package goIdentity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MrEthical07/goIdentity/password"
	"go.uber.org/zap"
)

// GetUser returns the stored account, including soft-deleted ones.
func (e *Engine) GetUser(ctx context.Context, userID string) (*User, error) {
	return e.loadUser(ctx, "get user", userID)
}

// UpdateProfile applies the non-nil fields of upd. Changing the email resets
// its verified flag and sends a verification code to the new address.
// Disabled accounts get ErrAccountDisabled.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*User, error) {
	in := profileInput{
		FirstName: trimmed(upd.FirstName),
		LastName:  trimmed(upd.LastName),
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		in.Email = &email
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	current, err := e.loadUser(ctx, "update profile", userID)
	if err != nil {
		return nil, err
	}
	if current.Deleted() {
		return nil, ErrUserNotFound
	}
	if !current.Usable() {
		return nil, ErrAccountDisabled
	}

	update := UserUpdate{FirstName: in.FirstName, LastName: in.LastName}
	if in.Email != nil && *in.Email != current.Email {
		if *in.Email == "" {
			return nil, &ValidationError{Fields: map[string]string{"email": "is required"}}
		}
		if err := e.ensureIdentifiersFree(ctx, *in.Email, "", userID); err != nil {
			return nil, err
		}
		update.Email = in.Email
		update.EmailVerified = boolPtr(false)
	}

	updated, err := e.store.UpdateUser(ctx, userID, update)
	if err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, ErrRecordConflict):
			return nil, ErrDuplicateEmail
		}
		return nil, e.internalError("update profile", err, zap.String("user_id", userID))
	}

	e.emitAudit(ctx, auditEventProfileUpdated, true, userID, nil, func() map[string]string {
		return map[string]string{"email_changed": strconv.FormatBool(update.Email != nil)}
	})
	if update.Email != nil {
		if err := e.sendVerificationCode(ctx, userID); err != nil {
			e.logger.Warn("verification code for changed email not issued",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		if fresh, err := e.store.FindUserByID(ctx, userID); err == nil {
			updated = fresh
		}
	}
	return updated, nil
}

// ChangePassword replaces the password after checking the current one and
// revokes the refresh token, so other sessions must log in again.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := checkInput(passwordInput{Password: newPassword}); err != nil {
		return err
	}

	u, err := e.loadUser(ctx, "change password", userID)
	if err != nil {
		return err
	}
	if !u.Usable() {
		return ErrAccountDisabled
	}
	if u.PasswordHash == "" {
		return ErrPasswordNotSet
	}

	ok, err := e.hasher.Verify(oldPassword, u.PasswordHash)
	if err != nil && !errors.Is(err, password.ErrPasswordTooLong) {
		return e.internalError("verify password", err, zap.String("user_id", userID))
	}
	if !ok {
		e.emitAudit(ctx, auditEventPasswordChange, false, userID, ErrPasswordIncorrect, nil)
		return ErrPasswordIncorrect
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return &ValidationError{Fields: map[string]string{"password": "is too long"}}
		}
		return e.internalError("hash password", err, zap.String("user_id", userID))
	}

	if _, err := e.updateUser(ctx, "change password", userID, UserUpdate{
		PasswordHash:      &hash,
		ClearRefreshToken: true,
		ClearReset:        true,
	}, ErrUserNotFound); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, userID, nil, nil)
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
