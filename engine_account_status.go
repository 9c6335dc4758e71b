package goIdentity

import (
	"context"
	"strconv"
)

// SetAccountStatus activates or deactivates an account. Deactivation also
// revokes the refresh token. Soft-deleted accounts cannot be reactivated.
func (e *Engine) SetAccountStatus(ctx context.Context, userID string, active bool) error {
	err := e.setAccountStatus(ctx, userID, active)
	if err == nil && !active {
		e.metricInc(MetricAccountDisabled)
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, err, func() map[string]string {
		return map[string]string{"active": strconv.FormatBool(active)}
	})
	return err
}

func (e *Engine) setAccountStatus(ctx context.Context, userID string, active bool) error {
	current, err := e.loadUser(ctx, "set account status", userID)
	if err != nil {
		return err
	}
	if current.Deleted() {
		return ErrAccountDisabled
	}
	if current.Active == active {
		return nil
	}

	upd := UserUpdate{Active: &active}
	if !active {
		upd.ClearRefreshToken = true
	}
	_, err = e.updateUser(ctx, "set account status", userID, upd, ErrUserNotFound)
	return err
}

// SoftDeleteAccount marks the account deleted and inactive and drops every
// outstanding credential: refresh token, pending code and reset token. The
// row and its identifiers are kept.
func (e *Engine) SoftDeleteAccount(ctx context.Context, userID string) error {
	err := e.softDelete(ctx, userID)
	if err == nil {
		e.metricInc(MetricAccountDeleted)
	}
	e.emitAudit(ctx, auditEventAccountDeleted, err == nil, userID, err, nil)
	return err
}

func (e *Engine) softDelete(ctx context.Context, userID string) error {
	current, err := e.loadUser(ctx, "soft delete account", userID)
	if err != nil {
		return err
	}
	if current.Deleted() {
		return nil
	}

	now := e.now().UTC()
	if _, err := e.updateUser(ctx, "soft delete account", userID, UserUpdate{
		DeletedAt:         &now,
		Active:            boolPtr(false),
		ClearRefreshToken: true,
		ClearOTP:          true,
		ClearReset:        true,
	}, ErrUserNotFound); err != nil {
		return err
	}
	e.invalidateUserAuthz(ctx, userID)
	return nil
}
