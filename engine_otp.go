package goIdentity

import (
	"context"
	"time"

	"github.com/MrEthical07/goIdentity/internal"
	"github.com/MrEthical07/goIdentity/internal/flows"
	"go.uber.org/zap"
)

// ResendOTP replaces the pending verification code and sends the new one to
// the first unverified channel, email before phone. It returns
// ErrAlreadyVerified when every populated channel is verified. Delivery
// happens in the background.
func (e *Engine) ResendOTP(ctx context.Context, userID string) error {
	return e.sendVerificationCode(ctx, userID)
}

func (e *Engine) sendVerificationCode(ctx context.Context, userID string) error {
	deps := flows.OTPIssueDeps{
		Now:         e.now,
		TTL:         e.config.OTP.TTL,
		LoadAccount: (&accountLoader{store: e.store}).load,
		NotFound:    ErrRecordNotFound,
		NewCode:     internal.NewOTPCode,
		Store: func(ctx context.Context, userID, code string, expiresAt time.Time) error {
			_, err := e.store.UpdateUser(ctx, userID, UserUpdate{
				OTPCode:      &code,
				OTPExpiresAt: &expiresAt,
			})
			return err
		},
	}

	res := flows.RunIssueOTP(ctx, userID, deps)
	switch res.Failure {
	case flows.OTPFailureNone:
	case flows.OTPFailureAccountMissing:
		return ErrUserNotFound
	case flows.OTPFailureDeleted:
		return ErrAccountDisabled
	case flows.OTPFailureAlreadyVerified:
		return ErrAlreadyVerified
	case flows.OTPFailureNoChannel:
		return ErrNoDeliveryChannel
	default:
		return e.internalError("issue verification code", res.Err, zap.String("user_id", userID))
	}

	e.enqueueCode(Notification{
		Channel: Channel(res.Channel),
		Address: res.Address,
		Code:    res.Code,
		Purpose: PurposeVerification,
		UserID:  userID,
	})
	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, userID, nil, func() map[string]string {
		return map[string]string{"channel": res.Channel}
	})
	return nil
}

// VerifyOTP consumes the pending verification code. The first successful
// verification activates the account and marks every populated contact
// channel verified. Later codes, issued after an address change, only mark
// that channel verified, so a disabled account stays disabled.
//
// VerifyOTP returns ErrOTPNotFound when no code is pending (including a code
// already consumed), ErrOTPExpired after the expiry instant, and
// ErrOTPMismatch for a wrong code. Failed attempts leave the code pending.
func (e *Engine) VerifyOTP(ctx context.Context, userID, code string) error {
	deps := flows.OTPVerifyDeps{
		Now:         e.now,
		LoadAccount: (&accountLoader{store: e.store}).load,
		NotFound:    ErrRecordNotFound,
		Stale:       ErrRecordStale,
		Consume: func(ctx context.Context, acct flows.Account, code string, grant flows.OTPGrant) error {
			upd := UserUpdate{
				ClearOTP:      true,
				ExpectOTPCode: &code,
			}
			if grant.Activate {
				upd.Active = boolPtr(true)
			}
			if grant.Email {
				upd.EmailVerified = boolPtr(true)
			}
			if grant.Phone {
				upd.PhoneVerified = boolPtr(true)
			}
			_, err := e.store.UpdateUser(ctx, acct.UserID, upd)
			return err
		},
	}

	res := flows.RunVerifyOTP(ctx, userID, code, deps)
	var err error
	switch res.Failure {
	case flows.OTPFailureNone:
	case flows.OTPFailureNoPending:
		err = ErrOTPNotFound
	case flows.OTPFailureExpired:
		err = ErrOTPExpired
	case flows.OTPFailureMismatch:
		err = ErrOTPMismatch
	case flows.OTPFailureDeleted:
		err = ErrAccountDisabled
	default:
		err = e.internalError("verify code", res.Err, zap.String("user_id", userID))
	}
	if err != nil {
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPFailure, false, userID, err, nil)
		return err
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerified, true, userID, nil, nil)
	return nil
}
