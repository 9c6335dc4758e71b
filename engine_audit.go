package goIdentity

import (
	"context"
	"errors"

	"github.com/MrEthical07/goIdentity/internal/audit"
)

const (
	auditEventRegisterSuccess        = "register_success"
	auditEventRegisterFailure        = "register_failure"
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventLoginTwoFactorRequired = "login_two_factor_required"
	auditEventRefreshSuccess         = "refresh_success"
	auditEventRefreshInvalid         = "refresh_invalid"
	auditEventLogout                 = "logout"
	auditEventOTPIssued              = "otp_issued"
	auditEventOTPVerified            = "otp_verified"
	auditEventOTPFailure             = "otp_failure"
	auditEventTwoFactorSetup         = "two_factor_setup_requested"
	auditEventTwoFactorEnabled       = "two_factor_enabled"
	auditEventTwoFactorDisabled      = "two_factor_disabled"
	auditEventTwoFactorSuccess       = "two_factor_success"
	auditEventTwoFactorFailure       = "two_factor_failure"
	auditEventFederatedLogin         = "federated_login"
	auditEventFederatedFailure       = "federated_failure"
	auditEventPasswordChange         = "password_change"
	auditEventPasswordResetRequest   = "password_reset_request"
	auditEventPasswordResetConfirm   = "password_reset_confirm"
	auditEventAccountStatusChange    = "account_status_change"
	auditEventAccountDeleted         = "account_deleted"
	auditEventProfileUpdated         = "profile_updated"
	auditEventRoleChange             = "role_change"
	auditEventPermissionChange       = "permission_change"
	auditEventGrantChange            = "grant_change"
)

// AuditErrorCode is the stable error label recorded on failed events.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrExpired            AuditErrorCode = "expired"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTwoFactorInvalid   AuditErrorCode = "two_factor_invalid"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrInternal           AuditErrorCode = "internal_error"
	auditErrUnknown            AuditErrorCode = "unknown"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrAccountUnverified):
		return auditErrAccountUnverified
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidRefreshToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrInvalidTwoFactorCode):
		return auditErrTwoFactorInvalid
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrDuplicateResource):
		return auditErrDuplicate
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrExpired):
		return auditErrExpired
	case errors.Is(err, ErrInvalidCredential):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrInternal):
		return auditErrInternal
	default:
		return auditErrUnknown
	}
}
