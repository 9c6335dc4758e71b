package goIdentity

import (
	"errors"
	"sort"
	"strings"
)

// Error kinds. Every specific error returned by the Engine unwraps to exactly
// one of these, so callers can branch on the class of failure with errors.Is.
var (
	// ErrValidation marks malformed input. No state was changed.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateResource marks an email, phone, role or permission name collision.
	ErrDuplicateResource = errors.New("duplicate resource")
	// ErrNotFound marks a missing user, role, permission or pending code.
	ErrNotFound = errors.New("not found")
	// ErrExpired marks a code or token past its validity window.
	ErrExpired = errors.New("expired")
	// ErrInvalidCredential marks a password, token or second-factor mismatch.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrForbidden marks an authenticated caller lacking a role or permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks an operation rejected by the current state of a resource.
	ErrConflict = errors.New("conflict")
	// ErrInternal is returned for store and infrastructure failures. The cause is logged, never returned.
	ErrInternal = errors.New("internal error")
)

// Store contract errors. Store implementations return these so the Engine can
// classify results without knowing the storage engine.
var (
	// ErrRecordNotFound is returned by a store when no row matches.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordConflict is returned by a store when a unique constraint rejects a write.
	ErrRecordConflict = errors.New("record conflict")
	// ErrRecordStale is returned by a store when an Expect* guard of a UserUpdate does not hold.
	ErrRecordStale = errors.New("record changed concurrently")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	// ErrMissingIdentifier is returned by Register when neither email nor phone is provided.
	ErrMissingIdentifier = newError(ErrValidation, "email or phone number is required")
	// ErrDuplicateEmail is returned when the email already belongs to another account.
	ErrDuplicateEmail = newError(ErrDuplicateResource, "email already exists")
	// ErrDuplicatePhone is returned when the phone number already belongs to another account.
	ErrDuplicatePhone = newError(ErrDuplicateResource, "phone number already exists")
	// ErrInvalidCredentials is returned by Login for an unknown identifier, a federated-only account or a wrong password.
	ErrInvalidCredentials = newError(ErrInvalidCredential, "invalid credentials")
	// ErrAccountDisabled is returned when the account is inactive or soft-deleted.
	ErrAccountDisabled = newError(ErrForbidden, "account is disabled")
	// ErrAccountUnverified is returned by Login when Account.RequireVerified is set and no channel is verified.
	ErrAccountUnverified = newError(ErrForbidden, "account is not verified")
	// ErrUserNotFound is returned when an operation addresses an unknown user.
	ErrUserNotFound = newError(ErrNotFound, "user not found")

	// ErrInvalidToken is returned when a token signature, algorithm, issuer or expiry check fails.
	ErrInvalidToken = newError(ErrInvalidCredential, "invalid token")
	// ErrInvalidRefreshToken is returned by Refresh for every failure of the refresh path.
	ErrInvalidRefreshToken = newError(ErrInvalidCredential, "invalid refresh token")

	// ErrOTPNotFound is returned when no verification code is pending.
	ErrOTPNotFound = newError(ErrNotFound, "invalid verification attempt")
	// ErrOTPExpired is returned when the pending verification code has expired.
	ErrOTPExpired = newError(ErrExpired, "verification code expired")
	// ErrOTPMismatch is returned when the presented verification code differs from the pending one.
	ErrOTPMismatch = newError(ErrInvalidCredential, "invalid verification code")
	// ErrAlreadyVerified is returned by ResendOTP when no contact channel awaits verification.
	ErrAlreadyVerified = newError(ErrConflict, "account is already verified")
	// ErrNoDeliveryChannel is returned when a code cannot be sent because the user has neither email nor phone.
	ErrNoDeliveryChannel = newError(ErrValidation, "user has no email or phone number")

	// ErrTwoFactorAlreadyEnabled is returned by GenerateTwoFactorSecret for an enrolled account.
	ErrTwoFactorAlreadyEnabled = newError(ErrConflict, "two-factor authentication is already enabled")
	// ErrTwoFactorNotInitialized is returned by EnableTwoFactor before a secret was issued.
	ErrTwoFactorNotInitialized = newError(ErrNotFound, "invalid user or two-factor authentication not initialized")
	// ErrTwoFactorNotEnabled is returned by VerifyTwoFactor and DisableTwoFactor for an unenrolled account.
	ErrTwoFactorNotEnabled = newError(ErrConflict, "two-factor authentication is not enabled")
	// ErrInvalidTwoFactorCode is returned when a TOTP code does not validate.
	ErrInvalidTwoFactorCode = newError(ErrInvalidCredential, "invalid two-factor code")

	// ErrUnknownProvider is returned by LoginWithProvider for a method with no registered verifier.
	ErrUnknownProvider = newError(ErrValidation, "unknown identity provider")
	// ErrFederatedIdentityInvalid is returned when a verifier rejects the presented credential.
	ErrFederatedIdentityInvalid = newError(ErrInvalidCredential, "federated identity rejected")

	// ErrPermissionDenied is returned by Authorize when the principal lacks the permission.
	ErrPermissionDenied = newError(ErrForbidden, "permission denied")

	// ErrRoleNotFound is returned when a role id or name does not exist.
	ErrRoleNotFound = newError(ErrNotFound, "role not found")
	// ErrDuplicateRole is returned when a role name is already taken.
	ErrDuplicateRole = newError(ErrDuplicateResource, "role name already exists")
	// ErrSystemRole is returned when deleting or renaming ADMIN or USER.
	ErrSystemRole = newError(ErrConflict, "system roles cannot be renamed or deleted")
	// ErrRoleInUse is returned when deleting a role that is still assigned to users.
	ErrRoleInUse = newError(ErrConflict, "role is assigned to users")
	// ErrPermissionNotFound is returned when a permission id or name does not exist.
	ErrPermissionNotFound = newError(ErrNotFound, "permission not found")
	// ErrDuplicatePermission is returned when a permission name is already taken.
	ErrDuplicatePermission = newError(ErrDuplicateResource, "permission name already exists")
	// ErrPermissionInUse is returned when deleting a permission still granted to roles or users.
	ErrPermissionInUse = newError(ErrConflict, "permission is in use")

	// ErrPasswordNotSet is returned by ChangePassword for federated-only accounts.
	ErrPasswordNotSet = newError(ErrConflict, "account has no password")
	// ErrPasswordIncorrect is returned by ChangePassword when the current password does not match.
	ErrPasswordIncorrect = newError(ErrInvalidCredential, "current password is incorrect")
	// ErrResetTokenInvalid is returned by ResetPassword for an unknown or expired token.
	ErrResetTokenInvalid = newError(ErrExpired, "invalid or expired reset token")

	// ErrEngineNotReady is returned when a required dependency is missing.
	ErrEngineNotReady = newError(ErrInternal, "engine not initialized")
)

// ValidationError reports per-field input problems. It unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, "field '"+k+"' "+e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
