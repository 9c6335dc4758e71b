package goIdentity

import (
	"errors"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrMissingIdentifier, ErrValidation},
		{ErrDuplicateEmail, ErrDuplicateResource},
		{ErrInvalidCredentials, ErrInvalidCredential},
		{ErrAccountDisabled, ErrForbidden},
		{ErrOTPNotFound, ErrNotFound},
		{ErrOTPExpired, ErrExpired},
		{ErrOTPMismatch, ErrInvalidCredential},
		{ErrAlreadyVerified, ErrConflict},
		{ErrPermissionDenied, ErrForbidden},
		{ErrSystemRole, ErrConflict},
		{ErrResetTokenInvalid, ErrExpired},
		{ErrEngineNotReady, ErrInternal},
	}
	kinds := []error{ErrValidation, ErrDuplicateResource, ErrNotFound, ErrExpired,
		ErrInvalidCredential, ErrForbidden, ErrConflict, ErrInternal}

	for _, tc := range tests {
		if !errors.Is(tc.err, tc.kind) {
			t.Fatalf("%v: expected kind %v", tc.err, tc.kind)
		}
		for _, k := range kinds {
			if k != tc.kind && errors.Is(tc.err, k) {
				t.Fatalf("%v: unexpectedly matches kind %v", tc.err, k)
			}
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"password": "is too weak",
		"email":    "must be a valid email",
	}}
	want := "field 'email' must be a valid email; field 'password' is too weak"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected ValidationError to unwrap to ErrValidation")
	}
}

func TestAuditErrorCode(t *testing.T) {
	if auditErrorCode(nil) != "" {
		t.Fatal("expected empty code for nil")
	}
	if got := auditErrorCode(ErrAccountDisabled); got != auditErrAccountDisabled {
		t.Fatalf("got %q", got)
	}
	if got := auditErrorCode(ErrOTPMismatch); got != auditErrInvalidCredentials {
		t.Fatalf("got %q", got)
	}
	if got := auditErrorCode(errors.New("other")); got != auditErrUnknown {
		t.Fatalf("got %q", got)
	}
}
