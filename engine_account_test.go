package goIdentity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
)

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.activeUser(t, "profile@example.com")
	h.activeUser(t, "other@example.com")

	first, email := "Paula", "NEW@example.com"
	u, err := h.engine.UpdateProfile(ctx, userID, goIdentity.ProfileUpdate{FirstName: &first, Email: &email})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.FirstName != "Paula" || u.Email != "new@example.com" || u.EmailVerified {
		t.Fatalf("unexpected profile %+v", u)
	}

	taken := "other@example.com"
	if _, err := h.engine.UpdateProfile(ctx, userID, goIdentity.ProfileUpdate{Email: &taken}); !errors.Is(err, goIdentity.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	short := "P"
	if _, err := h.engine.UpdateProfile(ctx, userID, goIdentity.ProfileUpdate{FirstName: &short}); !errors.Is(err, goIdentity.ErrValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.activeUser(t, "change@example.com")
	pair := h.login(t, "change@example.com")

	if err := h.engine.ChangePassword(ctx, userID, "Wr0ng!password", "N3w!password"); !errors.Is(err, goIdentity.ErrPasswordIncorrect) {
		t.Fatalf("expected ErrPasswordIncorrect, got %v", err)
	}
	if err := h.engine.ChangePassword(ctx, userID, testPassword, "weak"); !errors.Is(err, goIdentity.ErrValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if err := h.engine.ChangePassword(ctx, userID, testPassword, "N3w!password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := h.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, goIdentity.ErrInvalidRefreshToken) {
		t.Fatalf("expected sessions to be revoked, got %v", err)
	}
	if _, err := h.engine.Login(ctx, "change@example.com", "N3w!password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestChangePasswordFederatedAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.engine.LinkFederatedIdentity(ctx, goIdentity.FederatedProfile{
		Provider: "google", ProviderID: "p-1", Email: "nopass@example.com",
	})
	if err != nil {
		t.Fatalf("LinkFederatedIdentity: %v", err)
	}
	if err := h.engine.ChangePassword(ctx, res.UserID, testPassword, "N3w!password"); !errors.Is(err, goIdentity.ErrPasswordNotSet) {
		t.Fatalf("expected ErrPasswordNotSet, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.activeUser(t, "reset@example.com")
	h.sender.next(t)
	pair := h.login(t, "reset@example.com")

	token, err := h.engine.InitiatePasswordReset(ctx, "RESET@example.com")
	if err != nil || token == "" {
		t.Fatalf("InitiatePasswordReset: %q %v", token, err)
	}
	n := h.sender.next(t)
	if n.Purpose != goIdentity.PurposePasswordReset || n.Code != token || n.UserID != userID {
		t.Fatalf("unexpected notification %+v", n)
	}
	if h.user(t, userID).ResetTokenHash == token {
		t.Fatal("reset token must be stored hashed")
	}

	if err := h.engine.ResetPassword(ctx, token, "R3set!password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if err := h.engine.ResetPassword(ctx, token, "Again!passw0rd"); !errors.Is(err, goIdentity.ErrResetTokenInvalid) {
		t.Fatalf("expected a used token to fail, got %v", err)
	}
	if _, err := h.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, goIdentity.ErrInvalidRefreshToken) {
		t.Fatalf("expected the reset to revoke sessions, got %v", err)
	}
	if _, err := h.engine.Login(ctx, "reset@example.com", "R3set!password"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestPasswordResetExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.activeUser(t, "expire@example.com")

	token, err := h.engine.InitiatePasswordReset(ctx, "expire@example.com")
	if err != nil {
		t.Fatalf("InitiatePasswordReset: %v", err)
	}
	h.clock.Advance(time.Hour + time.Second)
	if err := h.engine.ResetPassword(ctx, token, "R3set!password"); !errors.Is(err, goIdentity.ErrResetTokenInvalid) {
		t.Fatalf("expected an expired token to fail, got %v", err)
	}
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	h := newHarness(t)
	token, err := h.engine.InitiatePasswordReset(context.Background(), "ghost@example.com")
	if err != nil || token != "" {
		t.Fatalf("expected a silent no-op, got %q %v", token, err)
	}
	if err := h.engine.ResetPassword(context.Background(), "bogus", "R3set!password"); !errors.Is(err, goIdentity.ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestSetAccountStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.activeUser(t, "status@example.com")
	pair := h.login(t, "status@example.com")

	if err := h.engine.SetAccountStatus(ctx, userID, false); err != nil {
		t.Fatalf("SetAccountStatus: %v", err)
	}
	if _, err := h.engine.Login(ctx, "status@example.com", testPassword); !errors.Is(err, goIdentity.ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if _, err := h.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, goIdentity.ErrInvalidRefreshToken) {
		t.Fatalf("expected deactivation to revoke the refresh token, got %v", err)
	}

	if err := h.engine.SetAccountStatus(ctx, userID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	h.login(t, "status@example.com")
}

func TestSoftDeleteAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.activeUser(t, "gone@example.com")

	if err := h.engine.SoftDeleteAccount(ctx, userID); err != nil {
		t.Fatalf("SoftDeleteAccount: %v", err)
	}
	if err := h.engine.SoftDeleteAccount(ctx, userID); err != nil {
		t.Fatalf("second SoftDeleteAccount: %v", err)
	}

	u, err := h.engine.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !u.Deleted() || u.Active {
		t.Fatal("expected a deleted inactive account")
	}
	if _, err := h.engine.Login(ctx, "gone@example.com", testPassword); !errors.Is(err, goIdentity.ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if err := h.engine.SetAccountStatus(ctx, userID, true); !errors.Is(err, goIdentity.ErrAccountDisabled) {
		t.Fatalf("expected a deleted account to stay disabled, got %v", err)
	}
	if _, err := h.engine.Register(ctx, goIdentity.RegisterRequest{Email: "gone@example.com", Password: testPassword}); !errors.Is(err, goIdentity.ErrDuplicateEmail) {
		t.Fatalf("expected the email to stay reserved, got %v", err)
	}
}
