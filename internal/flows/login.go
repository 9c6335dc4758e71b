package flows

import (
	"context"
	"errors"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureLookup
	LoginFailureUnknownAccount
	LoginFailureNoPassword
	LoginFailurePasswordMismatch
	LoginFailureHash
	LoginFailureDisabled
	LoginFailureUnverified
	LoginFailureRoles
	LoginFailureIssue
	LoginFailurePersist
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Failure           LoginFailureKind
	Err               error
	UserID            string
	RequiresTwoFactor bool
	AccessToken       string
	RefreshToken      string

	// PasswordUpgraded is set when the stored hash was replaced.
	PasswordUpgraded bool
	// UpgradeErr is a non-fatal failure to re-hash the password.
	UpgradeErr error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	RequireVerified bool
	UpgradeHashes   bool

	FindAccount    func(ctx context.Context, identifier string) (Account, error)
	NotFound       error
	VerifyPassword func(password, hash string) (bool, error)
	NeedsRehash    func(hash string) bool
	HashPassword   func(password string) (string, error)

	Session SessionDeps
	// PersistLogin writes the refresh hash and the replacement password hash
	// in one update. Empty arguments leave their column unchanged.
	PersistLogin func(ctx context.Context, userID, refreshHash, passwordHash string) error
}

// RunLogin checks credentials and either issues a session or reports that a
// second factor is required. Unknown account, missing hash and mismatch are
// distinct kinds here; the caller collapses them into one public error.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) LoginResult {
	acct, err := deps.FindAccount(ctx, identifier)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return LoginResult{Failure: LoginFailureUnknownAccount, Err: err}
		}
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}
	if acct.PasswordHash == "" {
		return LoginResult{Failure: LoginFailureNoPassword, UserID: acct.UserID}
	}

	ok, err := deps.VerifyPassword(password, acct.PasswordHash)
	if err != nil {
		return LoginResult{Failure: LoginFailureHash, Err: err, UserID: acct.UserID}
	}
	if !ok {
		return LoginResult{Failure: LoginFailurePasswordMismatch, UserID: acct.UserID}
	}

	if !acct.Usable() {
		return LoginResult{Failure: LoginFailureDisabled, UserID: acct.UserID}
	}
	if deps.RequireVerified && !acct.Verified {
		return LoginResult{Failure: LoginFailureUnverified, UserID: acct.UserID}
	}

	var (
		upgradedHash string
		upgradeErr   error
	)
	if deps.UpgradeHashes && deps.NeedsRehash != nil && deps.NeedsRehash(acct.PasswordHash) {
		upgradedHash, upgradeErr = deps.HashPassword(password)
		if upgradeErr != nil {
			upgradedHash = ""
		}
	}

	if acct.TwoFactorEnabled {
		if upgradedHash != "" {
			if err := deps.PersistLogin(ctx, acct.UserID, "", upgradedHash); err != nil {
				upgradeErr = err
				upgradedHash = ""
			}
		}
		return LoginResult{
			UserID:            acct.UserID,
			RequiresTwoFactor: true,
			PasswordUpgraded:  upgradedHash != "",
			UpgradeErr:        upgradeErr,
		}
	}

	sess, stage, err := issueSession(ctx, acct, deps.Session)
	switch stage {
	case sessionRoles:
		return LoginResult{Failure: LoginFailureRoles, Err: err, UserID: acct.UserID}
	case sessionIssue:
		return LoginResult{Failure: LoginFailureIssue, Err: err, UserID: acct.UserID}
	}

	if err := deps.PersistLogin(ctx, acct.UserID, sess.refreshHash, upgradedHash); err != nil {
		return LoginResult{Failure: LoginFailurePersist, Err: err, UserID: acct.UserID}
	}

	return LoginResult{
		UserID:           acct.UserID,
		AccessToken:      sess.access,
		RefreshToken:     sess.refresh,
		PasswordUpgraded: upgradedHash != "",
		UpgradeErr:       upgradeErr,
	}
}
