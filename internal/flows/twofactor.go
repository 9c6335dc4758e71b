package flows

import (
	"context"
	"errors"
	"time"
)

// TwoFactorPhase is the enrollment state of an account.
type TwoFactorPhase int

const (
	TwoFactorUnenrolled TwoFactorPhase = iota
	TwoFactorSecretIssued
	TwoFactorEnrolled
)

// PhaseOf derives the enrollment phase from the stored flag and secret.
func PhaseOf(acct Account) TwoFactorPhase {
	switch {
	case acct.TwoFactorEnabled && acct.TwoFactorSecret != "":
		return TwoFactorEnrolled
	case acct.TwoFactorSecret != "":
		return TwoFactorSecretIssued
	default:
		return TwoFactorUnenrolled
	}
}

// TwoFactorFailureKind classifies second-factor failures.
type TwoFactorFailureKind int

const (
	TwoFactorFailureNone TwoFactorFailureKind = iota
	TwoFactorFailureLookup
	TwoFactorFailureAccountMissing
	TwoFactorFailureAlreadyEnrolled
	TwoFactorFailureNotInitialized
	TwoFactorFailureNotEnrolled
	TwoFactorFailureInvalidCode
	TwoFactorFailureDisabled
	TwoFactorFailureGenerate
	TwoFactorFailurePersist
	TwoFactorFailureRoles
	TwoFactorFailureIssue
)

// TwoFactorResult is the outcome of a second-factor operation.
type TwoFactorResult struct {
	Failure TwoFactorFailureKind
	Err     error
	UserID  string

	Secret string
	URI    string
	QRCode string

	AccessToken  string
	RefreshToken string
}

// TwoFactorDeps captures second-factor dependencies.
type TwoFactorDeps struct {
	Now         func() time.Time
	LoadAccount func(ctx context.Context, userID string) (Account, error)
	NotFound    error

	Generate func(label string) (secret, uri, qrCode string, err error)
	Validate func(secret, code string, at time.Time) (bool, error)

	SaveSecret     func(ctx context.Context, userID, secret string) error
	Enable         func(ctx context.Context, userID string) error
	Disable        func(ctx context.Context, userID string) error
	PersistRefresh func(ctx context.Context, userID, refreshHash string) error

	Session SessionDeps
}

func (d TwoFactorDeps) load(ctx context.Context, userID string) (Account, TwoFactorFailureKind, error) {
	acct, err := d.LoadAccount(ctx, userID)
	if err != nil {
		if d.NotFound != nil && errors.Is(err, d.NotFound) {
			return Account{}, TwoFactorFailureAccountMissing, err
		}
		return Account{}, TwoFactorFailureLookup, err
	}
	return acct, TwoFactorFailureNone, nil
}

// codeValid treats malformed codes as mismatches.
func (d TwoFactorDeps) codeValid(secret, code string) bool {
	ok, err := d.Validate(secret, code, d.Now())
	return err == nil && ok
}

// AccountLabel picks the identity embedded in the authenticator entry.
func AccountLabel(acct Account) string {
	switch {
	case acct.Email != "":
		return acct.Email
	case acct.Phone != "":
		return acct.Phone
	default:
		return acct.UserID
	}
}

// RunGenerateSecret issues a pending secret, overwriting any earlier one.
func RunGenerateSecret(ctx context.Context, userID string, deps TwoFactorDeps) TwoFactorResult {
	acct, failure, err := deps.load(ctx, userID)
	if failure != TwoFactorFailureNone {
		return TwoFactorResult{Failure: failure, Err: err, UserID: userID}
	}
	if PhaseOf(acct) == TwoFactorEnrolled {
		return TwoFactorResult{Failure: TwoFactorFailureAlreadyEnrolled, UserID: userID}
	}

	secret, uri, qr, err := deps.Generate(AccountLabel(acct))
	if err != nil {
		return TwoFactorResult{Failure: TwoFactorFailureGenerate, Err: err, UserID: userID}
	}
	if err := deps.SaveSecret(ctx, userID, secret); err != nil {
		return TwoFactorResult{Failure: TwoFactorFailurePersist, Err: err, UserID: userID}
	}
	return TwoFactorResult{UserID: userID, Secret: secret, URI: uri, QRCode: qr}
}

// RunEnable confirms a pending secret with a valid code.
func RunEnable(ctx context.Context, userID, code string, deps TwoFactorDeps) TwoFactorResult {
	acct, failure, err := deps.load(ctx, userID)
	if failure == TwoFactorFailureAccountMissing {
		return TwoFactorResult{Failure: TwoFactorFailureNotInitialized, Err: err, UserID: userID}
	}
	if failure != TwoFactorFailureNone {
		return TwoFactorResult{Failure: failure, Err: err, UserID: userID}
	}
	switch PhaseOf(acct) {
	case TwoFactorUnenrolled:
		return TwoFactorResult{Failure: TwoFactorFailureNotInitialized, UserID: userID}
	case TwoFactorEnrolled:
		return TwoFactorResult{Failure: TwoFactorFailureAlreadyEnrolled, UserID: userID}
	}

	if !deps.codeValid(acct.TwoFactorSecret, code) {
		return TwoFactorResult{Failure: TwoFactorFailureInvalidCode, UserID: userID}
	}
	if err := deps.Enable(ctx, userID); err != nil {
		return TwoFactorResult{Failure: TwoFactorFailurePersist, Err: err, UserID: userID}
	}
	return TwoFactorResult{UserID: userID}
}

// enrolled loads an account and requires the Enrolled phase.
func (d TwoFactorDeps) enrolled(ctx context.Context, userID string) (Account, TwoFactorFailureKind, error) {
	acct, failure, err := d.load(ctx, userID)
	if failure == TwoFactorFailureAccountMissing {
		return Account{}, TwoFactorFailureNotEnrolled, err
	}
	if failure != TwoFactorFailureNone {
		return Account{}, failure, err
	}
	if PhaseOf(acct) != TwoFactorEnrolled {
		return Account{}, TwoFactorFailureNotEnrolled, nil
	}
	return acct, TwoFactorFailureNone, nil
}

// RunVerify completes a login that required a second factor. The secret is
// not rotated.
func RunVerify(ctx context.Context, userID, code string, deps TwoFactorDeps) TwoFactorResult {
	acct, failure, err := deps.enrolled(ctx, userID)
	if failure != TwoFactorFailureNone {
		return TwoFactorResult{Failure: failure, Err: err, UserID: userID}
	}
	if !deps.codeValid(acct.TwoFactorSecret, code) {
		return TwoFactorResult{Failure: TwoFactorFailureInvalidCode, UserID: userID}
	}
	if !acct.Usable() {
		return TwoFactorResult{Failure: TwoFactorFailureDisabled, UserID: userID}
	}

	sess, stage, err := issueSession(ctx, acct, deps.Session)
	switch stage {
	case sessionRoles:
		return TwoFactorResult{Failure: TwoFactorFailureRoles, Err: err, UserID: userID}
	case sessionIssue:
		return TwoFactorResult{Failure: TwoFactorFailureIssue, Err: err, UserID: userID}
	}
	if err := deps.PersistRefresh(ctx, userID, sess.refreshHash); err != nil {
		return TwoFactorResult{Failure: TwoFactorFailurePersist, Err: err, UserID: userID}
	}
	return TwoFactorResult{UserID: userID, AccessToken: sess.access, RefreshToken: sess.refresh}
}

// RunDisable clears the secret and flag after a valid code.
func RunDisable(ctx context.Context, userID, code string, deps TwoFactorDeps) TwoFactorResult {
	acct, failure, err := deps.enrolled(ctx, userID)
	if failure != TwoFactorFailureNone {
		return TwoFactorResult{Failure: failure, Err: err, UserID: userID}
	}
	if !deps.codeValid(acct.TwoFactorSecret, code) {
		return TwoFactorResult{Failure: TwoFactorFailureInvalidCode, UserID: userID}
	}
	if err := deps.Disable(ctx, userID); err != nil {
		return TwoFactorResult{Failure: TwoFactorFailurePersist, Err: err, UserID: userID}
	}
	return TwoFactorResult{UserID: userID}
}
