package flows

import (
	"context"
	"errors"
	"time"
)

// OTPFailureKind classifies verification-code failures.
type OTPFailureKind int

const (
	OTPFailureNone OTPFailureKind = iota
	OTPFailureLookup
	OTPFailureAccountMissing
	OTPFailureDeleted
	OTPFailureAlreadyVerified
	OTPFailureNoChannel
	OTPFailureGenerate
	OTPFailureNoPending
	OTPFailureExpired
	OTPFailureMismatch
	OTPFailurePersist
)

// CheckOTP compares a presented code with the pending one at now. A code is
// valid up to and including its expiry instant.
func CheckOTP(pending string, expiresAt time.Time, presented string, now time.Time) OTPFailureKind {
	if pending == "" || expiresAt.IsZero() {
		return OTPFailureNoPending
	}
	if now.After(expiresAt) {
		return OTPFailureExpired
	}
	if !equalSecret(pending, presented) {
		return OTPFailureMismatch
	}
	return OTPFailureNone
}

// OTPIssueResult carries a freshly stored code and where to send it.
type OTPIssueResult struct {
	Failure   OTPFailureKind
	Err       error
	Code      string
	Channel   string
	Address   string
	ExpiresAt time.Time
}

// OTPIssueDeps captures code issuing dependencies.
type OTPIssueDeps struct {
	Now         func() time.Time
	TTL         time.Duration
	LoadAccount func(ctx context.Context, userID string) (Account, error)
	NotFound    error
	NewCode     func() (string, error)
	// Store overwrites any pending code.
	Store func(ctx context.Context, userID, code string, expiresAt time.Time) error
}

// PendingChannel returns the contact channel still awaiting verification:
// the email when present and unverified, otherwise the phone. Both results
// are empty when nothing is left to verify.
func PendingChannel(acct Account) (channel, address string) {
	switch {
	case acct.Email != "" && !acct.EmailVerified:
		return "email", acct.Email
	case acct.Phone != "" && !acct.PhoneVerified:
		return "sms", acct.Phone
	}
	return "", ""
}

// RunIssueOTP generates and stores a verification code for the account's
// pending channel. Deleted accounts and accounts with nothing left to
// verify get no code.
func RunIssueOTP(ctx context.Context, userID string, deps OTPIssueDeps) OTPIssueResult {
	acct, err := deps.LoadAccount(ctx, userID)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return OTPIssueResult{Failure: OTPFailureAccountMissing, Err: err}
		}
		return OTPIssueResult{Failure: OTPFailureLookup, Err: err}
	}
	if acct.Deleted {
		return OTPIssueResult{Failure: OTPFailureDeleted}
	}
	if acct.Email == "" && acct.Phone == "" {
		return OTPIssueResult{Failure: OTPFailureNoChannel}
	}

	channel, address := PendingChannel(acct)
	if channel == "" {
		return OTPIssueResult{Failure: OTPFailureAlreadyVerified}
	}

	code, err := deps.NewCode()
	if err != nil {
		return OTPIssueResult{Failure: OTPFailureGenerate, Err: err}
	}
	expiresAt := deps.Now().Add(deps.TTL)
	if err := deps.Store(ctx, acct.UserID, code, expiresAt); err != nil {
		return OTPIssueResult{Failure: OTPFailurePersist, Err: err}
	}

	return OTPIssueResult{
		Code:      code,
		Channel:   channel,
		Address:   address,
		ExpiresAt: expiresAt,
	}
}

// OTPVerifyResult is the outcome of a verification attempt.
type OTPVerifyResult struct {
	Failure OTPFailureKind
	Err     error
	UserID  string
}

// OTPGrant is what a consumed code confirms.
type OTPGrant struct {
	// Activate is set only for the first verification of an account. Later
	// codes confirm a changed address and never touch the active flag.
	Activate bool
	Email    bool
	Phone    bool
}

// GrantFor decides what consuming a code confirms for acct. The first
// verification confirms every populated channel; afterwards only the
// pending channel is confirmed.
func GrantFor(acct Account) OTPGrant {
	if !acct.Verified {
		return OTPGrant{Activate: true, Email: acct.Email != "", Phone: acct.Phone != ""}
	}
	channel, _ := PendingChannel(acct)
	return OTPGrant{Email: channel == "email", Phone: channel == "sms"}
}

// OTPVerifyDeps captures verification dependencies.
type OTPVerifyDeps struct {
	Now         func() time.Time
	LoadAccount func(ctx context.Context, userID string) (Account, error)
	NotFound    error
	Stale       error
	// Consume clears the pending code and applies grant, guarded on the
	// code still being pending.
	Consume func(ctx context.Context, acct Account, code string, grant OTPGrant) error
}

// RunVerifyOTP checks and consumes a pending code. A code consumed by a
// concurrent request reports OTPFailureNoPending.
func RunVerifyOTP(ctx context.Context, userID, code string, deps OTPVerifyDeps) OTPVerifyResult {
	acct, err := deps.LoadAccount(ctx, userID)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return OTPVerifyResult{Failure: OTPFailureNoPending, Err: err, UserID: userID}
		}
		return OTPVerifyResult{Failure: OTPFailureLookup, Err: err, UserID: userID}
	}
	if acct.Deleted {
		return OTPVerifyResult{Failure: OTPFailureDeleted, UserID: userID}
	}

	if failure := CheckOTP(acct.OTPCode, acct.OTPExpiresAt, code, deps.Now()); failure != OTPFailureNone {
		return OTPVerifyResult{Failure: failure, UserID: userID}
	}

	if err := deps.Consume(ctx, acct, acct.OTPCode, GrantFor(acct)); err != nil {
		if deps.Stale != nil && errors.Is(err, deps.Stale) {
			return OTPVerifyResult{Failure: OTPFailureNoPending, Err: err, UserID: userID}
		}
		return OTPVerifyResult{Failure: OTPFailurePersist, Err: err, UserID: userID}
	}
	return OTPVerifyResult{UserID: userID}
}
