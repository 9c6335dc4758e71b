package flows

import (
	"context"
	"errors"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureAccountMissing
	RefreshFailureLookup
	RefreshFailureAccountStatus
	RefreshFailureHashMismatch
	RefreshFailureRoles
	RefreshFailureIssue
	RefreshFailureReplay
	RefreshFailureRotate
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh func(token string) (userID string, err error)
	LoadAccount  func(ctx context.Context, userID string) (Account, error)
	NotFound     error
	Stale        error
	HashToken    func(token string) string
	Session      SessionDeps
	// Rotate replaces the stored refresh hash only if it still equals expectHash.
	Rotate func(ctx context.Context, userID, expectHash, nextHash string) error
}

// Failed reports whether the result carries any failure.
func (r RefreshResult) Failed() bool {
	return r.Failure != RefreshFailureNone
}

// Internal reports whether the failure came from infrastructure rather than
// from the presented token.
func (r RefreshResult) Internal() bool {
	switch r.Failure {
	case RefreshFailureLookup, RefreshFailureRoles, RefreshFailureIssue, RefreshFailureRotate:
		return true
	}
	return false
}

// RunRefresh verifies a refresh token against the single stored hash and
// rotates it. The rotation is a compare-and-swap on the presented hash, so
// of two concurrent refreshes with the same token exactly one succeeds.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	userID, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	acct, err := deps.LoadAccount(ctx, userID)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return RefreshResult{Failure: RefreshFailureAccountMissing, Err: err, UserID: userID}
		}
		return RefreshResult{Failure: RefreshFailureLookup, Err: err, UserID: userID}
	}
	if !acct.Usable() {
		return RefreshResult{Failure: RefreshFailureAccountStatus, UserID: userID}
	}

	presented := deps.HashToken(refreshToken)
	if acct.RefreshTokenHash == "" || !equalSecret(presented, acct.RefreshTokenHash) {
		return RefreshResult{Failure: RefreshFailureHashMismatch, UserID: userID}
	}

	sess, stage, err := issueSession(ctx, acct, deps.Session)
	switch stage {
	case sessionRoles:
		return RefreshResult{Failure: RefreshFailureRoles, Err: err, UserID: userID}
	case sessionIssue:
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: userID}
	}

	if err := deps.Rotate(ctx, userID, presented, sess.refreshHash); err != nil {
		if deps.Stale != nil && errors.Is(err, deps.Stale) {
			return RefreshResult{Failure: RefreshFailureReplay, Err: err, UserID: userID}
		}
		return RefreshResult{Failure: RefreshFailureRotate, Err: err, UserID: userID}
	}

	return RefreshResult{
		UserID:       userID,
		AccessToken:  sess.access,
		RefreshToken: sess.refresh,
	}
}
