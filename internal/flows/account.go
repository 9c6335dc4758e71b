package flows

import (
	"context"
	"crypto/subtle"
	"time"
)

// Account is the flow-local view of a user record.
type Account struct {
	UserID       string
	Email        string
	Phone        string
	PasswordHash string

	Active   bool
	Deleted  bool
	Verified bool

	EmailVerified bool
	PhoneVerified bool

	Provider   string
	ProviderID string

	TwoFactorEnabled bool
	TwoFactorSecret  string

	RefreshTokenHash string

	OTPCode      string
	OTPExpiresAt time.Time
}

// Usable reports whether the account may authenticate.
func (a Account) Usable() bool {
	return a.Active && !a.Deleted
}

// SessionDeps issues a token pair for an account.
type SessionDeps struct {
	ListRoles func(ctx context.Context, userID string) ([]string, error)
	IssuePair func(userID, email string, roles []string) (access, refresh string, err error)
	HashToken func(token string) string
}

type sessionStage int

const (
	sessionOK sessionStage = iota
	sessionRoles
	sessionIssue
)

type issuedSession struct {
	access      string
	refresh     string
	refreshHash string
}

func issueSession(ctx context.Context, acct Account, deps SessionDeps) (issuedSession, sessionStage, error) {
	roles, err := deps.ListRoles(ctx, acct.UserID)
	if err != nil {
		return issuedSession{}, sessionRoles, err
	}
	access, refresh, err := deps.IssuePair(acct.UserID, acct.Email, roles)
	if err != nil {
		return issuedSession{}, sessionIssue, err
	}
	return issuedSession{
		access:      access,
		refresh:     refresh,
		refreshHash: deps.HashToken(refresh),
	}, sessionOK, nil
}

func equalSecret(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
