package flows

import (
	"context"
	"errors"
)

// FederatedProfile is the flow-local view of a provider-asserted identity.
type FederatedProfile struct {
	Provider   string
	ProviderID string
	Email      string
}

// FederatedFailureKind classifies federated login failures.
type FederatedFailureKind int

const (
	FederatedFailureNone FederatedFailureKind = iota
	FederatedFailureIncomplete
	FederatedFailureLookup
	FederatedFailureCreate
	FederatedFailureRelink
	FederatedFailureDisabled
	FederatedFailureRoles
	FederatedFailureIssue
	FederatedFailurePersist
)

// FederatedResult is the outcome of linking a provider identity.
type FederatedResult struct {
	Failure  FederatedFailureKind
	Err      error
	UserID   string
	Created  bool
	Relinked bool

	RequiresTwoFactor bool
	AccessToken       string
	RefreshToken      string
}

// FederatedDeps captures linking dependencies.
type FederatedDeps struct {
	FindByEmail    func(ctx context.Context, email string) (Account, error)
	FindByProvider func(ctx context.Context, provider, providerID string) (Account, error)
	NotFound       error

	// Create makes an active account with a verified email and the default role.
	Create func(ctx context.Context, profile FederatedProfile) (Account, error)
	// Relink moves the account to the profile's provider and marks the email verified.
	Relink func(ctx context.Context, userID string, profile FederatedProfile) (Account, error)

	PersistRefresh func(ctx context.Context, userID, refreshHash string) error
	Session        SessionDeps
}

// RunLinkFederated treats a federated login as "login or silent signup":
// the email match wins over the provider match, and the last provider used
// becomes the account's provider.
func RunLinkFederated(ctx context.Context, profile FederatedProfile, deps FederatedDeps) FederatedResult {
	if profile.Email == "" || profile.Provider == "" || profile.ProviderID == "" {
		return FederatedResult{Failure: FederatedFailureIncomplete}
	}

	acct, found, err := deps.find(ctx, profile)
	if err != nil {
		return FederatedResult{Failure: FederatedFailureLookup, Err: err}
	}

	var created, relinked bool
	switch {
	case !found:
		acct, err = deps.Create(ctx, profile)
		if err != nil {
			return FederatedResult{Failure: FederatedFailureCreate, Err: err}
		}
		created = true
	case acct.Provider != profile.Provider || acct.ProviderID != profile.ProviderID:
		next, err := deps.Relink(ctx, acct.UserID, profile)
		if err != nil {
			return FederatedResult{Failure: FederatedFailureRelink, Err: err, UserID: acct.UserID}
		}
		acct, relinked = next, true
	}

	result := FederatedResult{UserID: acct.UserID, Created: created, Relinked: relinked}
	if !acct.Usable() {
		result.Failure = FederatedFailureDisabled
		return result
	}
	if acct.TwoFactorEnabled {
		result.RequiresTwoFactor = true
		return result
	}

	sess, stage, err := issueSession(ctx, acct, deps.Session)
	switch stage {
	case sessionRoles:
		result.Failure, result.Err = FederatedFailureRoles, err
		return result
	case sessionIssue:
		result.Failure, result.Err = FederatedFailureIssue, err
		return result
	}
	if err := deps.PersistRefresh(ctx, acct.UserID, sess.refreshHash); err != nil {
		result.Failure, result.Err = FederatedFailurePersist, err
		return result
	}
	result.AccessToken, result.RefreshToken = sess.access, sess.refresh
	return result
}

func (d FederatedDeps) find(ctx context.Context, profile FederatedProfile) (Account, bool, error) {
	acct, err := d.FindByEmail(ctx, profile.Email)
	if err == nil {
		return acct, true, nil
	}
	if d.NotFound == nil || !errors.Is(err, d.NotFound) {
		return Account{}, false, err
	}

	acct, err = d.FindByProvider(ctx, profile.Provider, profile.ProviderID)
	if err == nil {
		return acct, true, nil
	}
	if errors.Is(err, d.NotFound) {
		return Account{}, false, nil
	}
	return Account{}, false, err
}
