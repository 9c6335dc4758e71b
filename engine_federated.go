package goIdentity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MrEthical07/goIdentity/internal/flows"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginWithProvider verifies credential with the verifier registered for
// method and links the resulting profile. Unknown methods fail with
// ErrUnknownProvider and rejected credentials with
// ErrFederatedIdentityInvalid.
func (e *Engine) LoginWithProvider(ctx context.Context, method, credential string) (*LoginResult, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	verifier, ok := e.verifiers[method]
	if !ok {
		e.emitAudit(ctx, auditEventFederatedFailure, false, "", ErrUnknownProvider, func() map[string]string {
			return map[string]string{"method": method}
		})
		return nil, ErrUnknownProvider
	}

	profile, err := verifier.VerifyIdentity(ctx, credential)
	if err != nil {
		e.logger.Info("federated credential rejected", zap.String("method", method), zap.Error(err))
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventFederatedFailure, false, "", ErrFederatedIdentityInvalid, func() map[string]string {
			return map[string]string{"method": method}
		})
		return nil, ErrFederatedIdentityInvalid
	}
	if profile.Provider == "" {
		profile.Provider = method
	}
	return e.LinkFederatedIdentity(ctx, profile)
}

// LinkFederatedIdentity logs in the account matching an externally verified
// profile, creating it on first sight.
//
// The email match takes precedence over the provider match. An account
// found under another provider is relinked to this one and its email marked
// verified. New accounts are active, have no password and receive the
// default role. Accounts with two-factor enabled get RequiresTwoFactor, as
// with Login.
func (e *Engine) LinkFederatedIdentity(ctx context.Context, profile FederatedProfile) (*LoginResult, error) {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	profile.Provider = strings.ToLower(strings.TrimSpace(profile.Provider))

	var last *User
	remember := func(u *User, err error) (flows.Account, error) {
		if err != nil {
			return flows.Account{}, err
		}
		last = u
		return toAccount(u), nil
	}

	deps := flows.FederatedDeps{
		FindByEmail: func(ctx context.Context, email string) (flows.Account, error) {
			return remember(e.store.FindUserByEmail(ctx, email))
		},
		FindByProvider: func(ctx context.Context, provider, providerID string) (flows.Account, error) {
			return remember(e.store.FindUserByProvider(ctx, provider, providerID))
		},
		NotFound: ErrRecordNotFound,
		Create: func(ctx context.Context, p flows.FederatedProfile) (flows.Account, error) {
			firstName := profile.FirstName
			if firstName == "" {
				firstName = profile.DisplayName
			}
			acct, err := remember(e.store.CreateUser(ctx, NewUser{
				ID:            uuid.NewString(),
				Email:         p.Email,
				FirstName:     strings.TrimSpace(firstName),
				LastName:      strings.TrimSpace(profile.LastName),
				Active:        true,
				EmailVerified: true,
				Provider:      p.Provider,
				ProviderID:    p.ProviderID,
				CreatedAt:     e.now().UTC(),
			}))
			if err != nil {
				return acct, err
			}
			if e.config.Account.AssignDefaultRole {
				e.assignDefaultRole(ctx, acct.UserID)
			}
			return acct, nil
		},
		Relink: func(ctx context.Context, userID string, p flows.FederatedProfile) (flows.Account, error) {
			return remember(e.store.UpdateUser(ctx, userID, UserUpdate{
				Provider:      &p.Provider,
				ProviderID:    &p.ProviderID,
				EmailVerified: boolPtr(true),
			}))
		},
		PersistRefresh: func(ctx context.Context, userID, refreshHash string) error {
			_, err := remember(e.store.UpdateUser(ctx, userID, UserUpdate{RefreshTokenHash: &refreshHash}))
			return err
		},
		Session: e.sessionDeps(),
	}

	res := flows.RunLinkFederated(ctx, flows.FederatedProfile{
		Provider:   profile.Provider,
		ProviderID: profile.ProviderID,
		Email:      profile.Email,
	}, deps)

	var err error
	switch res.Failure {
	case flows.FederatedFailureNone:
	case flows.FederatedFailureIncomplete:
		err = ErrFederatedIdentityInvalid
	case flows.FederatedFailureDisabled:
		err = ErrAccountDisabled
	case flows.FederatedFailureCreate:
		if errors.Is(res.Err, ErrRecordConflict) {
			err = ErrDuplicateEmail
			break
		}
		err = e.internalError("create federated user", res.Err, zap.String("provider", profile.Provider))
	default:
		err = e.internalError("link federated identity", res.Err,
			zap.String("provider", profile.Provider),
			zap.String("user_id", res.UserID),
		)
	}
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventFederatedFailure, false, res.UserID, err, func() map[string]string {
			return map[string]string{"provider": profile.Provider}
		})
		return nil, err
	}

	if res.Created {
		e.metricInc(MetricFederatedSignup)
	}
	e.metricInc(MetricFederatedLogin)
	e.emitAudit(ctx, auditEventFederatedLogin, true, res.UserID, nil, func() map[string]string {
		return map[string]string{
			"provider": profile.Provider,
			"created":  strconv.FormatBool(res.Created),
			"relinked": strconv.FormatBool(res.Relinked),
		}
	})

	if res.RequiresTwoFactor {
		e.metricInc(MetricLoginTwoFactorRequired)
		return &LoginResult{RequiresTwoFactor: true, UserID: res.UserID}, nil
	}
	return &LoginResult{
		User:   last,
		UserID: res.UserID,
		Tokens: &TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken},
	}, nil
}
