package goIdentity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goIdentity/internal"
	"github.com/MrEthical07/goIdentity/internal/flows"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Register creates an inactive local account and sends it a verification
// code. It returns only the new user ID; the account can log in after
// VerifyOTP succeeds.
//
// Register returns ErrMissingIdentifier when neither email nor phone is set,
// *ValidationError for malformed fields, and ErrDuplicateEmail or
// ErrDuplicatePhone when an identifier is taken.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (string, error) {
	in := registerInput{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     strings.TrimSpace(req.Phone),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if in.Email == "" && in.Phone == "" {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", ErrMissingIdentifier, nil)
		return "", ErrMissingIdentifier
	}
	if err := checkInput(in); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, nil)
		return "", err
	}

	if err := e.ensureIdentifiersFree(ctx, in.Email, in.Phone, ""); err != nil {
		if errors.Is(err, ErrDuplicateResource) {
			e.metricInc(MetricRegisterDuplicate)
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, nil)
		return "", err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return "", &ValidationError{Fields: map[string]string{"password": "is too long"}}
		}
		return "", e.internalError("hash password", err)
	}

	user, err := e.store.CreateUser(ctx, NewUser{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Phone:        in.Phone,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Active:       false,
		Provider:     ProviderLocal,
		CreatedAt:    e.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrRecordConflict) {
			// Lost a race with a concurrent registration.
			dupErr := e.ensureIdentifiersFree(ctx, in.Email, in.Phone, "")
			if dupErr == nil {
				dupErr = ErrDuplicateEmail
				if in.Email == "" {
					dupErr = ErrDuplicatePhone
				}
			}
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", dupErr, nil)
			return "", dupErr
		}
		return "", e.internalError("create user", err)
	}

	if e.config.Account.AssignDefaultRole {
		e.assignDefaultRole(ctx, user.ID)
	}

	// The account exists from here on. A failure to issue the code is logged
	// and recoverable through ResendOTP.
	if err := e.sendVerificationCode(ctx, user.ID); err != nil {
		e.logger.Error("issue verification code after registration failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, nil, func() map[string]string {
		return map[string]string{"provider": ProviderLocal}
	})
	return user.ID, nil
}

// ensureIdentifiersFree checks that email and phone are unused by any
// account other than exceptUserID.
func (e *Engine) ensureIdentifiersFree(ctx context.Context, email, phone, exceptUserID string) error {
	if email != "" {
		u, err := e.store.FindUserByEmail(ctx, email)
		switch {
		case err == nil && u.ID != exceptUserID:
			return ErrDuplicateEmail
		case err != nil && !errors.Is(err, ErrRecordNotFound):
			return e.internalError("find user by email", err)
		}
	}
	if phone != "" {
		u, err := e.store.FindUserByPhone(ctx, phone)
		switch {
		case err == nil && u.ID != exceptUserID:
			return ErrDuplicatePhone
		case err != nil && !errors.Is(err, ErrRecordNotFound):
			return e.internalError("find user by phone", err)
		}
	}
	return nil
}

// assignDefaultRole grants the configured default role. A missing role is
// logged, not returned: the account stays usable without it.
func (e *Engine) assignDefaultRole(ctx context.Context, userID string) {
	name := e.config.Account.DefaultRole
	if name == "" {
		name = RoleUser
	}
	role, err := e.store.FindRoleByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.logger.Warn("default role missing, run SeedDefaults",
				zap.String("role", name),
				zap.String("user_id", userID),
			)
			return
		}
		e.logger.Error("find default role failed", zap.String("role", name), zap.Error(err))
		return
	}
	if err := e.store.AssignUserRole(ctx, userID, role.ID); err != nil {
		e.logger.Error("assign default role failed",
			zap.String("role", name),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	e.invalidateUserAuthz(ctx, userID)
}

// Login authenticates by email (any identifier containing "@") or phone
// number.
//
// Unknown identifiers, federated-only accounts and wrong passwords all fail
// with ErrInvalidCredentials. Inactive or deleted accounts fail with
// ErrAccountDisabled. When the account has two-factor enabled the result
// has RequiresTwoFactor set and no tokens; finish with VerifyTwoFactor.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*LoginResult, error) {
	if err := checkInput(loginInput{Identifier: strings.TrimSpace(identifier), Password: pass}); err != nil {
		return nil, err
	}

	var found *User
	deps := flows.LoginDeps{
		RequireVerified: e.config.Account.RequireVerified,
		UpgradeHashes:   e.config.Password.UpgradeOnLogin,
		FindAccount: func(ctx context.Context, identifier string) (flows.Account, error) {
			u, err := e.findByIdentifier(ctx, identifier)
			if err != nil {
				return flows.Account{}, err
			}
			found = u
			return toAccount(u), nil
		},
		NotFound:       ErrRecordNotFound,
		VerifyPassword: e.hasher.Verify,
		NeedsRehash:    e.hasher.NeedsRehash,
		HashPassword:   e.hasher.Hash,
		Session:        e.sessionDeps(),
		PersistLogin: func(ctx context.Context, userID, refreshHash, passwordHash string) error {
			var upd UserUpdate
			if refreshHash != "" {
				upd.RefreshTokenHash = &refreshHash
			}
			if passwordHash != "" {
				upd.PasswordHash = &passwordHash
			}
			updated, err := e.store.UpdateUser(ctx, userID, upd)
			if err == nil {
				found = updated
			}
			return err
		},
	}

	res := flows.RunLogin(ctx, identifier, pass, deps)
	if res.UpgradeErr != nil {
		e.logger.Warn("password hash upgrade failed", zap.String("user_id", res.UserID), zap.Error(res.UpgradeErr))
	}
	if res.PasswordUpgraded {
		e.metricInc(MetricLoginPasswordUpgraded)
	}

	if err := e.loginError(res); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, err, func() map[string]string {
			return map[string]string{"method": "password"}
		})
		return nil, err
	}

	if res.RequiresTwoFactor {
		e.metricInc(MetricLoginTwoFactorRequired)
		e.emitAudit(ctx, auditEventLoginTwoFactorRequired, true, res.UserID, nil, nil)
		return &LoginResult{RequiresTwoFactor: true, UserID: res.UserID}, nil
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, nil, func() map[string]string {
		return map[string]string{"method": "password"}
	})
	return &LoginResult{
		User:   found,
		UserID: res.UserID,
		Tokens: &TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken},
	}, nil
}

func (e *Engine) loginError(res flows.LoginResult) error {
	switch res.Failure {
	case flows.LoginFailureNone:
		return nil
	case flows.LoginFailureUnknownAccount, flows.LoginFailureNoPassword, flows.LoginFailurePasswordMismatch:
		return ErrInvalidCredentials
	case flows.LoginFailureHash:
		if errors.Is(res.Err, password.ErrPasswordTooLong) {
			return ErrInvalidCredentials
		}
		return e.internalError("verify password", res.Err, zap.String("user_id", res.UserID))
	case flows.LoginFailureDisabled:
		return ErrAccountDisabled
	case flows.LoginFailureUnverified:
		return ErrAccountUnverified
	case flows.LoginFailureLookup:
		return e.internalError("find user for login", res.Err)
	default:
		return e.internalError("issue session", res.Err, zap.String("user_id", res.UserID))
	}
}

// Refresh exchanges a refresh token for a new pair and invalidates the
// presented token. Every rejection is ErrInvalidRefreshToken; store outages
// are ErrInternal.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	loader := &accountLoader{store: e.store}
	deps := flows.RefreshDeps{
		ParseRefresh: func(token string) (string, error) {
			claims, err := e.tokens.ParseRefresh(token)
			if err != nil {
				return "", err
			}
			return claims.UID, nil
		},
		LoadAccount: loader.load,
		NotFound:    ErrRecordNotFound,
		Stale:       ErrRecordStale,
		HashToken:   internal.HashToken,
		Session:     e.sessionDeps(),
		Rotate: func(ctx context.Context, userID, expectHash, nextHash string) error {
			_, err := e.store.UpdateUser(ctx, userID, UserUpdate{
				RefreshTokenHash:       &nextHash,
				ExpectRefreshTokenHash: &expectHash,
			})
			return err
		},
	}

	res := flows.RunRefresh(ctx, refreshToken, deps)
	if res.Failed() {
		e.metricInc(MetricRefreshFailure)
		if res.Failure == flows.RefreshFailureReplay {
			e.metricInc(MetricRefreshReplayRejected)
		}
		err := ErrInvalidRefreshToken
		if res.Internal() {
			err = e.internalError("refresh session", res.Err, zap.String("user_id", res.UserID))
		}
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, nil, nil)
	return &TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
}

// Logout clears the stored refresh token, revoking every outstanding refresh
// token of the user. Access tokens stay valid until they expire.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if _, err := e.updateUser(ctx, "logout", userID, UserUpdate{ClearRefreshToken: true}, ErrUserNotFound); err != nil {
		return err
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, nil, nil)
	return nil
}

// VerifyAccessToken checks an access token's signature, algorithm, issuer
// and expiry and returns the principal it carries. It does not read the
// store; pair it with HasPermission for checks that must see revocations.
func (e *Engine) VerifyAccessToken(ctx context.Context, token string) (*Principal, error) {
	start := time.Now()
	claims, err := e.tokens.ParseAccess(token)
	e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Principal{
		UserID: claims.UID,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}, nil
}
