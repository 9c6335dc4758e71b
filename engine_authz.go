package goIdentity

import (
	"context"
	"errors"

	"github.com/MrEthical07/goIdentity/internal/stores"
	"github.com/MrEthical07/goIdentity/permission"
	"go.uber.org/zap"
)

// HasPermission reports whether the user holds the named permission, either
// granted directly or through one of their roles.
//
// It fails closed: an unknown, inactive or deleted user, an unknown name and
// any store error all yield false. Errors are logged, not returned.
func (e *Engine) HasPermission(ctx context.Context, userID, name string) bool {
	set, ok := e.usableSet(ctx, "permission check", stores.KindPermissions, userID)
	if !ok {
		e.metricInc(MetricAuthzDenied)
		return false
	}
	if !set.Has(name) {
		e.metricInc(MetricAuthzDenied)
		return false
	}
	e.metricInc(MetricAuthzAllowed)
	return true
}

// HasRole reports whether the user is assigned the named role. It fails
// closed like HasPermission.
func (e *Engine) HasRole(ctx context.Context, userID, name string) bool {
	set, ok := e.usableSet(ctx, "role check", stores.KindRoles, userID)
	if !ok || !set.Has(name) {
		e.metricInc(MetricAuthzDenied)
		return false
	}
	e.metricInc(MetricAuthzAllowed)
	return true
}

// Authorize checks a verified principal against a permission. The decision
// reads current grants, so a revocation applies before the access token
// expires.
func (e *Engine) Authorize(ctx context.Context, principal *Principal, name string) error {
	if principal == nil || principal.UserID == "" {
		e.metricInc(MetricAuthzDenied)
		return ErrPermissionDenied
	}
	if !e.HasPermission(ctx, principal.UserID, name) {
		return ErrPermissionDenied
	}
	return nil
}

// EffectivePermissions returns the sorted union of the user's direct and
// role-derived permission names.
func (e *Engine) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	if _, err := e.loadUser(ctx, "effective permissions", userID); err != nil {
		return nil, err
	}
	names, err := e.cachedNames(ctx, stores.KindPermissions, userID)
	if err != nil {
		return nil, e.internalError("effective permissions", err, zap.String("user_id", userID))
	}
	return permission.NewSet(names...).Sorted(), nil
}

// usableSet loads the user's names of the given kind if the account is
// usable. The bool is false whenever the check must fail closed.
func (e *Engine) usableSet(ctx context.Context, op string, kind stores.SetKind, userID string) (permission.Set, bool) {
	if userID == "" {
		return nil, false
	}
	u, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			e.logger.Error(op+" failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	if !u.Usable() {
		return nil, false
	}
	names, err := e.cachedNames(ctx, kind, userID)
	if err != nil {
		e.logger.Error(op+" failed", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}
	return permission.NewSet(names...), true
}

// userRoles returns the role names embedded in issued tokens.
func (e *Engine) userRoles(ctx context.Context, userID string) ([]string, error) {
	names, err := e.cachedNames(ctx, stores.KindRoles, userID)
	if err != nil {
		return nil, err
	}
	return permission.NewSet(names...).Sorted(), nil
}

// cachedNames reads a per-user set through the Redis cache when one is
// configured. Cache failures fall back to the store.
func (e *Engine) cachedNames(ctx context.Context, kind stores.SetKind, userID string) ([]string, error) {
	load := e.store.ListEffectivePermissions
	if kind == stores.KindRoles {
		load = e.store.ListUserRoles
	}
	if e.cache == nil {
		return load(ctx, userID)
	}

	names, gen, hit, err := e.cache.Lookup(ctx, kind, userID)
	if err != nil {
		e.logger.Warn("permission cache lookup failed", zap.String("user_id", userID), zap.Error(err))
		return load(ctx, userID)
	}
	if hit {
		e.metricInc(MetricAuthzCacheHit)
		return names, nil
	}
	e.metricInc(MetricAuthzCacheMiss)

	names, err = load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Store(ctx, kind, userID, gen, names); err != nil {
		e.logger.Warn("permission cache store failed", zap.String("user_id", userID), zap.Error(err))
	}
	return names, nil
}

// invalidateUserAuthz drops the cached sets of one user after a grant change.
func (e *Engine) invalidateUserAuthz(ctx context.Context, userID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateUser(ctx, userID); err != nil {
		e.logger.Warn("permission cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// invalidateAllAuthz retires every cached set after a role or permission
// mutation that can affect many users.
func (e *Engine) invalidateAllAuthz(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateAll(ctx); err != nil {
		e.logger.Warn("permission cache invalidation failed", zap.Error(err))
	}
}
