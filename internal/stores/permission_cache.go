package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetKind names which per-user set a cache entry holds.
type SetKind string

const (
	KindPermissions SetKind = "perm"
	KindRoles       SetKind = "role"
)

// ErrCacheUnavailable wraps Redis failures. Callers treat it as a miss.
var ErrCacheUnavailable = errors.New("permission cache unavailable")

// PermissionCache keeps each user's effective permission and role names in
// Redis. Keys embed a generation number; bumping it with InvalidateAll
// orphans every entry at once, and orphans expire with their TTL.
type PermissionCache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewPermissionCache returns a cache writing under prefix with the given TTL.
func NewPermissionCache(client redis.UniversalClient, prefix string, ttl time.Duration) *PermissionCache {
	if prefix == "" {
		prefix = "gid"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{redis: client, prefix: prefix, ttl: ttl}
}

func (c *PermissionCache) genKey() string {
	return c.prefix + ":authz:gen"
}

func (c *PermissionCache) key(kind SetKind, gen int64, userID string) string {
	return c.prefix + ":authz:" + string(kind) + ":" + strconv.FormatInt(gen, 10) + ":" + userID
}

// Generation returns the current generation. A missing counter is generation 0.
func (c *PermissionCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.redis.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return gen, nil
}

// Lookup returns the cached names for userID. The returned generation must
// be passed to Store after loading from the source of truth, so a load that
// raced with InvalidateAll is written under the retired generation.
func (c *PermissionCache) Lookup(ctx context.Context, kind SetKind, userID string) ([]string, int64, bool, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := c.redis.Get(ctx, c.key(kind, gen, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		// corrupt entry: drop it and report a miss
		_ = c.redis.Del(ctx, c.key(kind, gen, userID)).Err()
		return nil, gen, false, nil
	}
	return names, gen, true, nil
}

// Store writes names for userID under generation gen.
func (c *PermissionCache) Store(ctx context.Context, kind SetKind, userID string, gen int64, names []string) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, c.key(kind, gen, userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// InvalidateUser drops both cached sets of userID at the current generation.
func (c *PermissionCache) InvalidateUser(ctx context.Context, userID string) error {
	gen, err := c.Generation(ctx)
	if err != nil {
		return err
	}
	if err := c.redis.Del(ctx, c.key(KindPermissions, gen, userID), c.key(KindRoles, gen, userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// InvalidateAll retires every cached set by advancing the generation.
func (c *PermissionCache) InvalidateAll(ctx context.Context) error {
	if err := c.redis.Incr(ctx, c.genKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
