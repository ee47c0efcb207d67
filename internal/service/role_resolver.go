package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/telemetry"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// RoleCacheKey, RoleCacheTimestampKey and StatusCacheKey are the cache keys of
	// a role entry, suffixed with the principal id.
	RoleCacheKey          = "userRole"
	RoleCacheTimestampKey = "userRoleTimestamp"
	StatusCacheKey        = "userStatus"

	// DefaultRoleTTL is how long a cached role is trusted
	DefaultRoleTTL = time.Hour
)

// RoleSource says where a resolved role came from
type RoleSource string

const (
	RoleSourceCache     RoleSource = "cache"
	RoleSourceDirectory RoleSource = "directory"
	RoleSourceFallback  RoleSource = "fallback"
)

// DirectoryEntry is what the user directory returns for an email
type DirectoryEntry struct {
	Role   model.Role       `json:"role"`
	Status model.UserStatus `json:"status"`
}

// Directory looks users up by email
type Directory interface {
	LookupByEmail(ctx context.Context, email string) (*DirectoryEntry, error)
}

// KeyValueStore is the durable cache the role entries live in
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// RoleCacheEntry is a cached role and account status with the time they were fetched
type RoleCacheEntry struct {
	Role      model.Role
	Status    model.UserStatus
	FetchedAt time.Time
}

// Suspended reports whether the directory had the account suspended
func (e RoleCacheEntry) Suspended() bool {
	return e.Status == model.UserStatusSuspended
}

// RoleResolver is the only reader and writer of cached roles.
type RoleResolver struct {
	directory Directory
	cache     KeyValueStore
	ttl       time.Duration
	now       func() time.Time
	flights   singleflight.Group
	logger    *zap.Logger
	metrics   *telemetry.Metrics

	// generations counts invalidations per principal. A lookup only writes back
	// when no invalidation happened while it was in flight.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewRoleResolver creates a resolver. A non-positive ttl selects DefaultRoleTTL.
func NewRoleResolver(directory Directory, cache KeyValueStore, ttl time.Duration, logger *zap.Logger, metrics *telemetry.Metrics) *RoleResolver {
	if ttl <= 0 {
		ttl = DefaultRoleTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleResolver{
		directory:   directory,
		cache:       cache,
		ttl:         ttl,
		now:         time.Now,
		logger:      logger,
		metrics:     metrics,
		generations: make(map[string]uint64),
	}
}

// ResolveRole returns the principal's current role. See Resolve.
func (r *RoleResolver) ResolveRole(ctx context.Context, principal *model.User) (model.Role, error) {
	entry, err := r.Resolve(ctx, principal)
	if err != nil {
		return "", err
	}
	return entry.Role, nil
}

// Resolve returns the principal's current role and account status. A fresh cache
// entry is used as-is; otherwise the directory is asked by email and the answer
// cached. Directory failures resolve to buyer with the status carried by the token,
// which is cached as well. The only error returned is the context's, in which case
// nothing must be acted upon.
func (r *RoleResolver) Resolve(ctx context.Context, principal *model.User) (RoleCacheEntry, error) {
	if principal == nil || principal.ID == "" {
		return RoleCacheEntry{}, errors.New("resolve role: principal is required")
	}
	if err := ctx.Err(); err != nil {
		return RoleCacheEntry{}, err
	}

	if entry, ok := r.cached(ctx, principal.ID); ok {
		r.metrics.RoleResolved(string(RoleSourceCache))
		return entry, nil
	}

	// Shared flights outlive any single caller; a cancelled caller just stops waiting.
	generation := r.generation(principal.ID)
	ch := r.flights.DoChan(principal.ID, func() (interface{}, error) {
		return r.fetch(context.WithoutCancel(ctx), principal, generation), nil
	})
	select {
	case <-ctx.Done():
		return RoleCacheEntry{}, ctx.Err()
	case res := <-ch:
		return res.Val.(RoleCacheEntry), nil
	}
}

// Invalidate drops the cached role of a principal. A lookup already in flight is
// detached: later callers start a new one and its answer is not written back.
func (r *RoleResolver) Invalidate(ctx context.Context, principalID string) error {
	r.mu.Lock()
	r.generations[principalID]++
	r.flights.Forget(principalID)
	r.mu.Unlock()

	for _, key := range []string{roleKey(principalID), roleTimestampKey(principalID), statusKey(principalID)} {
		if err := r.cache.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (r *RoleResolver) generation(principalID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[principalID]
}

func (r *RoleResolver) cached(ctx context.Context, principalID string) (RoleCacheEntry, bool) {
	role, ok, err := r.cache.Get(ctx, roleKey(principalID))
	if err != nil {
		r.logger.Warn("role cache read failed", zap.String("principal_id", principalID), zap.Error(err))
		return RoleCacheEntry{}, false
	}
	if !ok || !model.Role(role).Valid() {
		return RoleCacheEntry{}, false
	}

	raw, ok, err := r.cache.Get(ctx, roleTimestampKey(principalID))
	if err != nil || !ok {
		return RoleCacheEntry{}, false
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return RoleCacheEntry{}, false
	}

	status, ok, err := r.cache.Get(ctx, statusKey(principalID))
	if err != nil || !ok || !model.UserStatus(status).Valid() {
		return RoleCacheEntry{}, false
	}

	entry := RoleCacheEntry{Role: model.Role(role), Status: model.UserStatus(status), FetchedAt: time.UnixMilli(millis)}
	now := r.now()
	// A timestamp from the future never ages out, so it cannot be trusted either.
	if entry.FetchedAt.After(now) || now.Sub(entry.FetchedAt) >= r.ttl {
		return RoleCacheEntry{}, false
	}
	return entry, true
}

func (r *RoleResolver) fetch(ctx context.Context, principal *model.User, generation uint64) RoleCacheEntry {
	resolved := RoleCacheEntry{Role: model.RoleBuyer, Status: principal.Status}
	source := RoleSourceFallback

	entry, err := r.directory.LookupByEmail(ctx, principal.Email)
	switch {
	case err != nil:
		r.logger.Warn("directory lookup failed, using buyer role",
			zap.String("principal_id", principal.ID),
			zap.String("email", principal.Email),
			zap.Error(err))
	case entry == nil:
		source = RoleSourceDirectory
	default:
		source = RoleSourceDirectory
		if entry.Role.Valid() {
			resolved.Role = entry.Role
		}
		if entry.Status.Valid() {
			resolved.Status = entry.Status
		}
	}
	if !resolved.Status.Valid() {
		resolved.Status = model.UserStatusActive
	}
	resolved.FetchedAt = time.UnixMilli(r.now().UnixMilli())

	r.store(ctx, principal.ID, resolved, generation)
	r.metrics.RoleResolved(string(source))
	return resolved
}

func (r *RoleResolver) store(ctx context.Context, principalID string, entry RoleCacheEntry, generation uint64) {
	if r.generation(principalID) != generation {
		r.logger.Debug("role invalidated during lookup, not caching", zap.String("principal_id", principalID))
		return
	}
	fields := []struct{ key, value string }{
		{roleKey(principalID), string(entry.Role)},
		{statusKey(principalID), string(entry.Status)},
		{roleTimestampKey(principalID), strconv.FormatInt(entry.FetchedAt.UnixMilli(), 10)},
	}
	for _, f := range fields {
		if err := r.cache.Set(ctx, f.key, f.value); err != nil {
			r.logger.Warn("role cache write failed", zap.String("principal_id", principalID), zap.Error(err))
			return
		}
	}
}

func roleKey(principalID string) string {
	return RoleCacheKey + ":" + principalID
}

func roleTimestampKey(principalID string) string {
	return RoleCacheTimestampKey + ":" + principalID
}

func statusKey(principalID string) string {
	return StatusCacheKey + ":" + principalID
}
