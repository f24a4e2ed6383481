package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/vulpecula-social/auth/cache"
)

const (
	// DefaultSessionCacheTTL bounds how long a cache entry may vouch
	// for a session without consulting the durable store. It is an
	// acceleration window, not the session expiry.
	DefaultSessionCacheTTL = time.Hour

	sessionKeyPrefix = "sessionToken:"
)

// SessionMeta carries optional, advisory attributes recorded at login.
// ExpiresAt requests a bounded session lifetime.
type SessionMeta struct {
	IP        string
	UserAgent string
	ExpiresAt *time.Time
}

// SessionAuthority issues, validates, and revokes session tokens,
// reconciling the durable store with the ephemeral cache. The store is
// ground truth; the cache is a bounded-staleness accelerator.
type SessionAuthority struct {
	repo     RepositoryManager
	cache    cache.Cache
	cacheTTL time.Duration
	logger   Logger
	now      func() time.Time
}

// NewSessionAuthority wires the authority to its two stores.
func NewSessionAuthority(repo RepositoryManager, store cache.Cache) *SessionAuthority {
	return &SessionAuthority{
		repo:     repo,
		cache:    store,
		cacheTTL: DefaultSessionCacheTTL,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (a *SessionAuthority) WithLogger(logger Logger) *SessionAuthority {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithCacheTTL overrides the acceleration window.
func (a *SessionAuthority) WithCacheTTL(ttl time.Duration) *SessionAuthority {
	if ttl > 0 {
		a.cacheTTL = ttl
	}
	return a
}

// WithClock overrides the clock, for tests.
func (a *SessionAuthority) WithClock(now func() time.Time) *SessionAuthority {
	if now != nil {
		a.now = now
	}
	return a
}

// Login creates a session for the user and returns its opaque token.
// The authoritative row is written first; the cache entry is an
// accelerator and its failure is not fatal.
func (a *SessionAuthority) Login(ctx context.Context, userID ID, meta SessionMeta) (string, error) {
	now := a.now()

	if meta.ExpiresAt != nil && !meta.ExpiresAt.After(now) {
		return "", ErrInvalidLifetime
	}

	token, err := NewSessionToken()
	if err != nil {
		return "", err
	}

	session := &Session{
		Token:     token,
		UserID:    userID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		RevokedAt: meta.ExpiresAt,
	}

	if _, err := a.repo.Sessions().Create(ctx, session); err != nil {
		return "", err
	}

	ttl := a.allowance(meta.ExpiresAt, now)
	if err := a.cache.Set(ctx, sessionKey(token), userID.String(), ttl); err != nil {
		a.logger.Error("session cache write failed, store remains authoritative: %v", err)
	}

	return token, nil
}

// Validate reports whether the token belongs to a live session. Reads
// are cache-aside: a hit refreshes the TTL without resurrecting an
// evicted entry; a miss falls back to the durable store and re-primes
// the cache with the remaining allowance. Cache failures degrade to
// store-only validation.
func (a *SessionAuthority) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	now := a.now()
	key := sessionKey(token)

	userID, err := a.cache.Get(ctx, key)
	if err == nil {
		if _, err := a.cache.SetIfExists(ctx, key, userID, a.cacheTTL); err != nil {
			a.logger.Error("session cache ttl refresh failed: %v", err)
		}
		return true, nil
	}
	if !cache.IsNotFound(err) {
		a.logger.Error("session cache unavailable, degrading to store-only validation: %v", err)
	}

	session, err := a.repo.Sessions().GetByToken(ctx, token)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if session.RevokedBefore(now) {
		return false, nil
	}

	ttl := a.allowance(session.RevokedAt, now)
	if err := a.cache.Set(ctx, key, session.UserID.String(), ttl); err != nil {
		a.logger.Error("session cache repopulation failed: %v", err)
	}

	return true, nil
}

// Revoke closes the session. The cache entry is deleted first so the
// staleness window shuts immediately; a cache failure here is surfaced
// because the window must not silently stay open. Revoking twice is a
// no-op.
func (a *SessionAuthority) Revoke(ctx context.Context, token string) error {
	if err := a.cache.Delete(ctx, sessionKey(token)); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to evict session from cache")
	}

	return a.repo.Sessions().Revoke(ctx, token, a.now())
}

// allowance bounds the cache TTL by the session expiry when one was
// requested at login.
func (a *SessionAuthority) allowance(expiresAt *time.Time, now time.Time) time.Duration {
	ttl := a.cacheTTL
	if expiresAt != nil {
		if remaining := expiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}
