package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/vulpecula-social/auth"
	"github.com/vulpecula-social/auth/cache"
)

func setupAuthority(t *testing.T) (*auth.SessionAuthority, auth.RepositoryManager, *fixedClock, func()) {
	t.Helper()

	repo, cleanup := setupRepo(t)

	clk := &fixedClock{t: time.Now()}
	store := cache.NewMemory().WithClock(clk.Now)
	authority := auth.NewSessionAuthority(repo, store).WithClock(clk.Now)

	return authority, repo, clk, cleanup
}

func TestLoginValidateRevoke(t *testing.T) {
	ctx := context.Background()
	authority, repo, _, cleanup := setupAuthority(t)
	defer cleanup()

	user := createUser(t, repo, "alice@example.com")

	token, err := authority.Login(ctx, user.ID, auth.SessionMeta{IP: "127.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.Len(t, token, auth.SessionTokenLength)

	ok, err := authority.Validate(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok, "fresh session must validate")

	require.NoError(t, authority.Revoke(ctx, token))

	ok, err = authority.Validate(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok, "revoked session must not validate")
}

func TestLoginRejectsPastExpiry(t *testing.T) {
	ctx := context.Background()
	authority, repo, clk, cleanup := setupAuthority(t)
	defer cleanup()

	user := createUser(t, repo, "alice@example.com")

	past := clk.Now().Add(-time.Second)
	_, err := authority.Login(ctx, user.ID, auth.SessionMeta{ExpiresAt: &past})
	assert.ErrorIs(t, err, auth.ErrInvalidLifetime)
}

func TestValidateUnknownToken(t *testing.T) {
	ctx := context.Background()
	authority, _, _, cleanup := setupAuthority(t)
	defer cleanup()

	ok, err := authority.Validate(ctx, "no-such-token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = authority.Validate(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoundedSessionSoftRevocation(t *testing.T) {
	ctx := context.Background()
	authority, repo, clk, cleanup := setupAuthority(t)
	defer cleanup()

	user := createUser(t, repo, "alice@example.com")

	expiresAt := clk.Now().Add(10 * time.Second)
	token, err := authority.Login(ctx, user.ID, auth.SessionMeta{ExpiresAt: &expiresAt})
	require.NoError(t, err)

	ok, err := authority.Validate(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(11 * time.Second)

	ok, err = authority.Validate(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok, "session past its expiry must not validate")

	// The row survives with revokedAt stamped to the original expiry.
	session, err := repo.Sessions().GetByToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, session.RevokedAt)
	assert.WithinDuration(t, expiresAt, *session.RevokedAt, time.Second)
}

func TestValidateFallsBackToStoreAfterEviction(t *testing.T) {
	ctx := context.Background()
	authority, repo, clk, cleanup := setupAuthority(t)
	defer cleanup()

	user := createUser(t, repo, "alice@example.com")

	token, err := authority.Login(ctx, user.ID, auth.SessionMeta{})
	require.NoError(t, err)

	// Push past the acceleration window so the cache entry is gone but
	// the unbounded session row remains valid.
	clk.Advance(auth.DefaultSessionCacheTTL + time.Minute)

	ok, err := authority.Validate(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok, "store must remain the source of truth past the cache window")
}

func TestRevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	authority, repo, clk, cleanup := setupAuthority(t)
	defer cleanup()

	user := createUser(t, repo, "alice@example.com")

	token, err := authority.Login(ctx, user.ID, auth.SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, authority.Revoke(ctx, token))

	first, err := repo.Sessions().GetByToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, first.RevokedAt)

	clk.Advance(time.Hour)
	require.NoError(t, authority.Revoke(ctx, token))

	second, err := repo.Sessions().GetByToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, second.RevokedAt)
	assert.Equal(t, first.RevokedAt.Unix(), second.RevokedAt.Unix(), "second revoke must not move the timestamp")
}

func TestValidateDegradesWhenCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	repo, cleanup := setupRepo(t)
	defer cleanup()

	user := createUser(t, repo, "alice@example.com")

	healthy := cache.NewMemory()
	authority := auth.NewSessionAuthority(repo, healthy)

	token, err := authority.Login(ctx, user.ID, auth.SessionMeta{})
	require.NoError(t, err)

	// Swap in a broken cache: validation must degrade to store-only.
	broken := auth.NewSessionAuthority(repo, &failingCache{})

	ok, err := broken.Validate(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok, "cache unavailability must degrade to store-only validation")
}

func TestRevokeSurfacesCacheFailure(t *testing.T) {
	ctx := context.Background()
	repo, cleanup := setupRepo(t)
	defer cleanup()

	user := createUser(t, repo, "alice@example.com")

	authority := auth.NewSessionAuthority(repo, cache.NewMemory())
	token, err := authority.Login(ctx, user.ID, auth.SessionMeta{})
	require.NoError(t, err)

	broken := auth.NewSessionAuthority(repo, &failingCache{})
	assert.Error(t, broken.Revoke(ctx, token), "a cache delete failure must not be silent")
}

// failingCache errors on every operation, standing in for an
// unreachable backing store.
type failingCache struct{}

var errCacheDown = errors.New("cache unavailable")

func (f *failingCache) Get(context.Context, string) (string, error) { return "", errCacheDown }
func (f *failingCache) Set(context.Context, string, string, time.Duration) error {
	return errCacheDown
}
func (f *failingCache) SetIfExists(context.Context, string, string, time.Duration) (bool, error) {
	return false, errCacheDown
}
func (f *failingCache) Take(context.Context, string) (string, error) { return "", errCacheDown }
func (f *failingCache) Delete(context.Context, string) error         { return errCacheDown }
func (f *failingCache) Ping(context.Context) error                   { return errCacheDown }
func (f *failingCache) Close() error                                 { return nil }
