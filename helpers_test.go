package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/vulpecula-social/auth"
)

func setupDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, auth.RegisterSchema(context.Background(), bunDB))

	return bunDB, func() {
		bunDB.Close()
	}
}

func setupRepo(t *testing.T) (auth.RepositoryManager, func()) {
	t.Helper()

	db, cleanup := setupDB(t)
	return auth.NewRepositoryManager(db), cleanup
}

func createUser(t *testing.T, repo auth.RepositoryManager, email string) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	user, err := repo.Users().CreateLocal(context.Background(), auth.CreateLocalUser{
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	require.NotNil(t, user)

	return user
}

// fixedClock returns a settable clock for components that accept one.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
