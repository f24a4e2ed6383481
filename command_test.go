package auth_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/vulpecula-social/auth"
	"github.com/vulpecula-social/auth/cache"
)

type staticKeys struct{}

func (staticKeys) Generate(context.Context) (string, string, error) {
	return "public-pem", "private-pem", nil
}

type accountFlow struct {
	repo       auth.RepositoryManager
	tokens     *auth.ActionTokens
	dispatcher auth.MessageDispatcher
}

func setupFlow(t *testing.T) (*accountFlow, func()) {
	t.Helper()

	repo, cleanup := setupRepo(t)
	return &accountFlow{
		repo:       repo,
		tokens:     auth.NewActionTokens(cache.NewMemory()),
		dispatcher: auth.NewDevDispatcher(nil),
	}, cleanup
}

func TestRegisterLocalUser(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	handler := auth.NewRegisterLocalUserHandler(flow.repo, staticKeys{})

	var resp *auth.RegisterLocalUserResponse
	err := handler.Execute(ctx, auth.RegisterLocalUserMessage{
		Email:    "alice@example.com",
		Password: "password123",
		OnResponse: func(r *auth.RegisterLocalUserResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.User)
	assert.True(t, resp.User.IsLocal())

	cred, err := flow.repo.Users().GetCredential(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", cred.Email)
	assert.False(t, cred.EmailVerified)
	assert.NoError(t, auth.ComparePasswordAndHash("password123", cred.PasswordHash))
}

func TestRegisterLocalUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	handler := auth.NewRegisterLocalUserHandler(flow.repo, nil)

	require.NoError(t, handler.Execute(ctx, auth.RegisterLocalUserMessage{
		Email:    "alice@example.com",
		Password: "password123",
	}))

	err := handler.Execute(ctx, auth.RegisterLocalUserMessage{
		Email:    "alice@example.com",
		Password: "different-pass",
	})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyClaimed)
}

func TestRegisterLocalUserWithoutPassword(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	handler := auth.NewRegisterLocalUserHandler(flow.repo, nil)

	var resp *auth.RegisterLocalUserResponse
	err := handler.Execute(ctx, auth.RegisterLocalUserMessage{
		Email:                   "invitee@example.com",
		BypassEmailVerification: true,
		OnResponse: func(r *auth.RegisterLocalUserResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	cred, err := flow.repo.Users().GetCredential(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, cred.EmailVerified)

	// The placeholder credential verifies against nothing; login stays
	// closed until a reset completes.
	assert.Error(t, auth.ComparePasswordAndHash("", cred.PasswordHash))
	assert.Error(t, auth.ComparePasswordAndHash("password123", cred.PasswordHash))
}

func TestRegisterLocalUserRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	handler := auth.NewRegisterLocalUserHandler(flow.repo, nil)

	tests := []struct {
		name string
		msg  auth.RegisterLocalUserMessage
	}{
		{"missing email", auth.RegisterLocalUserMessage{Password: "password123"}},
		{"bad email", auth.RegisterLocalUserMessage{Email: "nope", Password: "password123"}},
		{"short password", auth.RegisterLocalUserMessage{Email: "a@example.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, handler.Execute(ctx, tt.msg))
		})
	}
}

func TestEmailVerificationFlow(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	user := createUser(t, flow.repo, "alice@example.com")

	request := auth.NewRequestEmailVerificationHandler(flow.repo, flow.tokens, flow.dispatcher)

	var issued *auth.RequestEmailVerificationResponse
	err := request.Execute(ctx, auth.RequestEmailVerificationMessage{
		UserID: user.ID,
		Email:  "new@example.com",
		OnResponse: func(r *auth.RequestEmailVerificationResponse) {
			issued = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, issued)
	require.NotEmpty(t, issued.Token)

	finalize := auth.NewFinalizeEmailVerificationHandler(flow.repo, flow.tokens)

	var done *auth.FinalizeEmailVerificationResponse
	err = finalize.Execute(ctx, auth.FinalizeEmailVerificationMessage{
		Token: issued.Token,
		OnResponse: func(r *auth.FinalizeEmailVerificationResponse) {
			done = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, user.ID, done.UserID)

	cred, err := flow.repo.Users().GetCredential(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", cred.Email)
	assert.True(t, cred.EmailVerified)

	// Second redemption of the same token must miss.
	err = finalize.Execute(ctx, auth.FinalizeEmailVerificationMessage{Token: issued.Token})
	assert.ErrorIs(t, err, auth.ErrActionTokenNotFound)
}

func TestEmailVerificationClaimRace(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	user := createUser(t, flow.repo, "alice@example.com")

	request := auth.NewRequestEmailVerificationHandler(flow.repo, flow.tokens, flow.dispatcher)

	var issued *auth.RequestEmailVerificationResponse
	require.NoError(t, request.Execute(ctx, auth.RequestEmailVerificationMessage{
		UserID: user.ID,
		Email:  "contested@example.com",
		OnResponse: func(r *auth.RequestEmailVerificationResponse) {
			issued = r
		},
	}))

	// Another account claims the email between issuance and redemption.
	createUser(t, flow.repo, "contested@example.com")

	finalize := auth.NewFinalizeEmailVerificationHandler(flow.repo, flow.tokens)
	err := finalize.Execute(ctx, auth.FinalizeEmailVerificationMessage{Token: issued.Token})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyClaimed)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	user := createUser(t, flow.repo, "alice@example.com")

	initialize := auth.NewInitializePasswordResetHandler(flow.repo, flow.tokens, flow.dispatcher)

	var issued *auth.InitializePasswordResetResponse
	err := initialize.Execute(ctx, auth.InitializePasswordResetMessage{
		Email: "alice@example.com",
		OnResponse: func(r *auth.InitializePasswordResetResponse) {
			issued = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, issued)
	require.NotEmpty(t, issued.Token)

	finalize := auth.NewFinalizePasswordResetHandler(flow.repo, flow.tokens)

	var done *auth.FinalizePasswordResetResponse
	err = finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:    issued.Token,
		Password: "brand-new-password",
		OnResponse: func(r *auth.FinalizePasswordResetResponse) {
			done = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, user.ID, done.UserID)

	cred, err := flow.repo.Users().GetCredential(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePasswordAndHash("brand-new-password", cred.PasswordHash))

	// The token is single use.
	err = finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:    issued.Token,
		Password: "yet-another-password",
	})
	assert.ErrorIs(t, err, auth.ErrActionTokenNotFound)
}

func TestPasswordResetUnknownEmailNoOracle(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	initialize := auth.NewInitializePasswordResetHandler(flow.repo, flow.tokens, flow.dispatcher)

	var resp *auth.InitializePasswordResetResponse
	err := initialize.Execute(ctx, auth.InitializePasswordResetMessage{
		Email: "stranger@example.com",
		OnResponse: func(r *auth.InitializePasswordResetResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success, "unknown emails must not be distinguishable")
	assert.Empty(t, resp.Token)
}

func TestPasswordResetSuspendedAccount(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	user := createUser(t, flow.repo, "alice@example.com")

	// Issue before the suspension lands.
	token, err := flow.tokens.IssuePasswordReset(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, flow.repo.Users().Suspend(ctx, user.ID, time.Now()))

	finalize := auth.NewFinalizePasswordResetHandler(flow.repo, flow.tokens)
	err = finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:    token,
		Password: "brand-new-password",
	})
	assert.ErrorIs(t, err, auth.ErrAccountSuspended)
}

func TestVerificationRequestUnknownUser(t *testing.T) {
	ctx := context.Background()
	flow, cleanup := setupFlow(t)
	defer cleanup()

	request := auth.NewRequestEmailVerificationHandler(flow.repo, flow.tokens, flow.dispatcher)
	err := request.Execute(ctx, auth.RequestEmailVerificationMessage{
		UserID: auth.NewID(),
		Email:  "ghost@example.com",
	})
	assert.True(t, goerrors.IsNotFound(err))
}
