package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterLocalUserMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// BypassEmailVerification marks the email verified at creation,
	// for invite and import flows that already proved the mailbox.
	BypassEmailVerification bool
	OnResponse              func(resp *RegisterLocalUserResponse)
}

func (e RegisterLocalUserMessage) Type() string { return "user.register_local" }

// Validate will run validation rules
func (e RegisterLocalUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Length(8, 128)),
	)
}

type RegisterLocalUserResponse struct {
	User    *User
	Success bool
}

type RegisterLocalUserHandler struct {
	repo RepositoryManager
	keys KeyPairGenerator
}

func NewRegisterLocalUserHandler(repo RepositoryManager, keys KeyPairGenerator) *RegisterLocalUserHandler {
	return &RegisterLocalUserHandler{repo: repo, keys: keys}
}

func (h *RegisterLocalUserHandler) Execute(ctx context.Context, event RegisterLocalUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterLocalUserHandler) execute(ctx context.Context, event RegisterLocalUserMessage) error {
	resp := &RegisterLocalUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	hash, err := h.passwordHash(event.Password)
	if err != nil {
		return err
	}

	var publicKey, privateKey string
	if h.keys != nil {
		if publicKey, privateKey, err = h.keys.Generate(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate user key pair")
		}
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		inUse, err := h.repo.Users().EmailInUse(ctx, tx, event.Email, NilID)
		if err != nil {
			return err
		}
		if inUse {
			return ErrEmailAlreadyClaimed
		}

		user, err := h.repo.Users().CreateLocalTx(ctx, tx, CreateLocalUser{
			Email:         event.Email,
			PasswordHash:  hash,
			EmailVerified: event.BypassEmailVerification,
			PublicKey:     publicKey,
			PrivateKey:    privateKey,
		})
		if err != nil {
			return err
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// passwordHash hashes the given password, or mints a placeholder hash
// no password can match when none was supplied. Such accounts finish
// setup through the password reset flow.
func (h *RegisterLocalUserHandler) passwordHash(password string) (string, error) {
	if password == "" {
		return RandomPasswordHash(), nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return "", goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	return hash, nil
}
