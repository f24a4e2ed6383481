package auth

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "user.password_reset_initialize" }

// Validate will run validation rules
func (e InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// InitializePasswordResetResponse reports Success for known and unknown
// emails alike: the response must not work as an account-existence
// oracle. Token is populated only when a token was actually issued.
type InitializePasswordResetResponse struct {
	Token   string
	Success bool
}

type InitializePasswordResetHandler struct {
	repo       RepositoryManager
	actions    *ActionTokens
	dispatcher MessageDispatcher
}

func NewInitializePasswordResetHandler(repo RepositoryManager, actions *ActionTokens, dispatcher MessageDispatcher) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{repo: repo, actions: actions, dispatcher: dispatcher}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset request")
	}

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			resp.Success = true
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return err
	}

	if !user.IsLocal() || !user.IsActive() {
		resp.Success = true
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	token, err := h.actions.IssuePasswordReset(ctx, user.ID)
	if err != nil {
		return err
	}

	if err := h.dispatcher.Send(ctx, Message{
		Recipient: event.Email,
		Subject:   "Reset your password",
		Body:      fmt.Sprintf("link: /password-reset/%s", token),
	}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to dispatch password reset message")
	}

	resp.Token = token
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
