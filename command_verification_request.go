package auth

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type RequestEmailVerificationMessage struct {
	UserID ID     `json:"user_id"`
	Email  string `json:"email"`
	// OnResponse receives the issued token so callers that deliver the
	// message themselves (or tests) can observe it.
	OnResponse func(resp *RequestEmailVerificationResponse)
}

func (e RequestEmailVerificationMessage) Type() string { return "user.email_verification_request" }

// Validate will run validation rules
func (e RequestEmailVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

type RequestEmailVerificationResponse struct {
	Token   string
	Success bool
}

type RequestEmailVerificationHandler struct {
	repo       RepositoryManager
	actions    *ActionTokens
	dispatcher MessageDispatcher
}

func NewRequestEmailVerificationHandler(repo RepositoryManager, actions *ActionTokens, dispatcher MessageDispatcher) *RequestEmailVerificationHandler {
	return &RequestEmailVerificationHandler{repo: repo, actions: actions, dispatcher: dispatcher}
}

func (h *RequestEmailVerificationHandler) Execute(ctx context.Context, event RequestEmailVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestEmailVerificationHandler) execute(ctx context.Context, event RequestEmailVerificationMessage) error {
	resp := &RequestEmailVerificationResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email verification request")
	}

	user, err := h.repo.Users().GetByID(ctx, event.UserID)
	if err != nil {
		return err
	}

	if !user.IsLocal() {
		return ErrRemoteUserUnsupported
	}

	token, err := h.actions.IssueEmailVerification(ctx, user.ID, event.Email)
	if err != nil {
		return err
	}

	if err := h.dispatcher.Send(ctx, Message{
		Recipient: event.Email,
		Subject:   "Confirm your email address",
		Body:      fmt.Sprintf("link: /verify-email/%s", token),
	}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to dispatch verification message")
	}

	resp.Token = token
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
