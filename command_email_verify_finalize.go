package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizeEmailVerificationMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *FinalizeEmailVerificationResponse)
}

func (e FinalizeEmailVerificationMessage) Type() string { return "user.email_verification_finalize" }

type FinalizeEmailVerificationResponse struct {
	UserID  ID
	Email   string
	Success bool
}

type FinalizeEmailVerificationHandler struct {
	repo    RepositoryManager
	actions *ActionTokens
}

func NewFinalizeEmailVerificationHandler(repo RepositoryManager, actions *ActionTokens) *FinalizeEmailVerificationHandler {
	return &FinalizeEmailVerificationHandler{repo: repo, actions: actions}
}

func (h *FinalizeEmailVerificationHandler) Execute(ctx context.Context, event FinalizeEmailVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizeEmailVerificationHandler) execute(ctx context.Context, event FinalizeEmailVerificationMessage) error {
	resp := &FinalizeEmailVerificationResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claim, err := h.actions.RedeemEmailVerification(ctx, event.Token)
	if err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The email may have been claimed by another account between
		// issuance and redemption.
		inUse, err := h.repo.Users().EmailInUse(ctx, tx, claim.Email, claim.UserID)
		if err != nil {
			return err
		}
		if inUse {
			return ErrEmailAlreadyClaimed
		}

		return h.repo.Users().UpdateEmailTx(ctx, tx, claim.UserID, claim.Email, true)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	resp.UserID = claim.UserID
	resp.Email = claim.Email
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
