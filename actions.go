package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/vulpecula-social/auth/cache"
)

const (
	// EmailVerificationTTL bounds how long an email verification link stays
	// redeemable.
	EmailVerificationTTL = 30 * time.Minute

	// PasswordResetTTL bounds how long a password reset link stays
	// redeemable.
	PasswordResetTTL = 15 * time.Minute

	emailTokenKeyPrefix    = "emailToken:"
	passwordResetKeyPrefix = "passwordReset:"
)

// EmailVerificationClaim is the payload bound to an email verification
// token: which user asked to claim which address.
type EmailVerificationClaim struct {
	UserID ID     `json:"userId"`
	Email  string `json:"email"`
}

// ActionTokens issues and redeems single-use, cache-resident tokens.
// A token exists only in the ephemeral store: expiry is eviction, and
// redemption is an atomic take so no two callers can both succeed.
type ActionTokens struct {
	cache cache.Cache
}

func NewActionTokens(store cache.Cache) *ActionTokens {
	return &ActionTokens{cache: store}
}

// IssueEmailVerification mints a token redeemable once for the given
// user/email claim.
func (t *ActionTokens) IssueEmailVerification(ctx context.Context, userID ID, email string) (string, error) {
	claim, err := json.Marshal(EmailVerificationClaim{UserID: userID, Email: email})
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to encode email verification claim")
	}
	return t.issue(ctx, emailTokenKeyPrefix, string(claim), EmailVerificationTTL)
}

// RedeemEmailVerification consumes the token and returns its claim.
// Unknown, expired, and already-redeemed tokens are indistinguishable.
func (t *ActionTokens) RedeemEmailVerification(ctx context.Context, token string) (*EmailVerificationClaim, error) {
	raw, err := t.redeem(ctx, emailTokenKeyPrefix, token)
	if err != nil {
		return nil, err
	}

	var claim EmailVerificationClaim
	if err := json.Unmarshal([]byte(raw), &claim); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decode email verification claim")
	}

	return &claim, nil
}

// IssuePasswordReset mints a token redeemable once for the given user.
func (t *ActionTokens) IssuePasswordReset(ctx context.Context, userID ID) (string, error) {
	return t.issue(ctx, passwordResetKeyPrefix, userID.String(), PasswordResetTTL)
}

// RedeemPasswordReset consumes the token and returns the user it was
// issued for.
func (t *ActionTokens) RedeemPasswordReset(ctx context.Context, token string) (ID, error) {
	raw, err := t.redeem(ctx, passwordResetKeyPrefix, token)
	if err != nil {
		return NilID, err
	}

	userID, err := ParseID(raw)
	if err != nil {
		return NilID, errors.Wrap(err, errors.CategoryInternal, "password reset token carried a malformed user id")
	}

	return userID, nil
}

func (t *ActionTokens) issue(ctx context.Context, prefix, payload string, ttl time.Duration) (string, error) {
	token, err := NewActionToken()
	if err != nil {
		return "", err
	}

	if err := t.cache.Set(ctx, prefix+token, payload, ttl); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to store action token")
	}

	return token, nil
}

func (t *ActionTokens) redeem(ctx context.Context, prefix, token string) (string, error) {
	if token == "" {
		return "", ErrActionTokenNotFound
	}

	raw, err := t.cache.Take(ctx, prefix+token)
	if err != nil {
		if cache.IsNotFound(err) {
			return "", ErrActionTokenNotFound
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to redeem action token")
	}

	return raw, nil
}
