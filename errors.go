package auth

import "github.com/goliatone/go-errors"

const (
	TextCodeMalformedID      = "auth_malformed_id"
	TextCodeInvalidLifetime  = "auth_invalid_lifetime"
	TextCodeRemoteUser       = "auth_remote_user_unsupported"
	TextCodeSessionNotFound  = "auth_session_not_found"
	TextCodeActionNotFound   = "auth_action_token_not_found"
	TextCodeVerifyFailed     = "auth_verification_failed"
	TextCodeEmailClaimed     = "auth_email_already_claimed"
	TextCodeHandleClaimed    = "auth_handle_already_claimed"
	TextCodeHandleInvalid    = "auth_handle_invalid"
	TextCodeInvalidCreds     = "auth_invalid_credentials"
	TextCodeAccountSuspended = "auth_account_suspended"
	TextCodeEmptyPassword    = "auth_empty_password"
	TextCodeBearerMalformed  = "auth_bearer_malformed"
	TextCodeBearerExpired    = "auth_bearer_expired"
)

// ErrMalformedID is returned when a raw identifier cannot be decoded
// into a timestamp-prefixed id.
var ErrMalformedID = errors.New("malformed identifier", errors.CategoryBadInput).
	WithTextCode(TextCodeMalformedID).
	WithCode(errors.CodeBadRequest)

// ErrInvalidLifetime is returned when a session is requested with an
// expiry that is already in the past.
var ErrInvalidLifetime = errors.New("session expiry must not be in the past", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidLifetime).
	WithCode(errors.CodeBadRequest)

// ErrRemoteUserUnsupported is returned when a credential-mutating
// operation targets a user that does not belong to the local host.
var ErrRemoteUserUnsupported = errors.New("operation not supported for remote users", errors.CategoryAuthz).
	WithTextCode(TextCodeRemoteUser).
	WithCode(errors.CodeForbidden)

// ErrSessionNotFound is returned when a session token has no
// authoritative record.
var ErrSessionNotFound = errors.New("session not found", errors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeNotFound)

// ErrActionTokenNotFound is returned when an action token is missing,
// expired, or already redeemed. Callers must not distinguish the three.
var ErrActionTokenNotFound = errors.New("action token not found", errors.CategoryNotFound).
	WithTextCode(TextCodeActionNotFound).
	WithCode(errors.CodeNotFound)

// ErrVerificationFailed is the generic fail-closed verification error.
// It never carries which half of a check failed.
var ErrVerificationFailed = errors.New("verification failed", errors.CategoryAuth).
	WithTextCode(TextCodeVerifyFailed).
	WithCode(errors.CodeUnauthorized)

// ErrEmailAlreadyClaimed is returned when a pending email was claimed
// by another account between issuance and redemption.
var ErrEmailAlreadyClaimed = errors.New("email already claimed", errors.CategoryConflict).
	WithTextCode(TextCodeEmailClaimed).
	WithCode(errors.CodeConflict)

// ErrHandleAlreadyClaimed is returned when a user tries to claim a
// handle after one was already set, or the handle is taken on the host.
var ErrHandleAlreadyClaimed = errors.New("handle already claimed", errors.CategoryConflict).
	WithTextCode(TextCodeHandleClaimed).
	WithCode(errors.CodeConflict)

// ErrInvalidHandle is returned when a handle does not match the
// accepted shape.
var ErrInvalidHandle = errors.New("invalid handle format", errors.CategoryValidation).
	WithTextCode(TextCodeHandleInvalid).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not
// match the stored hash.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrAccountSuspended is returned when the target account carries a
// suspension or deletion marker.
var ErrAccountSuspended = errors.New("account is suspended", errors.CategoryAuthz).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString is returned when an empty password is given to the
// hasher.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrBearerMalformed is returned for bearer tokens that cannot be
// parsed or fail signature checks.
var ErrBearerMalformed = errors.New("bearer token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeBearerMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrBearerExpired is returned for bearer tokens past their expiry.
var ErrBearerExpired = errors.New("bearer token expired", errors.CategoryAuth).
	WithTextCode(TextCodeBearerExpired).
	WithCode(errors.CodeUnauthorized)
