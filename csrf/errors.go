package csrf

import "github.com/goliatone/go-errors"

const (
	TextCodeVerifyFailed = "csrf_verification_failed"
	TextCodeBadConfig    = "csrf_bad_config"
)

// ErrVerificationFailed is returned for every rejected pair. The cause
// (missing half, expired, tampered, already redeemed) is deliberately
// not distinguishable by the caller.
var ErrVerificationFailed = errors.New("csrf verification failed", errors.CategoryAuth).
	WithTextCode(TextCodeVerifyFailed).
	WithCode(errors.CodeForbidden)

// ErrBadConfig is returned when a protector cannot be built from the
// supplied configuration.
var ErrBadConfig = errors.New("invalid csrf configuration", errors.CategoryBadInput).
	WithTextCode(TextCodeBadConfig).
	WithCode(errors.CodeBadRequest)
