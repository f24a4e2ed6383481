// Package csrf binds one rendered form to one submission. A Protector
// issues a two-part pair: the cookie half travels in an HttpOnly
// cookie, the form half in a hidden field. Verification requires both
// and fails closed on any mismatch, expiry, or absence.
//
// Two interchangeable strategies implement the same capability. The
// stateful strategy keeps a server-held secret in the ephemeral cache;
// the stateless strategy seals the token and its expiry into an
// authenticated ciphertext so no server-side record exists, which
// suits deployments without a shared cache.
package csrf

import (
	"context"
	"time"

	"github.com/vulpecula-social/auth/cache"
)

// Strategy selects a Protector implementation.
type Strategy string

const (
	StrategyStateful  Strategy = "stateful"
	StrategyStateless Strategy = "stateless"
)

const (
	// DefaultCookieName is the cookie carrying the pair's cookie half.
	DefaultCookieName = "csrf_token"

	// DefaultFormField is the hidden field carrying the form half.
	DefaultFormField = "csrf_token"

	// PairTTL bounds one render-to-submit cycle.
	PairTTL = 15 * time.Minute

	// SecretTTL bounds how long a stateful secret stays resident in
	// the cache. Longer than PairTTL so the secret outlives the pair.
	SecretTTL = time.Hour

	secretKeyPrefix = "csrf:"
)

// Pair is one issued binding. CookieValue is the half the browser
// holds in an HttpOnly cookie; FormToken is the half embedded in the
// rendered form.
type Pair struct {
	CookieValue string
	FormToken   string
}

// Protector issues and checks pairs. Verify returns
// ErrVerificationFailed for every rejection; it never reports which
// half failed. Redeem retires a pair after a successful verify so it
// cannot be replayed.
type Protector interface {
	Issue(ctx context.Context) (*Pair, error)
	Verify(ctx context.Context, cookieValue, formToken string) error
	Redeem(ctx context.Context, formToken string) error
}

// Config selects and parameterizes a strategy.
type Config struct {
	Strategy Strategy

	// Cache backs the stateful strategy. Required for it, ignored by
	// the stateless one.
	Cache cache.Cache

	// EncryptionKey and HMACKey drive the stateless strategy.
	// EncryptionKey must be 16, 24, or 32 bytes.
	EncryptionKey []byte
	HMACKey       []byte

	// TTL overrides PairTTL when positive.
	TTL time.Duration
}

// New builds the Protector the config names.
func New(cfg Config) (Protector, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = PairTTL
	}

	switch cfg.Strategy {
	case StrategyStateful, "":
		if cfg.Cache == nil {
			return nil, ErrBadConfig
		}
		return &statefulProtector{cache: cfg.Cache, secretTTL: SecretTTL}, nil
	case StrategyStateless:
		if len(cfg.EncryptionKey) == 0 || len(cfg.HMACKey) == 0 {
			return nil, ErrBadConfig
		}
		return &statelessProtector{
			encryptionKey: cfg.EncryptionKey,
			hmacKey:       cfg.HMACKey,
			ttl:           ttl,
			now:           time.Now,
		}, nil
	default:
		return nil, ErrBadConfig
	}
}
