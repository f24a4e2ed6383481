package csrf

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/vulpecula-social/auth/cache"
)

// statefulProtector derives the form half from a server-held secret.
// The secret is the cookie half and is also cached under the form
// token, so verification recomputes the proof from the server's copy
// rather than trusting anything the client submitted.
type statefulProtector struct {
	cache     cache.Cache
	secretTTL time.Duration
}

const (
	secretLength = 18
	saltLength   = 8
)

func (p *statefulProtector) Issue(ctx context.Context) (*Pair, error) {
	secret, err := randomString(secretLength)
	if err != nil {
		return nil, err
	}

	salt, err := randomString(saltLength)
	if err != nil {
		return nil, err
	}

	formToken := salt + "-" + proof(salt, secret)

	if err := p.cache.Set(ctx, secretKeyPrefix+formToken, secret, p.secretTTL); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to store csrf secret")
	}

	return &Pair{CookieValue: secret, FormToken: formToken}, nil
}

func (p *statefulProtector) Verify(ctx context.Context, cookieValue, formToken string) error {
	if cookieValue == "" || formToken == "" {
		return ErrVerificationFailed
	}

	salt, _, found := strings.Cut(formToken, "-")
	if !found || salt == "" {
		return ErrVerificationFailed
	}

	cached, err := p.cache.Get(ctx, secretKeyPrefix+formToken)
	if err != nil {
		if cache.IsNotFound(err) {
			return ErrVerificationFailed
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to load csrf secret")
	}

	secretOK := subtle.ConstantTimeCompare([]byte(cached), []byte(cookieValue))
	tokenOK := subtle.ConstantTimeCompare([]byte(salt+"-"+proof(salt, cached)), []byte(formToken))
	if secretOK&tokenOK != 1 {
		return ErrVerificationFailed
	}

	return nil
}

func (p *statefulProtector) Redeem(ctx context.Context, formToken string) error {
	if err := p.cache.Delete(ctx, secretKeyPrefix+formToken); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to retire csrf secret")
	}
	return nil
}

// proof is the salted digest binding a form token to its secret.
func proof(salt, secret string) string {
	sum := sha256.Sum256([]byte(salt + "-" + secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read entropy")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
