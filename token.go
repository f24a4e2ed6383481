package auth

import (
	"crypto/rand"

	"github.com/goliatone/go-errors"
)

// Opaque tokens are random base62 strings with no decodable structure;
// they are used purely as lookup keys.
const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	// SessionTokenLength yields a touch over 32 bytes of entropy
	// (43 * log2(62) ~ 256 bits).
	SessionTokenLength = 43
	// ActionTokenLength yields ~128 bits of entropy, enough for
	// short-lived single-use tokens.
	ActionTokenLength = 22
)

// NewSessionToken returns a high-entropy opaque session token.
func NewSessionToken() (string, error) {
	return randomToken(SessionTokenLength)
}

// NewActionToken returns an opaque token for single-use action flows.
func NewActionToken() (string, error) {
	return randomToken(ActionTokenLength)
}

// randomToken draws n characters from the base62 alphabet using
// rejection sampling so every character is uniformly distributed.
func randomToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("token length must be positive", errors.CategoryBadInput)
	}

	// 248 is the largest multiple of 62 below 256; bytes at or above
	// it would bias the distribution and are redrawn.
	const maxByte = 248

	out := make([]byte, 0, n)
	buf := make([]byte, n)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to read randomness source")
		}
		for _, b := range buf {
			if b >= maxByte {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}

	return string(out), nil
}
