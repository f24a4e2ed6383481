package csrf

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
)

// statelessProtector seals the token and its expiry into an AES-GCM
// ciphertext, signs the ciphertext with HMAC-SHA256, and hands the
// envelope to the browser as the cookie half. Verification reverses
// the construction and fails closed at the first broken layer; no
// server-side record exists, so Redeem is a no-op and replay within
// the TTL is bounded by the cookie lifetime alone.
type statelessProtector struct {
	encryptionKey []byte
	hmacKey       []byte
	ttl           time.Duration
	now           func() time.Time
}

type sealedPair struct {
	Token     string `json:"t"`
	ExpiresAt int64  `json:"exp"`
}

func (p *statelessProtector) Issue(ctx context.Context) (*Pair, error) {
	token, err := randomString(24)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(sealedPair{
		Token:     token,
		ExpiresAt: p.now().Add(p.ttl).Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode csrf pair")
	}

	block, err := aes.NewCipher(p.encryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create GCM")
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read entropy")
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	mac := hmac.New(sha256.New, p.hmacKey)
	mac.Write(ciphertext)
	envelope := append(mac.Sum(nil), ciphertext...)

	return &Pair{
		CookieValue: base64.URLEncoding.EncodeToString(envelope),
		FormToken:   token,
	}, nil
}

func (p *statelessProtector) Verify(ctx context.Context, cookieValue, formToken string) error {
	if cookieValue == "" || formToken == "" {
		return ErrVerificationFailed
	}

	data, err := base64.URLEncoding.DecodeString(cookieValue)
	if err != nil || len(data) < sha256.Size {
		return ErrVerificationFailed
	}

	signature, ciphertext := data[:sha256.Size], data[sha256.Size:]

	mac := hmac.New(sha256.New, p.hmacKey)
	mac.Write(ciphertext)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return ErrVerificationFailed
	}

	block, err := aes.NewCipher(p.encryptionKey)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create GCM")
	}

	if len(ciphertext) < gcm.NonceSize() {
		return ErrVerificationFailed
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ErrVerificationFailed
	}

	var pair sealedPair
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		return ErrVerificationFailed
	}

	if p.now().Unix() > pair.ExpiresAt {
		return ErrVerificationFailed
	}

	if subtle.ConstantTimeCompare([]byte(pair.Token), []byte(formToken)) != 1 {
		return ErrVerificationFailed
	}

	return nil
}

func (p *statelessProtector) Redeem(ctx context.Context, formToken string) error {
	return nil
}
