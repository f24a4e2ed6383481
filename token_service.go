package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// BearerClaims is the claim set carried by API bearer tokens.
type BearerClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid"`
}

// TokenService mints and validates HS256 bearer tokens for
// programmatic API access. Bearer tokens are self-contained and are
// not tracked by the session authority; revocation for them is
// expiry-only.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func NewTokenService(cfg Config) *TokenService {
	return &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		ttl:        time.Duration(cfg.GetTokenExpiration()) * time.Hour,
		now:        time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate mints a signed bearer token for the user.
func (s *TokenService) Generate(userID ID) (string, error) {
	issuedAt := s.now()

	claims := &BearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
		UID: userID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign bearer token")
	}

	return signed, nil
}

// Validate checks the signature and expiry and returns the subject.
func (s *TokenService) Validate(tokenString string) (ID, error) {
	claims := &BearerClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return NilID, ErrBearerExpired
		}
		return NilID, ErrBearerMalformed
	}

	if !token.Valid {
		return NilID, ErrBearerMalformed
	}

	subject := claims.UID
	if subject == "" {
		subject = claims.Subject
	}

	userID, err := ParseID(subject)
	if err != nil {
		return NilID, ErrBearerMalformed
	}

	return userID, nil
}
