package auth

import "time"

// Config holds auth options
type Config interface {
	GetSessionCookieName() string
	GetCSRFCookieName() string
	GetCSRFFormField() string
	GetCSRFStrategy() string
	GetCookieSecure() bool
	GetSessionCacheTTL() time.Duration
	GetSigningKey() string
	GetIssuer() string
	GetTokenExpiration() int
}

// SimpleConfig is a plain struct Config implementation with defaults
// suitable for tests and small deployments.
type SimpleConfig struct {
	SessionCookieName string
	CSRFCookieName    string
	CSRFFormField     string
	CSRFStrategy      string
	CookieSecure      bool
	SessionCacheTTL   time.Duration
	SigningKey        string
	Issuer            string
	TokenExpiration   int
}

func (c SimpleConfig) GetSessionCookieName() string {
	if c.SessionCookieName == "" {
		return SessionCookieName
	}
	return c.SessionCookieName
}

func (c SimpleConfig) GetCSRFCookieName() string {
	if c.CSRFCookieName == "" {
		return "csrf_token"
	}
	return c.CSRFCookieName
}

func (c SimpleConfig) GetCSRFFormField() string {
	if c.CSRFFormField == "" {
		return "csrf_token"
	}
	return c.CSRFFormField
}

func (c SimpleConfig) GetCSRFStrategy() string {
	if c.CSRFStrategy == "" {
		return "stateful"
	}
	return c.CSRFStrategy
}

func (c SimpleConfig) GetCookieSecure() bool {
	return c.CookieSecure
}

func (c SimpleConfig) GetSessionCacheTTL() time.Duration {
	if c.SessionCacheTTL == 0 {
		return DefaultSessionCacheTTL
	}
	return c.SessionCacheTTL
}

func (c SimpleConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c SimpleConfig) GetIssuer() string {
	if c.Issuer == "" {
		return "vulpecula"
	}
	return c.Issuer
}

func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration == 0 {
		return 72
	}
	return c.TokenExpiration
}
