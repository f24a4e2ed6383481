package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/vulpecula-social/auth/csrf"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session_token"

const bearerPrefix = "Bearer "

// RequestAuthenticator resolves the acting user for an incoming
// request and manages the session and CSRF cookies. Authentication
// failures resolve to anonymous rather than errors; only store or
// cache connectivity problems surface.
type RequestAuthenticator struct {
	authority *SessionAuthority
	repo      RepositoryManager
	tokens    *TokenService
	cfg       Config
	logger    Logger
}

func NewRequestAuthenticator(authority *SessionAuthority, repo RepositoryManager, tokens *TokenService, cfg Config) *RequestAuthenticator {
	if cfg == nil {
		cfg = SimpleConfig{}
	}
	return &RequestAuthenticator{
		authority: authority,
		repo:      repo,
		tokens:    tokens,
		cfg:       cfg,
		logger:    defLogger{},
	}
}

func (r *RequestAuthenticator) WithLogger(logger Logger) *RequestAuthenticator {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// GetCredentials returns the user behind the request, or nil when the
// request is anonymous. The session cookie wins over a bearer header.
// Suspended and remote users resolve to anonymous.
func (r *RequestAuthenticator) GetCredentials(c *fiber.Ctx) (*User, error) {
	ctx := c.UserContext()

	if token := c.Cookies(r.cfg.GetSessionCookieName()); token != "" {
		user, err := r.repo.Sessions().GetUser(ctx, token)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return r.usable(user), nil
	}

	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, bearerPrefix) && r.tokens != nil {
		userID, err := r.tokens.Validate(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			return nil, nil
		}

		user, err := r.repo.Users().GetByID(ctx, userID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return r.usable(user), nil
	}

	return nil, nil
}

// IsAuthenticated reports whether the request carries a live session.
func (r *RequestAuthenticator) IsAuthenticated(c *fiber.Ctx) bool {
	token := c.Cookies(r.cfg.GetSessionCookieName())
	if token == "" {
		return false
	}

	ok, err := r.authority.Validate(c.UserContext(), token)
	if err != nil {
		r.logger.Error("session validation failed: %v", err)
		return false
	}

	return ok
}

// RequireAuth rejects anonymous requests with a generic 401. The
// response never says which check failed.
func (r *RequestAuthenticator) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := r.GetCredentials(c)
		if err != nil {
			r.logger.Error("credential resolution failed: %v", err)
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		if user == nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// StartSession logs the user in and sets the session cookie.
func (r *RequestAuthenticator) StartSession(c *fiber.Ctx, userID ID, meta SessionMeta) error {
	if meta.IP == "" {
		meta.IP = c.IP()
	}
	if meta.UserAgent == "" {
		meta.UserAgent = c.Get(fiber.HeaderUserAgent)
	}

	token, err := r.authority.Login(c.UserContext(), userID, meta)
	if err != nil {
		return err
	}

	cookie := &fiber.Cookie{
		Name:     r.cfg.GetSessionCookieName(),
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   r.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if meta.ExpiresAt != nil {
		cookie.Expires = *meta.ExpiresAt
	}
	c.Cookie(cookie)

	return nil
}

// EndSession revokes the session and clears the cookie. Clearing
// happens even when revocation fails so the browser forgets the token.
func (r *RequestAuthenticator) EndSession(c *fiber.Ctx) error {
	name := r.cfg.GetSessionCookieName()
	token := c.Cookies(name)

	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   r.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Unix(0, 0),
	})

	if token == "" {
		return nil
	}

	return r.authority.Revoke(c.UserContext(), token)
}

// IssueCSRF mints a pair, sets the cookie half, and returns the form
// half for embedding in the rendered page.
func (r *RequestAuthenticator) IssueCSRF(c *fiber.Ctx, protector csrf.Protector) (string, error) {
	pair, err := protector.Issue(c.UserContext())
	if err != nil {
		return "", err
	}

	c.Cookie(&fiber.Cookie{
		Name:     r.cfg.GetCSRFCookieName(),
		Value:    pair.CookieValue,
		Path:     "/",
		HTTPOnly: true,
		Secure:   r.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteStrictMode,
		MaxAge:   int(csrf.PairTTL.Seconds()),
	})

	return pair.FormToken, nil
}

// RequireCSRF verifies the pair on mutating requests and retires it on
// success. Rejections are a generic 403.
func (r *RequestAuthenticator) RequireCSRF(protector csrf.Protector) fiber.Handler {
	safe := map[string]bool{
		fiber.MethodGet:     true,
		fiber.MethodHead:    true,
		fiber.MethodOptions: true,
		fiber.MethodTrace:   true,
	}

	return func(c *fiber.Ctx) error {
		if safe[c.Method()] {
			return c.Next()
		}

		cookieValue := c.Cookies(r.cfg.GetCSRFCookieName())
		formToken := c.FormValue(r.cfg.GetCSRFFormField())

		if err := protector.Verify(c.UserContext(), cookieValue, formToken); err != nil {
			if !goerrors.Is(err, csrf.ErrVerificationFailed) {
				r.logger.Error("csrf verification errored: %v", err)
			}
			return c.SendStatus(fiber.StatusForbidden)
		}

		if err := protector.Redeem(c.UserContext(), formToken); err != nil {
			r.logger.Error("csrf pair retirement failed: %v", err)
			return c.SendStatus(fiber.StatusForbidden)
		}

		return c.Next()
	}
}

// usable filters users that may not act: remote, suspended, deleted.
func (r *RequestAuthenticator) usable(user *User) *User {
	if user == nil || !user.IsLocal() || !user.IsActive() {
		return nil
	}
	return user
}
