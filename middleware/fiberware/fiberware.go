// Package fiberware guards protected fiber routes: it extracts the bearer
// token, decodes and re-validates it, evaluates the route's permission and
// role requirement, and attaches the grant (and optionally the resolved
// user) to the request context.
package fiberware

import (
	"strings"

	idbridge "github.com/arcline/go-idbridge"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultGrantKey   = "grant"
	defaultUserKey    = "user"
	defaultAuthScheme = "Bearer"
)

// UserResolver loads the user a validated token references.
type UserResolver interface {
	ResolveUserFromToken(ctx *fiber.Ctx, token string) (*idbridge.User, error)
}

// AuthenticatorResolver adapts an *idbridge.Authenticator.
func AuthenticatorResolver(auth *idbridge.Authenticator) UserResolver {
	return resolverFunc(func(c *fiber.Ctx, token string) (*idbridge.User, error) {
		return auth.ResolveUserFromToken(c.UserContext(), token)
	})
}

type resolverFunc func(c *fiber.Ctx, token string) (*idbridge.User, error)

func (f resolverFunc) ResolveUserFromToken(c *fiber.Ctx, token string) (*idbridge.User, error) {
	return f(c, token)
}

type Config struct {
	// Tokens decodes and validates internal tokens. Required.
	Tokens idbridge.TokenService

	// Requirement is evaluated against the decoded grant.
	Requirement idbridge.Requirement

	// Resolver optionally loads the referenced user and stores it under
	// UserKey. Leave nil for routes that only need the grant.
	Resolver UserResolver

	// Filter skips the middleware when it returns true.
	Filter func(*fiber.Ctx) bool

	// ErrorHandler maps failures to a response. Defaults to ErrorHandler.
	ErrorHandler func(*fiber.Ctx, error) error

	AuthScheme string
	GrantKey   string
	UserKey    string
}

// New returns a guard middleware for protected routes.
func New(cfg Config) fiber.Handler {
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}
	if cfg.GrantKey == "" {
		cfg.GrantKey = defaultGrantKey
	}
	if cfg.UserKey == "" {
		cfg.UserKey = defaultUserKey
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ErrorHandler
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		token, err := extractToken(c, cfg.AuthScheme)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Tokens.Decode(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		grant, err := idbridge.Authorize(claims, cfg.Requirement)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.GrantKey, grant)
		c.SetUserContext(idbridge.WithGrantContext(c.UserContext(), grant))

		if cfg.Resolver != nil {
			user, err := cfg.Resolver.ResolveUserFromToken(c, token)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}
			c.Locals(cfg.UserKey, user)
			c.SetUserContext(idbridge.WithContext(c.UserContext(), user))
		}

		return c.Next()
	}
}

// GetGrant extracts the Grant stored by the middleware.
func GetGrant(c *fiber.Ctx, key string) (idbridge.Grant, bool) {
	if key == "" {
		key = defaultGrantKey
	}
	grant, ok := c.Locals(key).(idbridge.Grant)
	return grant, ok
}

// GetUser extracts the user stored by the middleware.
func GetUser(c *fiber.Ctx, key string) (*idbridge.User, bool) {
	if key == "" {
		key = defaultUserKey
	}
	user, ok := c.Locals(key).(*idbridge.User)
	return user, ok
}

func extractToken(c *fiber.Ctx, scheme string) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	prefix := scheme + " "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return "", cloneUnauthenticated("missing or malformed authorization header")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", cloneUnauthenticated("empty bearer token")
	}
	return token, nil
}

func cloneUnauthenticated(reason string) error {
	clone := idbridge.ErrUnauthenticated.Clone()
	clone.Message = idbridge.ErrUnauthenticated.Message + ": " + reason
	clone.Source = idbridge.ErrUnauthenticated
	return clone
}

// ErrorHandler is the default failure response: one deterministic status
// per error kind, with the text code in the body so clients can branch
// without parsing messages.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := StatusForError(err)
	body := fiber.Map{"error": err.Error()}
	if code := idbridge.TextCode(err); code != "" {
		body["code"] = code
	}
	return c.Status(status).JSON(body)
}

// StatusForError maps the error taxonomy onto HTTP statuses. A malformed
// grant is a structural defect and gets its own deterministic signal (422)
// instead of being folded into 403.
func StatusForError(err error) int {
	switch idbridge.TextCode(err) {
	case idbridge.TextCodeMalformedGrant:
		return fiber.StatusUnprocessableEntity
	case idbridge.TextCodeInsufficientGrant:
		return fiber.StatusForbidden
	case idbridge.TextCodeUpstreamUnavailable:
		return fiber.StatusServiceUnavailable
	}

	var structured *goerrors.Error
	if goerrors.As(err, &structured) {
		switch structured.Category {
		case goerrors.CategoryAuth, goerrors.CategoryNotFound:
			return fiber.StatusUnauthorized
		case goerrors.CategoryAuthz:
			return fiber.StatusForbidden
		case goerrors.CategoryOperation, goerrors.CategoryInternal:
			return fiber.StatusInternalServerError
		}
	}

	return fiber.StatusUnauthorized
}
