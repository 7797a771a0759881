package fiberware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	idbridge "github.com/arcline/go-idbridge"
	"github.com/arcline/go-idbridge/middleware/fiberware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key-0123456789abcdef"

func newTokens(t *testing.T) idbridge.TokenService {
	t.Helper()
	return idbridge.NewTokenService(idbridge.TokenConfig{
		SigningKey: testSigningKey,
		TokenTTL:   30 * time.Minute,
		Issuer:     "https://idbridge.test/",
		Audience:   []string{"internal-api"},
	}, nil)
}

func mintToken(t *testing.T, permissions ...string) string {
	t.Helper()
	token, err := newTokens(t).Encode(&idbridge.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
		Roles:            idbridge.NewClaimList("customer"),
		Permissions:      idbridge.NewClaimList(permissions...),
	}, 0)
	require.NoError(t, err)
	return token
}

func newApp(t *testing.T, cfg fiberware.Config) *fiber.App {
	t.Helper()
	if cfg.Tokens == nil {
		cfg.Tokens = newTokens(t)
	}
	app := fiber.New()
	app.Get("/protected", fiberware.New(cfg), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func request(t *testing.T, app *fiber.App, authorization string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestGuard_MissingHeader(t *testing.T) {
	app := newApp(t, fiberware.Config{})

	resp, body := request(t, app, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, idbridge.TextCodeUnauthenticated, body["code"])
}

func TestGuard_WrongScheme(t *testing.T) {
	app := newApp(t, fiberware.Config{})

	resp, _ := request(t, app, "Basic dXNlcjpwYXNz")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGuard_ValidToken(t *testing.T) {
	app := newApp(t, fiberware.Config{
		Requirement: idbridge.Requirement{Permissions: []string{"orders:read"}},
	})

	resp, _ := request(t, app, "Bearer "+mintToken(t, "orders:read", "orders:write"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuard_GrantAvailableToHandler(t *testing.T) {
	cfg := fiberware.Config{}
	cfg.Tokens = newTokens(t)

	app := fiber.New()
	app.Get("/protected", fiberware.New(cfg), func(c *fiber.Ctx) error {
		grant, ok := fiberware.GetGrant(c, "")
		require.True(t, ok)
		assert.True(t, grant.HasAllPermissions("orders:read"))
		assert.True(t, idbridge.Can(c.UserContext(), "orders:read"))
		return c.SendString("ok")
	})

	resp, _ := request(t, app, "Bearer "+mintToken(t, "orders:read"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuard_MissingPermission(t *testing.T) {
	app := newApp(t, fiberware.Config{
		Requirement: idbridge.Requirement{Permissions: []string{"orders:delete"}},
	})

	resp, body := request(t, app, "Bearer "+mintToken(t, "orders:read"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, idbridge.TextCodeInsufficientGrant, body["code"])
}

func TestGuard_ExpiredToken(t *testing.T) {
	token, err := newTokens(t).Encode(&idbridge.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}, -1*time.Second)
	require.NoError(t, err)

	app := newApp(t, fiberware.Config{})

	resp, body := request(t, app, "Bearer "+token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, idbridge.TextCodeTokenExpired, body["code"])
}

// A structurally broken grant claim is a deterministic 422, never a 403.
func TestGuard_MalformedGrant(t *testing.T) {
	now := time.Now()
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         "1",
		"iss":         "https://idbridge.test/",
		"aud":         "internal-api",
		"iat":         now.Unix(),
		"exp":         now.Add(30 * time.Minute).Unix(),
		"permissions": "admin",
	})
	token, err := raw.SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	app := newApp(t, fiberware.Config{})

	resp, body := request(t, app, "Bearer "+token)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, idbridge.TextCodeMalformedGrant, body["code"])
}

type stubResolver struct {
	user *idbridge.User
	err  error
}

func (r stubResolver) ResolveUserFromToken(*fiber.Ctx, string) (*idbridge.User, error) {
	return r.user, r.err
}

func TestGuard_ResolverAttachesUser(t *testing.T) {
	cfg := fiberware.Config{
		Tokens:   newTokens(t),
		Resolver: stubResolver{user: &idbridge.User{ID: 1, Email: "ada@example.com"}},
	}

	app := fiber.New()
	app.Get("/protected", fiberware.New(cfg), func(c *fiber.Ctx) error {
		user, ok := fiberware.GetUser(c, "")
		require.True(t, ok)
		assert.Equal(t, int64(1), user.ID)

		fromCtx, ok := idbridge.FromContext(c.UserContext())
		require.True(t, ok)
		assert.Equal(t, user, fromCtx)
		return c.SendString("ok")
	})

	resp, _ := request(t, app, "Bearer "+mintToken(t))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuard_ResolverUnknownUser(t *testing.T) {
	app := newApp(t, fiberware.Config{
		Resolver: stubResolver{err: idbridge.ErrUnknownUser},
	})

	resp, body := request(t, app, "Bearer "+mintToken(t))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, idbridge.TextCodeUnknownUser, body["code"])
}

func TestGuard_FilterSkips(t *testing.T) {
	app := newApp(t, fiberware.Config{
		Filter: func(*fiber.Ctx) bool { return true },
	})

	resp, _ := request(t, app, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed grant", idbridge.ErrMalformedGrant, fiber.StatusUnprocessableEntity},
		{"insufficient grant", idbridge.ErrInsufficientGrant, fiber.StatusForbidden},
		{"upstream unavailable", idbridge.ErrUpstreamUnavailable, fiber.StatusServiceUnavailable},
		{"expired token", idbridge.ErrTokenExpired, fiber.StatusUnauthorized},
		{"unknown user", idbridge.ErrUnknownUser, fiber.StatusUnauthorized},
		{"creation failed", idbridge.ErrUserCreationFailed, fiber.StatusInternalServerError},
		{"plain error", errors.New("boom"), fiber.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fiberware.StatusForError(tc.err))
		})
	}
}
