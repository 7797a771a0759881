package auth0

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/MicahParks/keyfunc/v2"
	idbridge "github.com/arcline/go-idbridge"
	goerrors "github.com/goliatone/go-errors"
)

// Client is the Auth0-backed IdentityBroker. It delivers whatever the
// upstream returns; semantic validation of the identity (subject, email)
// belongs to the Authenticator.
type Client struct {
	config Config
	http   *http.Client
	logger idbridge.Logger
}

var _ idbridge.IdentityBroker = (*Client)(nil)

// NewClient creates an Auth0-backed identity broker.
func NewClient(cfg Config) (*Client, error) {
	if cfg.baseURL() == "" {
		return nil, goerrors.New("auth0: domain or issuer is required", goerrors.CategoryBadInput)
	}

	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.timeout()},
		logger: nil,
	}, nil
}

func (c *Client) WithLogger(logger idbridge.Logger) *Client {
	c.logger = logger
	return c
}

// WithHTTPClient overrides the transport. The client must enforce its own
// timeout; upstream calls are never allowed to hang the caller.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.http = client
	}
	return c
}

// FetchPublicKeys retrieves the upstream's current JWKS document. The
// fetch is done here rather than inside keyfunc so transport failures and
// rejections classify separately.
func (c *Client) FetchPublicKeys(ctx context.Context) (idbridge.PublicKeySet, error) {
	body, err := c.get(ctx, c.config.jwksURL(), "")
	if err != nil {
		return nil, err
	}

	jwks, err := keyfunc.NewJSON(json.RawMessage(body))
	if err != nil {
		return nil, c.rejected(err, "invalid key set document", 0)
	}

	return jwks, nil
}

// FetchExternalIdentity presents the caller's external access token to the
// userinfo endpoint and maps the response. An identity without a subject is
// returned as-is, not rejected here.
func (c *Client) FetchExternalIdentity(ctx context.Context, accessToken string) (*idbridge.ExternalIdentity, error) {
	body, err := c.get(ctx, c.config.userinfoURL(), accessToken)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, c.rejected(err, "unparseable userinfo response", 0)
	}

	return c.mapUserinfo(raw), nil
}

func (c *Client) mapUserinfo(raw map[string]any) *idbridge.ExternalIdentity {
	identity := &idbridge.ExternalIdentity{
		Subject:     stringClaim(raw, "sub"),
		Email:       stringClaim(raw, "email"),
		DisplayName: stringClaim(raw, "name"),
		Roles:       c.sliceClaim(raw, "roles"),
		Permissions: c.sliceClaim(raw, "permissions"),
	}

	if identity.DisplayName == "" {
		identity.DisplayName = stringClaim(raw, "nickname")
	}

	return identity
}

// sliceClaim tries the namespaced key first, then the plain key.
func (c *Client) sliceClaim(raw map[string]any, key string) []string {
	if namespaced := c.config.namespacedKey(key); namespaced != "" {
		if values := stringSliceFromAny(raw[namespaced]); values != nil {
			return values
		}
	}
	return stringSliceFromAny(raw[key])
}

func (c *Client) get(ctx context.Context, url, bearer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "auth0: build request")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("auth0 upstream call failed", "url", url, "error", err)
		}
		return nil, goerrors.Wrap(err, idbridge.ErrUpstreamUnavailable.Category, idbridge.ErrUpstreamUnavailable.Message).
			WithTextCode(idbridge.ErrUpstreamUnavailable.TextCode)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerrors.Wrap(err, idbridge.ErrUpstreamUnavailable.Category, idbridge.ErrUpstreamUnavailable.Message).
			WithTextCode(idbridge.ErrUpstreamUnavailable.TextCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if c.logger != nil {
			c.logger.Warn("auth0 upstream rejected request", "url", url, "status", resp.StatusCode)
		}
		return nil, c.rejected(nil, fmt.Sprintf("status %d", resp.StatusCode), resp.StatusCode)
	}

	return body, nil
}

func (c *Client) rejected(cause error, reason string, status int) error {
	clone := idbridge.ErrUpstreamRejected.Clone()
	clone.Message = idbridge.ErrUpstreamRejected.Message + ": " + reason
	clone.Source = cause
	metadata := map[string]any{"provider": defaultProvider, "reason": reason}
	if status != 0 {
		metadata["status"] = status
	}
	return clone.WithMetadata(metadata)
}

func stringClaim(raw map[string]any, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}

func stringSliceFromAny(val any) []string {
	switch typed := val.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, entry := range typed {
			if str, ok := entry.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
