package auth0

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultTimeout  = 10 * time.Second
	jwksPath        = "/.well-known/jwks.json"
	userinfoPath    = "/userinfo"
	defaultProvider = "auth0"
)

// Config holds the upstream IdP endpoints for the broker.
type Config struct {
	// Domain is the tenant domain (e.g. "example.us.auth0.com").
	Domain string

	// Issuer overrides the default base URL derived from Domain (optional).
	Issuer string

	// Timeout bounds every upstream call. Default: 10 seconds.
	Timeout time.Duration

	// Namespace is an optional prefix for custom claims in the userinfo
	// response (e.g. "https://example.com/"). Auth0 requires namespacing
	// for custom claims; plain keys are always tried as a fallback.
	Namespace string
}

func (c Config) baseURL() string {
	if c.Issuer != "" {
		return strings.TrimSuffix(normalizeIssuer(c.Issuer), "/")
	}

	domain := strings.TrimSpace(c.Domain)
	if domain == "" {
		return ""
	}

	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return strings.TrimSuffix(domain, "/")
	}

	return fmt.Sprintf("https://%s", strings.TrimSuffix(domain, "/"))
}

func (c Config) jwksURL() string {
	return c.baseURL() + jwksPath
}

func (c Config) userinfoURL() string {
	return c.baseURL() + userinfoPath
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c Config) namespacedKey(key string) string {
	namespace := strings.TrimSpace(c.Namespace)
	if namespace == "" {
		return ""
	}
	if !strings.HasSuffix(namespace, "/") && !strings.HasSuffix(namespace, ":") {
		namespace += "/"
	}
	return namespace + key
}

func normalizeIssuer(issuer string) string {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return issuer
	}
	if strings.HasSuffix(issuer, "/") {
		return issuer
	}
	return issuer + "/"
}
