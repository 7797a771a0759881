package idbridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Logger takes a message followed by alternating key/value pairs, the
// shape zap's sugared *w methods expect. The built-in fallback renders
// the pairs as key=value.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// TokenService mints and verifies internal tokens. Both operations are pure
// CPU work; neither blocks on I/O.
type TokenService interface {
	// Encode signs claims into a compact token. A zero ttl uses the
	// configured default. Claims must carry a subject.
	Encode(claims *TokenClaims, ttl time.Duration) (string, error)

	// Decode verifies the signature and validates standard claims. It does
	// NOT require a subject; callers that need one check separately.
	Decode(token string) (*TokenClaims, error)
}

// PublicKeySet is the upstream signing key set as delivered by the IdP.
type PublicKeySet interface {
	Len() int
	KIDs() []string
}

// IdentityBroker talks to the upstream identity provider. Its contract is
// to deliver whatever the upstream returned; semantic validation of the
// identity belongs to the Authenticator.
type IdentityBroker interface {
	FetchPublicKeys(ctx context.Context) (PublicKeySet, error)
	FetchExternalIdentity(ctx context.Context, accessToken string) (*ExternalIdentity, error)
}

// UserStore persists internal user records. Find methods return (nil, nil)
// when no record matches. Create surfaces uniqueness violations as a
// conflict error (IsConflictError returns true).
type UserStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, id int64, patch UserUpdate) (*User, error)
}

// Config holds the token issuance settings.
type Config interface {
	GetSigningKey() string
	GetTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
}

type defLogger struct {
	out io.Writer
}

func (d defLogger) Error(msg string, keysAndValues ...any) {
	d.print("[ERR]", msg, keysAndValues)
}

func (d defLogger) Warn(msg string, keysAndValues ...any) {
	d.print("[WRN]", msg, keysAndValues)
}

func (d defLogger) Info(msg string, keysAndValues ...any) {
	d.print("[INF]", msg, keysAndValues)
}

func (d defLogger) Debug(msg string, keysAndValues ...any) {
	d.print("[DBG]", msg, keysAndValues)
}

func (d defLogger) print(level, msg string, keysAndValues []any) {
	out := d.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, logLine(level, msg, keysAndValues))
}

func logLine(level, msg string, keysAndValues []any) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" IDBRIDGE ")
	b.WriteString(msg)

	i := 0
	for ; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	// dangling key without a value
	if i < len(keysAndValues) {
		fmt.Fprintf(&b, " %v", keysAndValues[i])
	}

	return b.String()
}
