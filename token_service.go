package idbridge

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenTTL is used when the configuration does not set one.
const DefaultTokenTTL = 30 * time.Minute

// TokenServiceImpl implements the TokenService interface with a symmetric
// HS256 secret.
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance from config.
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	ttl := cfg.GetTokenTTL()
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		ttl:        ttl,
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Encode signs claims into a compact token string. The subject must be set
// by the caller; issuer, audience, issued-at, and expiration come from the
// service. A zero ttl uses the configured default; a negative ttl produces
// an already-expired token, which some tests rely on.
func (ts *TokenServiceImpl) Encode(claims *TokenClaims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}
	if !claims.HasSubject() {
		return "", ErrMissingSubject
	}
	if ttl == 0 {
		ttl = ts.ttl
	}

	now := ts.now()
	claims.RegisteredClaims.Issuer = ts.issuer
	claims.RegisteredClaims.Audience = ts.audience
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	if claims.Roles.Values() == nil {
		claims.Roles = NewClaimList()
	}
	if claims.Permissions.Values() == nil {
		claims.Permissions = NewClaimList()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Decode verifies the signature and validates standard claims, surfacing
// the first failing check in the order signature, expiration, not-before,
// issued-at, issuer, audience. Subject presence is deliberately not
// enforced here.
func (ts *TokenServiceImpl) Decode(tokenString string) (*TokenClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService decode encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService decode could not map claims")
	return nil, ErrTokenMalformed
}

var _ TokenService = (*TokenServiceImpl)(nil)

// classifyTokenError maps jwt parse failures onto the error taxonomy. The
// checks run in the fixed claim validation order so the first failing check
// determines the reason, even when the parser reports several at once.
func classifyTokenError(err error) error {
	ordered := []struct {
		sentinel error
		kind     *goerrors.Error
	}{
		{jwt.ErrTokenSignatureInvalid, ErrTokenBadSignature},
		{jwt.ErrTokenExpired, ErrTokenExpired},
		{jwt.ErrTokenNotValidYet, ErrTokenNotYetValid},
		{jwt.ErrTokenUsedBeforeIssued, ErrTokenIssuedInFuture},
		{jwt.ErrTokenInvalidIssuer, ErrTokenInvalidIssuer},
		{jwt.ErrTokenInvalidAudience, ErrTokenInvalidAudience},
		{jwt.ErrTokenRequiredClaimMissing, ErrTokenMissingClaim},
	}

	for _, check := range ordered {
		if stderrors.Is(err, check.sentinel) {
			clone := check.kind.Clone()
			clone.Source = err
			return clone.WithMetadata(map[string]any{"cause": err.Error()})
		}
	}

	clone := ErrTokenMalformed.Clone()
	clone.Source = err
	return clone.WithMetadata(map[string]any{"cause": err.Error()})
}
