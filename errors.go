package idbridge

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes identify the precise failure reason on a structured error.
// They are stable: clients and middleware key off them, not off messages.
const (
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenNotYetValid     = "TOKEN_NOT_YET_VALID"
	TextCodeTokenIssuedInFuture  = "TOKEN_ISSUED_IN_FUTURE"
	TextCodeTokenInvalidIssuer   = "TOKEN_INVALID_ISSUER"
	TextCodeTokenInvalidAudience = "TOKEN_INVALID_AUDIENCE"
	TextCodeTokenBadSignature    = "TOKEN_INVALID_SIGNATURE"
	TextCodeTokenMissingClaim    = "TOKEN_MISSING_CLAIM"
	TextCodeTokenMissingSubject  = "TOKEN_MISSING_SUBJECT"

	TextCodeUnauthenticated   = "UNAUTHENTICATED"
	TextCodeInsufficientGrant = "INSUFFICIENT_GRANT"
	TextCodeMalformedGrant    = "MALFORMED_GRANT"

	TextCodeUpstreamUnavailable     = "UPSTREAM_UNAVAILABLE"
	TextCodeUpstreamRejected        = "UPSTREAM_REJECTED"
	TextCodeInvalidExternalIdentity = "INVALID_EXTERNAL_IDENTITY"

	TextCodeUserConflict        = "USER_CONFLICT"
	TextCodeUserCreationFailed  = "USER_CREATION_FAILED"
	TextCodeUserLookupFailed    = "USER_LOOKUP_FAILED"
	TextCodeUnknownUser         = "UNKNOWN_USER"
	TextCodeInvalidTokenSubject = "INVALID_TOKEN_SUBJECT"
)

// Authentication errors: the token itself cannot be trusted. The text code
// carries the first failing check in the fixed validation order
// (signature, exp, nbf, iat, iss, aud).
var (
	// ErrTokenMalformed covers tokens that are not parseable at all.
	ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenMalformed)

	// ErrTokenBadSignature covers signature verification failures.
	ErrTokenBadSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenBadSignature)

	// ErrTokenExpired covers tokens past their expiration.
	ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenExpired)

	// ErrTokenNotYetValid covers tokens used before their not-before time.
	ErrTokenNotYetValid = goerrors.New("token is not valid yet", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenNotYetValid)

	// ErrTokenIssuedInFuture covers tokens with an issued-at in the future.
	ErrTokenIssuedInFuture = goerrors.New("token issued in the future", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenIssuedInFuture)

	// ErrTokenInvalidIssuer covers issuer mismatches.
	ErrTokenInvalidIssuer = goerrors.New("token has invalid issuer", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenInvalidIssuer)

	// ErrTokenInvalidAudience covers audience mismatches.
	ErrTokenInvalidAudience = goerrors.New("token has invalid audience", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenInvalidAudience)

	// ErrTokenMissingClaim covers tokens missing a claim required for validation.
	ErrTokenMissingClaim = goerrors.New("token is missing a required claim", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenMissingClaim)

	// ErrMissingSubject is returned by Encode when claims carry no subject.
	ErrMissingSubject = goerrors.New("claims must contain a subject", goerrors.CategoryBadInput).
				WithTextCode(TextCodeTokenMissingSubject)
)

// Authorization errors: the caller is authenticated but not permitted, or
// the token carries structurally broken grant fields.
var (
	// ErrUnauthenticated is returned when no claims are available at all.
	ErrUnauthenticated = goerrors.New("not authenticated", goerrors.CategoryAuth).
				WithTextCode(TextCodeUnauthenticated)

	// ErrInsufficientGrant is returned when the grant does not cover the
	// required permissions or role. Metadata names what is missing.
	ErrInsufficientGrant = goerrors.New("insufficient permissions", goerrors.CategoryAuthz).
				WithTextCode(TextCodeInsufficientGrant)

	// ErrMalformedGrant is returned when a roles or permissions claim is
	// present but is not a sequence of strings. This is an upstream
	// token-construction defect, never a plain denial.
	ErrMalformedGrant = goerrors.New("grant fields are malformed", goerrors.CategoryBadInput).
				WithTextCode(TextCodeMalformedGrant)
)

// Identity errors: the federation step against the upstream IdP failed.
var (
	// ErrUpstreamUnavailable covers transport failures and timeouts.
	ErrUpstreamUnavailable = goerrors.New("identity provider is unavailable", goerrors.CategoryOperation).
				WithTextCode(TextCodeUpstreamUnavailable)

	// ErrUpstreamRejected covers non-success responses from the IdP.
	ErrUpstreamRejected = goerrors.New("identity provider rejected the request", goerrors.CategoryAuth).
				WithTextCode(TextCodeUpstreamRejected)

	// ErrInvalidExternalIdentity covers identities the upstream delivered
	// that are unusable (missing subject or email).
	ErrInvalidExternalIdentity = goerrors.New("invalid external identity", goerrors.CategoryValidation).
					WithTextCode(TextCodeInvalidExternalIdentity)
)

// User resolution errors.
var (
	// ErrUserConflict is returned by the store when a create violates the
	// uniqueness of external_id or email.
	ErrUserConflict = goerrors.New("user already exists", goerrors.CategoryConflict).
			WithTextCode(TextCodeUserConflict)

	// ErrUserCreationFailed is returned when persisting a new user fails
	// and the conflict re-read could not recover.
	ErrUserCreationFailed = goerrors.New("could not create user", goerrors.CategoryInternal).
				WithTextCode(TextCodeUserCreationFailed)

	// ErrUserLookupFailed wraps store read failures.
	ErrUserLookupFailed = goerrors.New("could not look up user", goerrors.CategoryOperation).
				WithTextCode(TextCodeUserLookupFailed)

	// ErrUnknownUser is returned when a valid token references a user that
	// no longer exists.
	ErrUnknownUser = goerrors.New("user not found for token", goerrors.CategoryNotFound).
			WithTextCode(TextCodeUnknownUser)

	// ErrInvalidTokenSubject is returned when a token subject is absent or
	// not a positive integer.
	ErrInvalidTokenSubject = goerrors.New("invalid token subject", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidTokenSubject)
)

// TextCode returns the text code of a structured error, or "".
func TextCode(err error) string {
	var structured *goerrors.Error
	if goerrors.As(err, &structured) {
		return structured.TextCode
	}
	return ""
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, code string) bool {
	return code != "" && TextCode(err) == code
}

// IsTokenExpiredError will check for expired tokens.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for unparseable tokens.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsAuthenticationError reports whether err means the token is untrustworthy.
func IsAuthenticationError(err error) bool {
	var structured *goerrors.Error
	if !goerrors.As(err, &structured) {
		return false
	}
	return structured.Category == goerrors.CategoryAuth
}

// IsConflictError reports whether err is a uniqueness violation, either a
// structured conflict or a raw driver error. Drivers disagree on how they
// spell unique violations, hence the string checks.
func IsConflictError(err error) bool {
	if err == nil {
		return false
	}
	var structured *goerrors.Error
	if goerrors.As(err, &structured) && structured.Category == goerrors.CategoryConflict {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed")
}

// cloneWithReason produces a per-call copy of a sentinel with a specific
// reason while keeping its category and text code.
func cloneWithReason(base *goerrors.Error, reason string) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Message = base.Message + ": " + reason
	clone.Source = base
	return clone.WithMetadata(map[string]any{"reason": reason})
}
