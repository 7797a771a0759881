package idbridge

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimList is a JSON string array claim that tolerates malformed input.
// Absent and null decode to an empty, well-formed list. A present value
// that is not an array of strings decodes without error but is flagged
// malformed, so token verification stays orthogonal to grant structure
// and the defect surfaces as a MALFORMED_GRANT at authorization time.
type ClaimList struct {
	values    []string
	malformed bool
}

// NewClaimList builds a well-formed list. A nil argument yields an empty
// list that still marshals as [].
func NewClaimList(values ...string) ClaimList {
	if values == nil {
		values = []string{}
	}
	return ClaimList{values: values}
}

// Values returns the claim values. Nil when absent or malformed.
func (c ClaimList) Values() []string {
	if c.malformed {
		return nil
	}
	return c.values
}

// Malformed reports whether the wire value was structurally invalid.
func (c ClaimList) Malformed() bool {
	return c.malformed
}

func (c ClaimList) MarshalJSON() ([]byte, error) {
	if c.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.values)
}

func (c *ClaimList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch typed := raw.(type) {
	case nil:
		c.values = nil
		c.malformed = false
	case []any:
		values := make([]string, 0, len(typed))
		for _, entry := range typed {
			str, ok := entry.(string)
			if !ok {
				c.values = nil
				c.malformed = true
				return nil
			}
			values = append(values, str)
		}
		c.values = values
		c.malformed = false
	default:
		c.values = nil
		c.malformed = true
	}

	return nil
}

// TokenClaims is the exact internal token claim set: sub, roles,
// permissions, iss, aud, iat, exp (plus nbf when a consumer sets one).
type TokenClaims struct {
	jwt.RegisteredClaims
	Roles       ClaimList `json:"roles"`
	Permissions ClaimList `json:"permissions"`
}

// HasSubject reports whether the sub claim is present.
func (c *TokenClaims) HasSubject() bool {
	return c != nil && c.RegisteredClaims.Subject != ""
}

// Subject returns the sub claim.
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time, zero when unset.
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedTime returns the issued-at time, zero when unset.
func (c *TokenClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
