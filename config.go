package idbridge

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// TokenConfig is a plain-value Config implementation. Components receive it
// explicitly at construction; there is no ambient settings lookup.
type TokenConfig struct {
	// SigningKey is the shared HS256 secret.
	SigningKey string

	// TokenTTL is the default lifetime of minted tokens. Zero means
	// DefaultTokenTTL.
	TokenTTL time.Duration

	// Issuer is stamped into and required from every internal token.
	Issuer string

	// Audience is stamped into and required from every internal token.
	Audience []string
}

var _ Config = TokenConfig{}

func (c TokenConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c TokenConfig) GetTokenTTL() time.Duration {
	if c.TokenTTL <= 0 {
		return DefaultTokenTTL
	}
	return c.TokenTTL
}

func (c TokenConfig) GetIssuer() string {
	return c.Issuer
}

func (c TokenConfig) GetAudience() []string {
	return c.Audience
}

// Validate checks the configuration is usable for signing and validation.
func (c TokenConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.Audience, validation.Required),
	)
}
