package idbridge

import (
	"time"

	"github.com/uptrace/bun"
)

// Role is the user's role within this system. The set is closed; external
// role strings map into it through MapExternalRoles.
type Role string

const (
	// RoleAdmin grants administrative access.
	RoleAdmin Role = "admin"
	// RoleCustomer is the default role for federated users.
	RoleCustomer Role = "customer"
	// RoleServiceProvider identifies provider-side accounts.
	RoleServiceProvider Role = "service_provider"
)

// IsValid checks if the role is one of the predefined valid roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleServiceProvider:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// AllRoles returns all predefined roles.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleCustomer, RoleServiceProvider}
}

// ParseRole safely parses a string into a Role.
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// MapExternalRoles maps the upstream role strings onto the internal role
// set. The external sequence is scanned in order and the first recognized
// value wins; unrecognized strings are ignored. The default is RoleCustomer.
func MapExternalRoles(external []string) Role {
	for _, raw := range external {
		if role, ok := ParseRole(raw); ok {
			return role
		}
	}
	return RoleCustomer
}

// User is the internal user record. There is exactly one row per external
// identity and one per email; both columns carry a uniqueness constraint
// the store relies on for concurrent first-time logins.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	ExternalID    string     `bun:"external_id,notnull,unique" json:"external_id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	Role          Role       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Active        bool       `bun:"is_active" json:"is_active,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserUpdate is a partial update. Nil fields are left untouched.
type UserUpdate struct {
	Email       *string
	DisplayName *string
	Role        *Role
	Active      *bool
	LastLoginAt *time.Time
}

// ExternalIdentity is what the upstream IdP reports about an authenticated
// user. It is ephemeral: built per login call, never persisted verbatim.
type ExternalIdentity struct {
	Subject     string
	Email       string
	DisplayName string
	Roles       []string
	Permissions []string
}

// HasSubject reports whether the upstream delivered a stable identifier.
func (e *ExternalIdentity) HasSubject() bool {
	return e != nil && e.Subject != ""
}
