package idbridge

// HasAllPermissions reports whether held covers every required permission.
// An empty required set always passes; a non-empty required set against an
// empty held set always fails.
func HasAllPermissions(required, held []string) bool {
	if len(required) == 0 {
		return true
	}
	if len(held) == 0 {
		return false
	}
	index := make(map[string]struct{}, len(held))
	for _, perm := range held {
		index[perm] = struct{}{}
	}
	for _, perm := range required {
		if _, ok := index[perm]; !ok {
			return false
		}
	}
	return true
}

// HasRole reports whether held contains the required role. An empty
// required role means no role constraint.
func HasRole(required string, held []string) bool {
	if required == "" {
		return true
	}
	for _, role := range held {
		if role == required {
			return true
		}
	}
	return false
}

// Grant is the canonical request-time view of a token's authorization
// claims: absent and null fields normalize to empty sets before any policy
// logic runs.
type Grant struct {
	Permissions map[string]struct{}
	Roles       map[string]struct{}
}

// NewGrant builds a Grant from permission and role slices.
func NewGrant(permissions, roles []string) Grant {
	grant := Grant{
		Permissions: make(map[string]struct{}, len(permissions)),
		Roles:       make(map[string]struct{}, len(roles)),
	}
	for _, perm := range permissions {
		grant.Permissions[perm] = struct{}{}
	}
	for _, role := range roles {
		grant.Roles[role] = struct{}{}
	}
	return grant
}

// HasAllPermissions reports whether the grant covers every required permission.
func (g Grant) HasAllPermissions(required ...string) bool {
	for _, perm := range required {
		if _, ok := g.Permissions[perm]; !ok {
			return false
		}
	}
	return true
}

// MissingPermissions returns the required permissions the grant lacks.
func (g Grant) MissingPermissions(required ...string) []string {
	var missing []string
	for _, perm := range required {
		if _, ok := g.Permissions[perm]; !ok {
			missing = append(missing, perm)
		}
	}
	return missing
}

// HasRole reports whether the grant holds the role. An empty role means no
// constraint.
func (g Grant) HasRole(role string) bool {
	if role == "" {
		return true
	}
	_, ok := g.Roles[role]
	return ok
}

// GrantFromClaims normalizes token claims into a Grant. A roles or
// permissions claim that is present but not a string sequence yields
// ErrMalformedGrant naming the offending claim.
func GrantFromClaims(claims *TokenClaims) (Grant, error) {
	if claims == nil {
		return Grant{}, ErrUnauthenticated
	}
	if claims.Roles.Malformed() {
		return Grant{}, cloneWithReason(ErrMalformedGrant, "roles is not a string array")
	}
	if claims.Permissions.Malformed() {
		return Grant{}, cloneWithReason(ErrMalformedGrant, "permissions is not a string array")
	}
	return NewGrant(claims.Permissions.Values(), claims.Roles.Values()), nil
}

// Requirement is the policy a protected operation demands.
type Requirement struct {
	Permissions []string
	Role        string
}

// Authorize normalizes claims into a Grant and evaluates the requirement.
// Nil claims fail as unauthenticated; structurally broken grant fields fail
// as malformed; anything else that falls short is an insufficient grant
// naming the missing permissions or role.
func Authorize(claims *TokenClaims, req Requirement) (Grant, error) {
	grant, err := GrantFromClaims(claims)
	if err != nil {
		return Grant{}, err
	}

	if missing := grant.MissingPermissions(req.Permissions...); len(missing) > 0 {
		clone := ErrInsufficientGrant.Clone()
		clone.Source = ErrInsufficientGrant
		return Grant{}, clone.WithMetadata(map[string]any{
			"missing_permissions": missing,
		})
	}

	if !grant.HasRole(req.Role) {
		clone := ErrInsufficientGrant.Clone()
		clone.Source = ErrInsufficientGrant
		return Grant{}, clone.WithMetadata(map[string]any{
			"required_role": req.Role,
		})
	}

	return grant, nil
}
