package idbridge

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var grantCtxKey = &contextKey{"grant"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context.
func WithContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithGrantContext sets the Grant in the given context.
func WithGrantContext(ctx context.Context, grant Grant) context.Context {
	return context.WithValue(ctx, grantCtxKey, grant)
}

// GrantFromContext extracts the Grant from the context.
func GrantFromContext(ctx context.Context) (Grant, bool) {
	raw, ok := ctx.Value(grantCtxKey).(Grant)
	return raw, ok
}

// Can is a convenience to check a permission directly from the context.
func Can(ctx context.Context, permission string) bool {
	grant, ok := GrantFromContext(ctx)
	if !ok {
		return false
	}
	return grant.HasAllPermissions(permission)
}
