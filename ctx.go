package authclient

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// IdentityLocalsKey is the router locals key holding the guarded identity
const IdentityLocalsKey = "identity"

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext finds the identity stored by a guard.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityCtxKey).(*Identity)
	return id, ok && id != nil
}

// IdentityFromRouter finds the identity stored by the guard middleware
func IdentityFromRouter(ctx router.Context) (*Identity, bool) {
	raw := ctx.Locals(IdentityLocalsKey)
	if raw == nil {
		return nil, false
	}
	id, ok := raw.(*Identity)
	return id, ok && id != nil
}
