package httpx

import (
	"context"

	domainauth "github.com/taskspring/taskspring-api/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type identityKey struct{}

// SetIdentityInContext returns a child context that carries the given identity.
func SetIdentityInContext(ctx context.Context, identity domainauth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity from context and a boolean
// indicating presence.
func IdentityFromContext(ctx context.Context) (domainauth.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(domainauth.Identity)
	if !ok || identity.UserID == "" {
		return domainauth.Identity{}, false
	}
	return identity, true
}
