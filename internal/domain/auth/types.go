package auth

// Package auth contains domain-level types for authentication.
// It is pure and free of framework/adapter concerns.

import "time"

// Identity represents the authenticated principal behind a verified bearer
// token. Adapters map provider-specific claims into this shape. UserID is the
// owner key for jobs and push subscriptions.
type Identity struct {
	UserID    string // stable user identifier (e.g., sub claim)
	Email     string
	Name      string
	ExpiresAt time.Time // absolute expiry from the token
}

// Expired returns true once the identity's token has passed its expiry.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}
