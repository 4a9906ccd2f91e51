// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/http.
package ports

import (
	"context"

	domainauth "github.com/taskspring/taskspring-api/internal/domain/auth"
)

// TokenVerifier validates a bearer token and returns the identity it
// represents. Implementations must reject expired and malformed tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (domainauth.Identity, error)
}
