// Package devauth provides a simple, config-driven TokenVerifier for local
// development. It must never be wired in production.
package devauth

import (
	"context"
	"errors"
	"strings"
	"time"

	domainauth "github.com/taskspring/taskspring-api/internal/domain/auth"
	"github.com/taskspring/taskspring-api/internal/ports"
)

// Config controls the dev verifier behavior.
type Config struct {
	Token         string // Required: the shared token callers must present
	UserID        string // Required: identity returned for a valid token
	Email         string
	Name          string
	TokenDuration time.Duration // default 8h when zero
}

// Verifier implements ports.TokenVerifier by comparing the presented token to
// a single configured value and returning a fixed identity.
type Verifier struct {
	token         string
	identity      domainauth.Identity
	tokenDuration time.Duration
}

// NewVerifier constructs a dev verifier from Config.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Token == "" {
		return nil, errors.New("dev auth: Token is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}

	dur := cfg.TokenDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}

	return &Verifier{
		token: cfg.Token,
		identity: domainauth.Identity{
			UserID: cfg.UserID,
			Email:  cfg.Email,
			Name:   cfg.Name,
		},
		tokenDuration: dur,
	}, nil
}

// Verify accepts only the configured token and returns the dev identity with
// a fresh expiry.
func (v *Verifier) Verify(_ context.Context, rawToken string) (domainauth.Identity, error) {
	if strings.TrimSpace(rawToken) != v.token {
		return domainauth.Identity{}, errors.New("dev auth: invalid token")
	}

	identity := v.identity
	identity.ExpiresAt = time.Now().Add(v.tokenDuration)
	return identity, nil
}

var _ ports.TokenVerifier = (*Verifier)(nil)
