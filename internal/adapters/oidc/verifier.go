// Package oidc provides the OIDC bearer token verifier used by the HTTP API.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	domainauth "github.com/taskspring/taskspring-api/internal/domain/auth"
	"github.com/taskspring/taskspring-api/internal/ports"
)

// VerifierConfig holds configuration for the OIDC token verifier.
type VerifierConfig struct {
	ClientID     string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// Verifier implements ports.TokenVerifier against an OIDC issuer. Token
// signatures are checked against the issuer's published JWKS, which go-oidc
// fetches and caches from the discovery document.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier performs OIDC discovery and prepares the token verifier.
func NewVerifier(ctx context.Context, config VerifierConfig) (*Verifier, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	provider, err := gooidc.NewProvider(ctx, issuerFromDiscoveryURL(config.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Verifier{
		verifier: provider.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

// Verify validates the raw bearer token and maps its claims to an Identity.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return domainauth.Identity{}, errors.New("token is required")
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("verify token: %w", err)
	}

	var claims tokenClaims
	if claimsErr := idToken.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, fmt.Errorf("parse token claims: %w", claimsErr)
	}

	identity := mapTokenClaims(claims)
	if identity.UserID == "" {
		return domainauth.Identity{}, errors.New("token has no subject")
	}
	return identity, nil
}

// tokenClaims is the subset of OIDC claims the API cares about.
type tokenClaims struct {
	Sub       string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	ExpiresAt int64  `json:"exp"`
}

// mapTokenClaims maps raw token claims into a domain identity.
func mapTokenClaims(c tokenClaims) domainauth.Identity {
	identity := domainauth.Identity{
		UserID: c.Sub,
		Email:  c.Email,
		Name:   c.Name,
	}
	if c.ExpiresAt > 0 {
		identity.ExpiresAt = time.Unix(c.ExpiresAt, 0).UTC()
	}
	return identity
}

// issuerFromDiscoveryURL strips the well-known suffix so either the issuer or
// its full discovery URL can be configured.
func issuerFromDiscoveryURL(discoveryURL string) string {
	issuer := strings.TrimSuffix(discoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	return strings.TrimSuffix(issuer, "/")
}

var _ ports.TokenVerifier = (*Verifier)(nil)
