package oidc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIssuerFromDiscoveryURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"full discovery url",
			"https://idp.example.com/.well-known/openid-configuration",
			"https://idp.example.com",
		},
		{
			"discovery url with trailing slash",
			"https://idp.example.com/.well-known/openid-configuration/",
			"https://idp.example.com",
		},
		{"bare issuer", "https://idp.example.com", "https://idp.example.com"},
		{"issuer with trailing slash", "https://idp.example.com/", "https://idp.example.com"},
		{
			"issuer with path",
			"https://idp.example.com/realms/app/.well-known/openid-configuration",
			"https://idp.example.com/realms/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, issuerFromDiscoveryURL(tt.in))
		})
	}
}

func TestMapTokenClaims(t *testing.T) {
	identity := mapTokenClaims(tokenClaims{
		Sub:       "user-123",
		Email:     "a@example.com",
		Name:      "A Person",
		ExpiresAt: 1750000000,
	})

	assert.Equal(t, "user-123", identity.UserID)
	assert.Equal(t, "a@example.com", identity.Email)
	assert.Equal(t, "A Person", identity.Name)
	assert.Equal(t, time.Unix(1750000000, 0).UTC(), identity.ExpiresAt)
}

func TestMapTokenClaims_MissingExpiry(t *testing.T) {
	identity := mapTokenClaims(tokenClaims{Sub: "user-123"})
	assert.True(t, identity.ExpiresAt.IsZero())
}
