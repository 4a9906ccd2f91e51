package bootstrap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskspring/taskspring-api/config"
	"github.com/taskspring/taskspring-api/internal/domain/model"
)

func TestBuildExecutors_AgentOnly(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Agent.BaseURL = "http://agent:9090"

	executors, err := buildExecutors(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Contains(t, executors, model.JobTypeAgent)
	assert.NotContains(t, executors, model.JobTypeResearch)
}

func TestBuildExecutors_NoneConfigured(t *testing.T) {
	_, err := buildExecutors(context.Background(), &config.AppConfig{}, slog.New(slog.DiscardHandler))
	assert.ErrorContains(t, err, "no job executors configured")
}

func TestBuildVerifier_MockMode(t *testing.T) {
	cfg := config.AuthConfig{
		Mode: config.AuthModeMock,
		DevAuth: config.DevAuthConfig{
			Token:  "tok",
			UserID: "dev-user",
			Email:  "dev@example.com",
		},
	}

	verifier, err := buildVerifier(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	identity, err := verifier.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "dev-user", identity.UserID)
}

func TestBuildVerifier_UnknownMode(t *testing.T) {
	_, err := buildVerifier(context.Background(), config.AuthConfig{Mode: "saml"}, slog.New(slog.DiscardHandler))
	assert.ErrorContains(t, err, "unknown auth mode")
}

func TestValidateServiceConfig(t *testing.T) {
	cfg := &config.AppConfig{Services: "http,worker"}
	assert.NoError(t, ValidateServiceConfig(cfg))

	cfg = &config.AppConfig{Services: "nope"}
	assert.Error(t, ValidateServiceConfig(cfg))

	assert.Error(t, ValidateServiceConfig(nil))
}

func TestGetEnabledServices(t *testing.T) {
	cfg := &config.AppConfig{Services: "http"}
	assert.Equal(t, []string{"http"}, GetEnabledServices(cfg))

	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
}
