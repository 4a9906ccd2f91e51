package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_AllChecksPass(t *testing.T) {
	h := &HealthHandlers{Checks: map[string]HealthCheck{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return nil },
	}}

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"db":"ok","redis":"ok"}}`, w.Body.String())
}

func TestHealth_FailingCheckDegrades(t *testing.T) {
	h := &HealthHandlers{Checks: map[string]HealthCheck{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}}

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"db":"ok","redis":"connection refused"}}`, w.Body.String())
}

func TestHealth_NoChecks(t *testing.T) {
	h := &HealthHandlers{}

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealth_HeadOmitsBody(t *testing.T) {
	h := &HealthHandlers{Checks: map[string]HealthCheck{
		"db": func(context.Context) error { return errors.New("down") },
	}}

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodHead, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Body.String())
}
