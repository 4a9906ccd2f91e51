package httpx

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/taskspring/taskspring-api/internal/domain/auth"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		target string
		want   string
	}{
		{name: "standard header", header: "Bearer tok123", target: "/", want: "tok123"},
		{name: "case insensitive scheme", header: "bearer tok123", target: "/", want: "tok123"},
		{name: "padded token", header: "Bearer  tok123 ", target: "/", want: "tok123"},
		{name: "wrong scheme", header: "Basic dXNlcg==", target: "/", want: ""},
		{name: "query fallback", target: "/?access_token=qtok", want: "qtok"},
		{name: "header wins over query", header: "Bearer tok123", target: "/?access_token=qtok", want: "tok123"},
		{name: "absent", target: "/", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, bearerToken(r))
		})
	}
}

func TestRequireAuth_PropagatesIdentity(t *testing.T) {
	verifier := &staticVerifier{
		token:    "tok",
		identity: domainauth.Identity{UserID: "u1", Email: "u1@example.com"},
	}

	var got domainauth.Identity
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		got = identity
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "u1@example.com", got.Email)
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	handler := RequireAuth(&staticVerifier{token: "tok"})(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler should not run")
		},
	))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_required")
}

func TestRecover_TurnsPanicInto500(t *testing.T) {
	handler := Recover(slog.New(slog.DiscardHandler))(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) {
			panic("boom")
		},
	))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogging_RecordsStatus(t *testing.T) {
	handler := Logging(slog.New(slog.DiscardHandler))(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		},
	))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}
