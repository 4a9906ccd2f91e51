package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskspring/taskspring-api/internal/domain/model"
)

func agentJob() *model.Job {
	taskID := "550e8400-e29b-41d4-a716-446655440000"
	return &model.Job{
		ID:      "j1",
		OwnerID: "u1",
		TaskID:  &taskID,
		Type:    model.JobTypeAgent,
		Payload: json.RawMessage(`{"query":"file my expenses"}`),
	}
}

func TestNewExecutor_Validation(t *testing.T) {
	_, err := NewExecutor(Config{})
	assert.ErrorContains(t, err, "base URL is required")

	_, err = NewExecutor(Config{BaseURL: "ftp://agent.local"})
	assert.ErrorContains(t, err, "must be http or https")
}

func TestExecutor_Execute(t *testing.T) {
	var gotAuth string
	var gotBody runRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/runs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"expenses filed"}`))
	}))
	defer server.Close()

	exec, err := NewExecutor(Config{BaseURL: server.URL, AuthToken: "tok"})
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), agentJob())
	require.NoError(t, err)
	assert.Equal(t, "expenses filed", result)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "j1", gotBody.JobID)
	assert.Equal(t, "u1", gotBody.OwnerID)
	require.NotNil(t, gotBody.TaskID)
	assert.JSONEq(t, `{"query":"file my expenses"}`, string(gotBody.Payload))
}

func TestExecutor_Execute_AgentReportsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"sandbox quota exceeded"}`))
	}))
	defer server.Close()

	exec, err := NewExecutor(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), agentJob())
	assert.ErrorContains(t, err, "sandbox quota exceeded")
}

func TestExecutor_Execute_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exec, err := NewExecutor(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), agentJob())
	assert.ErrorContains(t, err, "returned 503")
	assert.ErrorContains(t, err, "service unavailable")
}

func TestExecutor_Execute_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	exec, err := NewExecutor(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), agentJob())
	assert.ErrorContains(t, err, "no result")
}

func TestExecutor_Execute_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	exec, err := NewExecutor(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), agentJob())
	assert.ErrorContains(t, err, "decode agent response")
}
