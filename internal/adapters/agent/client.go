// Package agent provides the executor that dispatches agent jobs to the
// external agent service over HTTP.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taskspring/taskspring-api/internal/core"
	"github.com/taskspring/taskspring-api/internal/domain/model"
)

const maxResponseBytes = 1 << 20 // 1 MiB

// Config holds configuration for the agent service client.
type Config struct {
	BaseURL    string
	AuthToken  string        // Optional: bearer token for the agent service
	Timeout    time.Duration // Optional: defaults to 2m
	HTTPClient *http.Client  // Optional: overrides Timeout when set
	Logger     *slog.Logger
}

// Executor runs agent jobs by posting them to the agent service and
// returning the run result it reports.
type Executor struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewExecutor constructs the agent executor.
func NewExecutor(cfg Config) (*Executor, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("agent base URL is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("agent base URL must be http or https: %s", baseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		baseURL:    baseURL,
		authToken:  cfg.AuthToken,
		httpClient: httpClient,
		logger:     logger.With("component", "agent_executor"),
	}, nil
}

// runRequest is the body posted to the agent service.
type runRequest struct {
	JobID   string          `json:"job_id"`
	OwnerID string          `json:"owner_id"`
	TaskID  *string         `json:"task_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// runResponse is the body the agent service answers with.
type runResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Execute implements core.Executor for agent jobs.
func (e *Executor) Execute(ctx context.Context, job *model.Job) (string, error) {
	body, err := json.Marshal(runRequest{
		JobID:   job.ID,
		OwnerID: job.OwnerID,
		TaskID:  job.TaskID,
		Payload: job.Payload,
	})
	if err != nil {
		return "", fmt.Errorf("encode agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/runs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if e.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.authToken)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call agent service: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			e.logger.Debug("close agent response body failed", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read agent response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("agent service returned %d: %s", resp.StatusCode, summarizeBody(raw))
	}

	var run runResponse
	if err := json.Unmarshal(raw, &run); err != nil {
		return "", fmt.Errorf("decode agent response: %w", err)
	}
	if run.Error != "" {
		return "", fmt.Errorf("agent run failed: %s", run.Error)
	}
	if run.Result == "" {
		return "", errors.New("agent run returned no result")
	}
	return run.Result, nil
}

// summarizeBody truncates response bodies for error messages.
func summarizeBody(raw []byte) string {
	const maxLen = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}

var _ core.Executor = (*Executor)(nil)
