// Package llm provides the research job executor backed by Google's Gemini
// API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/jmespath-community/go-jmespath"
	"google.golang.org/genai"

	"github.com/taskspring/taskspring-api/internal/core"
	"github.com/taskspring/taskspring-api/internal/domain/model"
)

var (
	// ErrEmptyQuery indicates the job payload carried no research query.
	ErrEmptyQuery = errors.New("research query is empty")
	// ErrEmptyResponse indicates the model returned no usable text.
	ErrEmptyResponse = errors.New("model returned empty response")
)

// Config holds configuration for the Gemini research executor.
type Config struct {
	APIKey            string
	Model             string
	MaxRetries        int    // Optional: defaults to 3
	RetryDelaySeconds int    // Optional: defaults to 2
	ResultExpression  string // Optional: JMESPath applied to JSON model output
	Logger            *slog.Logger
}

// contentGenerator is the slice of the genai client the executor needs.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Executor runs research jobs by prompting a Gemini model and returning the
// (optionally JMESPath-extracted) response text.
type Executor struct {
	generator         contentGenerator
	model             string
	maxRetries        int
	retryDelaySeconds int
	resultExpression  string
	logger            *slog.Logger
}

// NewExecutor dials the Gemini API and prepares the research executor.
func NewExecutor(ctx context.Context, cfg Config) (*Executor, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return newExecutor(client.Models, cfg)
}

func newExecutor(generator contentGenerator, cfg Config) (*Executor, error) {
	if cfg.ResultExpression != "" {
		if _, err := jmespath.Compile(cfg.ResultExpression); err != nil {
			return nil, fmt.Errorf("compile result expression: %w", err)
		}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelaySeconds
	if retryDelay < 1 {
		retryDelay = 2
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		generator:         generator,
		model:             cfg.Model,
		maxRetries:        maxRetries,
		retryDelaySeconds: retryDelay,
		resultExpression:  cfg.ResultExpression,
		logger:            logger.With("component", "llm_executor"),
	}, nil
}

// researchPayload is the expected shape of a research job's payload.
type researchPayload struct {
	Query   string `json:"query"`
	Context string `json:"context,omitempty"`
}

// Execute implements core.Executor for research jobs.
func (e *Executor) Execute(ctx context.Context, job *model.Job) (string, error) {
	payload, err := decodePayload(job.Payload)
	if err != nil {
		return "", err
	}

	prompt := buildPrompt(payload)
	text, err := e.generateWithRetry(ctx, job.ID, prompt)
	if err != nil {
		return "", err
	}

	return e.extractResult(text)
}

func decodePayload(raw json.RawMessage) (researchPayload, error) {
	var payload researchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("decode research payload: %w", err)
	}
	if strings.TrimSpace(payload.Query) == "" {
		return payload, ErrEmptyQuery
	}
	return payload, nil
}

func buildPrompt(payload researchPayload) string {
	if payload.Context == "" {
		return payload.Query
	}
	return "Context:\n" + payload.Context + "\n\nQuestion:\n" + payload.Query
}

// generateWithRetry calls the model with exponential backoff and jitter.
// Empty responses are permanent; transport errors are retried.
func (e *Executor) generateWithRetry(ctx context.Context, jobID, prompt string) (string, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		resp, err := e.generator.GenerateContent(ctx, e.model, genai.Text(prompt), nil)
		if err == nil {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return "", ErrEmptyResponse
			}
			return text, nil
		}

		lastErr = err
		e.logger.WarnContext(ctx, "gemini call failed",
			"job_id", jobID,
			"attempt", attempt+1,
			"error", err,
		)

		if ctx.Err() != nil || attempt >= e.maxRetries {
			break
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(e.retryDelaySeconds) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter * float64(time.Second))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("gemini call failed after %d attempts: %w", e.maxRetries+1, lastErr)
}

// extractResult applies the configured JMESPath expression to JSON model
// output. Non-JSON output and a missing expression both pass the text through
// unchanged.
func (e *Executor) extractResult(text string) (string, error) {
	if e.resultExpression == "" {
		return text, nil
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return text, nil
	}

	extracted, err := jmespath.Search(e.resultExpression, doc)
	if err != nil {
		return "", fmt.Errorf("apply result expression: %w", err)
	}
	if extracted == nil {
		return "", fmt.Errorf("result expression %q matched nothing", e.resultExpression)
	}

	if s, ok := extracted.(string); ok {
		return s, nil
	}
	encoded, err := json.Marshal(extracted)
	if err != nil {
		return "", fmt.Errorf("encode extracted result: %w", err)
	}
	return string(encoded), nil
}

var _ core.Executor = (*Executor)(nil)
