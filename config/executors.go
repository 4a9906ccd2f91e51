package config

import "time"

// LLMConfig contains configuration for the research job executor.
type LLMConfig struct {
	// APIKey authenticates against the Gemini API.
	APIKey string `env:"API_KEY"`

	// Model is the Gemini model name used for research jobs.
	Model string `env:"MODEL" envDefault:"gemini-2.0-flash"`

	// MaxRetries is the number of attempts for transient API failures.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"3"`

	// RetryDelaySeconds is the base delay between retries.
	RetryDelaySeconds int `env:"RETRY_DELAY_SECONDS" envDefault:"2"`

	// ResultExpression is an optional JMESPath expression applied to JSON
	// model output to extract the stored result.
	ResultExpression string `env:"RESULT_EXPRESSION"`
}

// Sanitize applies guardrails to LLM configuration values.
func (c *LLMConfig) Sanitize() {
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.RetryDelaySeconds < 1 {
		c.RetryDelaySeconds = 1
	}
}

// AgentConfig contains configuration for the agent job executor.
type AgentConfig struct {
	// BaseURL is the agent service endpoint (e.g., "http://agent:9090").
	BaseURL string `env:"BASE_URL"`

	// AuthToken is an optional bearer token for the agent service.
	AuthToken string `env:"AUTH_TOKEN"`

	// Timeout bounds a single agent run.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"2m"`
}

// Sanitize applies guardrails to agent configuration values.
func (c *AgentConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
}
