package llm

import (
	"context"

	"github.com/ppiankov/icfextract/internal/model"
)

// Agent is the text-generation capability the extraction router calls.
// Implementations must be safe to call sequentially; the pipeline never
// calls an agent concurrently.
type Agent interface {
	// Name returns the provider name
	Name() string

	// Invoke runs one extraction task and returns the agent's raw text.
	// Infrastructure failures (including timeouts) are returned as errors.
	Invoke(ctx context.Context, task Task) (*Completion, error)

	// IsAvailable checks if the provider is properly configured and reachable
	IsAvailable(ctx context.Context) bool

	// Close releases any resources held by the agent
	Close() error
}

// Task is one extraction request
type Task struct {
	// Prompt describes what to extract and the expected answer shape
	Prompt string

	// Context is the page-marked protocol text the answer must be grounded in
	Context string

	// Budget caps the number of conversation turns the agent may spend
	Budget int

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits each reply
	MaxTokens int
}

// Completion is the agent's final answer to a Task
type Completion struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	Turns      int    `json:"turns"`
	TokensUsed int    `json:"tokens_used"`
	Cached     bool   `json:"-"`
}

// Config holds agent provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "stub"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for a single API request
	Timeout int // seconds

	// MaxTokens for each reply
	MaxTokens int

	// Temperature for sampling
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     120,
		MaxTokens:   2000,
		Temperature: 0.1,
	}
}

// ConfigFromModel converts model.AgentConfig to llm.Config
func ConfigFromModel(cfg model.AgentConfig) Config {
	return Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		HTTPProxy:   cfg.HTTPProxy,
		HTTPSProxy:  cfg.HTTPSProxy,
	}
}
