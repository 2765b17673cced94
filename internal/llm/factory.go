package llm

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ppiankov/icfextract/internal/cache"
	"github.com/ppiankov/icfextract/internal/model"
	"github.com/ppiankov/icfextract/internal/worker"
)

// NewProvider creates the bare agent named by config.Provider
func NewProvider(config Config) (Agent, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "stub":
		return NewStubAgent(), nil

	case "":
		return nil, errors.WithHint(errors.New("no agent provider configured"), "set agent.provider or pass --llm-provider")

	default:
		return nil, errors.Newf("unknown agent provider: %s (supported: openai, anthropic, ollama, stub)", config.Provider)
	}
}

// NewAgent builds the provider from cfg and wraps it with the rate
// limiter and, when enabled, the completion cache. Cache hits skip the
// limiter.
func NewAgent(cfg *model.Config, logger *zap.Logger) (Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	agent, err := NewProvider(LoadConfigFromEnv(ConfigFromModel(cfg.Agent), os.Getenv))
	if err != nil {
		return nil, err
	}

	if cfg.RateLimiting.RequestsPerSecond > 0 {
		limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
		agent = NewRateLimitedAgent(agent, limiter)
	}

	if cfg.Cache.Enabled {
		store := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		if n, err := store.Prune(); err != nil {
			logger.Warn("cache prune failed", zap.Error(err))
		} else if n > 0 {
			logger.Debug("pruned expired cache entries", zap.Int("count", n))
		}
		agent = NewCachingAgent(agent, store, cfg.Agent.Model, cfg.Cache.DiskTTL, logger)
	}

	return agent, nil
}

// LoadConfigFromEnv fills unset credentials and endpoints from the
// provider's usual environment variables
func LoadConfigFromEnv(config Config, getenv func(string) string) Config {
	switch strings.ToLower(config.Provider) {
	case "openai":
		if config.APIKey == "" {
			config.APIKey = getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if config.APIKey == "" {
			config.APIKey = getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = getenv("OLLAMA_BASE_URL")
		}
	}
	return config
}
