package llm

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/icfextract/internal/cache"
	"github.com/ppiankov/icfextract/internal/model"
	"github.com/ppiankov/icfextract/internal/worker"
)

func TestCachingAgent_ServesRepeats(t *testing.T) {
	stub := NewStubAgent()
	store := cache.NewMemoryCache(time.Minute, time.Minute)
	agent := NewCachingAgent(stub, store, "gpt-4o-mini", time.Hour, nil)

	task := Task{Prompt: "p", Context: "c", Budget: 10}
	first, err := agent.Invoke(context.Background(), task)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := agent.Invoke(context.Background(), task)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Len(t, stub.Calls(), 1)

	// a different budget is a different question
	_, err = agent.Invoke(context.Background(), Task{Prompt: "p", Context: "c", Budget: 8})
	require.NoError(t, err)
	assert.Len(t, stub.Calls(), 2)
}

func TestCachingAgent_DoesNotCacheErrors(t *testing.T) {
	calls := 0
	stub := NewScriptedAgent(func(Task) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("timeout")
		}
		return "{}", nil
	})
	agent := NewCachingAgent(stub, cache.NewMemoryCache(time.Minute, time.Minute), "", time.Hour, nil)

	_, err := agent.Invoke(context.Background(), Task{Prompt: "p"})
	require.Error(t, err)

	c, err := agent.Invoke(context.Background(), Task{Prompt: "p"})
	require.NoError(t, err)
	assert.False(t, c.Cached)
}

func TestCachingAgent_DelegatesLifecycle(t *testing.T) {
	stub := NewStubAgent()
	agent := NewCachingAgent(stub, cache.NewMemoryCache(time.Minute, time.Minute), "", time.Hour, nil)

	assert.Equal(t, "stub", agent.Name())
	assert.True(t, agent.IsAvailable(context.Background()))
	require.NoError(t, agent.Close())
	assert.True(t, stub.Closed())
}

func TestRateLimitedAgent(t *testing.T) {
	stub := NewStubAgent()
	agent := NewRateLimitedAgent(stub, worker.NewLimiter(0.001, 1))

	_, err := agent.Invoke(context.Background(), Task{Prompt: "p"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = agent.Invoke(ctx, Task{Prompt: "p"})
	require.Error(t, err)
	assert.Len(t, stub.Calls(), 1)
}

func TestNewProvider(t *testing.T) {
	a, err := NewProvider(Config{Provider: "STUB"})
	require.NoError(t, err)
	assert.Equal(t, "stub", a.Name())

	_, err = NewProvider(Config{Provider: "bard"})
	assert.ErrorContains(t, err, "unknown agent provider")

	_, err = NewProvider(Config{})
	require.Error(t, err)
	assert.Contains(t, errors.GetAllHints(err), "set agent.provider or pass --llm-provider")

	a, err = NewProvider(Config{Provider: "claude", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", a.Name())
}

func TestNewAgent_WrapsProvider(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Agent.Provider = "stub"
	cfg.Cache.Dir = t.TempDir()

	agent, err := NewAgent(cfg, nil)
	require.NoError(t, err)
	_, ok := agent.(*CachingAgent)
	assert.True(t, ok, "cache enabled by default")

	cfg.Cache.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 0
	agent, err = NewAgent(cfg, nil)
	require.NoError(t, err)
	_, ok = agent.(*StubAgent)
	assert.True(t, ok)
}

func TestLoadConfigFromEnv(t *testing.T) {
	env := map[string]string{"OPENAI_API_KEY": "sk-env", "ANTHROPIC_API_KEY": "sk-ant", "OLLAMA_BASE_URL": "http://gpu:11434"}
	getenv := func(k string) string { return env[k] }

	assert.Equal(t, "sk-env", LoadConfigFromEnv(Config{Provider: "openai"}, getenv).APIKey)
	assert.Equal(t, "sk-ant", LoadConfigFromEnv(Config{Provider: "anthropic"}, getenv).APIKey)
	assert.Equal(t, "explicit", LoadConfigFromEnv(Config{Provider: "openai", APIKey: "explicit"}, getenv).APIKey)
	assert.Empty(t, LoadConfigFromEnv(Config{Provider: "ollama"}, getenv).APIKey)
	assert.Equal(t, "http://gpu:11434", LoadConfigFromEnv(Config{Provider: "ollama"}, getenv).BaseURL)
}
