package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/icfextract/internal/cache"
)

// CachingAgent serves repeated tasks from a cache. Only successful
// completions are stored; errors always reach the caller.
type CachingAgent struct {
	next   Agent
	store  cache.Cache
	model  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingAgent wraps next. model is the configured default model and
// is part of the key so switching models never serves stale answers.
func NewCachingAgent(next Agent, store cache.Cache, model string, ttl time.Duration, logger *zap.Logger) *CachingAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingAgent{next: next, store: store, model: model, ttl: ttl, logger: logger}
}

// Name returns the wrapped provider name
func (c *CachingAgent) Name() string { return c.next.Name() }

// IsAvailable delegates to the wrapped agent
func (c *CachingAgent) IsAvailable(ctx context.Context) bool { return c.next.IsAvailable(ctx) }

// Close closes the wrapped agent
func (c *CachingAgent) Close() error { return c.next.Close() }

// Invoke returns a cached completion when one exists
func (c *CachingAgent) Invoke(ctx context.Context, task Task) (*Completion, error) {
	key := c.key(task)

	if data, ok := c.store.Get(key); ok {
		var completion Completion
		if err := json.Unmarshal(data, &completion); err == nil {
			completion.Cached = true
			c.logger.Debug("agent cache hit", zap.String("key", key))
			return &completion, nil
		}
		_ = c.store.Delete(key)
	}

	completion, err := c.next.Invoke(ctx, task)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(completion); err == nil {
		if err := c.store.Set(key, data, c.ttl); err != nil {
			c.logger.Warn("agent cache write failed", zap.Error(err))
		}
	}
	return completion, nil
}

func (c *CachingAgent) key(task Task) string {
	model := task.Model
	if model == "" {
		model = c.model
	}
	return cache.Key(c.next.Name(), model, strconv.Itoa(task.Budget), task.Prompt, task.Context)
}
