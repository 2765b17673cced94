package llm

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/ppiankov/icfextract/internal/worker"
)

// RateLimitedAgent waits for the limiter before every call
type RateLimitedAgent struct {
	next    Agent
	limiter *worker.Limiter
}

// NewRateLimitedAgent wraps next with limiter, keyed by provider name
func NewRateLimitedAgent(next Agent, limiter *worker.Limiter) *RateLimitedAgent {
	return &RateLimitedAgent{next: next, limiter: limiter}
}

func (r *RateLimitedAgent) Name() string                         { return r.next.Name() }
func (r *RateLimitedAgent) IsAvailable(ctx context.Context) bool { return r.next.IsAvailable(ctx) }
func (r *RateLimitedAgent) Close() error                         { return r.next.Close() }

// Invoke blocks until the provider's bucket has a token
func (r *RateLimitedAgent) Invoke(ctx context.Context, task Task) (*Completion, error) {
	if err := r.limiter.Wait(ctx, r.next.Name()); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	return r.next.Invoke(ctx, task)
}
