package llm

import (
	"context"
	"sync"
)

// StubAgent answers every task with a fixed reply. It backs the "stub"
// provider for dry runs and stands in for real providers in tests.
type StubAgent struct {
	mu     sync.Mutex
	reply  func(Task) (string, error)
	calls  []Task
	closed bool
}

const stubNotFound = `{"status": "NOT_FOUND", "answer": "", "filled_template": "", "evidence": [], "confidence": "LOW", "notes": "stub agent: no extraction performed"}`

// NewStubAgent returns an agent that reports every item as NOT_FOUND
func NewStubAgent() *StubAgent {
	return NewScriptedAgent(func(Task) (string, error) { return stubNotFound, nil })
}

// NewScriptedAgent returns an agent whose replies come from fn
func NewScriptedAgent(fn func(Task) (string, error)) *StubAgent {
	return &StubAgent{reply: fn}
}

// Name returns the provider name
func (s *StubAgent) Name() string { return "stub" }

// Invoke records the task and returns the scripted reply
func (s *StubAgent) Invoke(ctx context.Context, task Task) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls = append(s.calls, task)
	s.mu.Unlock()

	text, err := s.reply(task)
	if err != nil {
		return nil, err
	}
	return &Completion{Text: text, Model: "stub", Turns: 1}, nil
}

// IsAvailable always reports true
func (s *StubAgent) IsAvailable(context.Context) bool { return true }

// Close marks the agent closed
func (s *StubAgent) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Calls returns the tasks seen so far
func (s *StubAgent) Calls() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.calls...)
}

// Closed reports whether Close was called
func (s *StubAgent) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
