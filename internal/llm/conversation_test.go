package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverse_StopsOnStructuredReply(t *testing.T) {
	var seen [][]message
	turn := func(_ context.Context, msgs []message) (turnReply, error) {
		seen = append(seen, append([]message(nil), msgs...))
		if len(seen) < 3 {
			return turnReply{Text: "searching pages 3-5", Tokens: 5}, nil
		}
		return turnReply{Text: "  {\"status\": \"FOUND\"}  ", Model: "m", Tokens: 7}, nil
	}

	c, err := converse(context.Background(), Task{Prompt: "p", Budget: 10}, turn)
	require.NoError(t, err)

	assert.Equal(t, `{"status": "FOUND"}`, c.Text)
	assert.Equal(t, 3, c.Turns)
	assert.Equal(t, 17, c.TokensUsed)
	// each follow-up adds the assistant reply and a nudge
	assert.Len(t, seen[2], 6)
	assert.Equal(t, followUpPrompt, seen[2][5].Content)
}

func TestConverse_BudgetExhausted(t *testing.T) {
	calls := 0
	turn := func(context.Context, []message) (turnReply, error) {
		calls++
		return turnReply{Text: "still thinking"}, nil
	}

	c, err := converse(context.Background(), Task{Prompt: "p", Budget: 2}, turn)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "still thinking", c.Text)
}

func TestConverse_ZeroBudgetStillAsksOnce(t *testing.T) {
	calls := 0
	turn := func(context.Context, []message) (turnReply, error) {
		calls++
		return turnReply{Text: "{}"}, nil
	}

	_, err := converse(context.Background(), Task{Prompt: "p"}, turn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestConverse_TurnError(t *testing.T) {
	boom := errors.New("boom")
	turn := func(context.Context, []message) (turnReply, error) {
		return turnReply{}, boom
	}

	_, err := converse(context.Background(), Task{Prompt: "p", Budget: 3}, turn)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestConverse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := converse(ctx, Task{Prompt: "p", Budget: 3}, func(context.Context, []message) (turnReply, error) {
		t.Fatal("turn must not run after cancellation")
		return turnReply{}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInitialMessages(t *testing.T) {
	msgs := initialMessages(Task{Prompt: "find X", Context: "--- PAGE 1 ---\nbody"})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "find X\n\nPROTOCOL TEXT:\n--- PAGE 1 ---\nbody", msgs[1].Content)

	msgs = initialMessages(Task{Prompt: "find X"})
	assert.Equal(t, "find X", msgs[1].Content)
}

func TestHasStructuredAnswer(t *testing.T) {
	assert.True(t, hasStructuredAnswer(`text {"a": 1} more`))
	assert.False(t, hasStructuredAnswer(`} backwards {`))
	assert.False(t, hasStructuredAnswer("plain"))
}
