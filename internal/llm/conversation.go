package llm

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// systemPrompt frames every extraction conversation
const systemPrompt = "You extract information from clinical study protocols for Informed Consent Forms. " +
	"You never invent facts: every answer must be grounded in verbatim quotes from the protocol text you are given."

// followUpPrompt is sent when a reply does not yet contain the final object
const followUpPrompt = "Continue. When you have finished searching, reply with ONLY the final JSON object described in the task."

type message struct {
	Role    string
	Content string
}

// turnFunc sends the conversation so far and returns the assistant reply
type turnFunc func(ctx context.Context, messages []message) (reply turnReply, err error)

type turnReply struct {
	Text   string
	Model  string
	Tokens int
}

// initialMessages lays out the task and the protocol for the first turn
func initialMessages(task Task) []message {
	user := task.Prompt
	if task.Context != "" {
		user += "\n\nPROTOCOL TEXT:\n" + task.Context
	}
	return []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}

// converse drives a bounded conversation: the agent gets at most task.Budget
// turns to produce a reply containing a structured object. The last reply is
// returned either way; deciding whether it is usable is the caller's job.
func converse(ctx context.Context, task Task, turn turnFunc) (*Completion, error) {
	budget := task.Budget
	if budget <= 0 {
		budget = 1
	}

	messages := initialMessages(task)
	completion := &Completion{}

	for i := 0; i < budget; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "conversation stopped after %d turns", i)
		}

		reply, err := turn(ctx, messages)
		if err != nil {
			return nil, errors.Wrapf(err, "turn %d", i+1)
		}

		completion.Text = strings.TrimSpace(reply.Text)
		completion.Model = reply.Model
		completion.TokensUsed += reply.Tokens
		completion.Turns = i + 1

		if hasStructuredAnswer(completion.Text) {
			break
		}

		messages = append(messages,
			message{Role: "assistant", Content: reply.Text},
			message{Role: "user", Content: followUpPrompt},
		)
	}

	return completion, nil
}

// hasStructuredAnswer is a cheap check that the reply holds an object at all
func hasStructuredAnswer(text string) bool {
	open := strings.Index(text, "{")
	return open >= 0 && strings.LastIndex(text, "}") > open
}
