package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/icfextract/internal/classify"
	"github.com/ppiankov/icfextract/internal/llm"
	"github.com/ppiankov/icfextract/internal/model"
)

const protocolText = "--- PAGE 1 ---\nThe sponsor will pay all costs.\n--- PAGE 2 ---\nParticipants attend six visits."

func itemWithTags(id string, tags ...string) model.WorkItem {
	a := classify.Classify(tags)
	return model.WorkItem{
		ID:                   id,
		Heading:              "Costs",
		SubHeading:           "Payment",
		Instructions:         "Who pays for study procedures",
		RequiredText:         "The sponsor will pay for {{ procedures }}.",
		SuggestedText:        "You will not be charged.",
		Tags:                 tags,
		IsAvailableInSource:  a.Available,
		IsPartiallyAvailable: a.Partial,
		IsStandardText:       a.Standard,
	}
}

func scripted(reply string, err error) *llm.StubAgent {
	return llm.NewScriptedAgent(func(llm.Task) (string, error) { return reply, err })
}

func TestRoute_StandardText(t *testing.T) {
	agent := scripted("", nil)
	r := NewRouter(agent, 20, nil)

	res := r.Route(context.Background(), itemWithTags("1.1", "Standard Text"), protocolText)

	assert.Equal(t, model.StatusStandardText, res.Status)
	assert.Equal(t, "The sponsor will pay for {{ procedures }}.", res.Answer)
	assert.Equal(t, res.Answer, res.FilledTemplate)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
	assert.Empty(t, res.Evidence)
	assert.Empty(t, agent.Calls(), "standard text never reaches the agent")
}

func TestRoute_Skipped(t *testing.T) {
	agent := scripted("", nil)
	r := NewRouter(agent, 20, nil)

	res := r.Route(context.Background(), itemWithTags("9.2", "Not in Protocol"), protocolText)

	assert.Equal(t, model.StatusSkipped, res.Status)
	assert.Empty(t, res.Answer)
	assert.Equal(t, model.ConfidenceNotApplicable, res.Confidence)
	assert.Empty(t, res.Evidence)
	assert.Contains(t, res.Notes, "manual entry")
	assert.Empty(t, agent.Calls())
}

func TestRoute_Found(t *testing.T) {
	reply := "```json\n" + `{"section_id": "WRONG", "status": "found", "answer": "The sponsor pays.",
		"filled_template": "The sponsor will pay for all procedures.",
		"evidence": [{"quote": "The sponsor will pay all costs.", "page": 1, "section": "10"}, "stray"],
		"confidence": "high", "notes": "ok"}` + "\n```"
	agent := scripted(reply, nil)
	r := NewRouter(agent, 20, nil)

	res := r.Route(context.Background(), itemWithTags("5.3", "Easy Mapping"), protocolText)

	assert.Equal(t, "5.3", res.ItemID, "record section_id never overrides the item id")
	assert.Equal(t, "Costs", res.Heading)
	assert.Equal(t, model.StatusFound, res.Status)
	assert.Equal(t, "The sponsor pays.", res.Answer)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
	require.Len(t, res.Evidence, 1)
	assert.Equal(t, model.EvidenceQuote{Quote: "The sponsor will pay all costs.", Page: "1", Section: "10"}, res.Evidence[0])
	assert.Equal(t, reply, res.RawResponse)
	assert.Empty(t, res.Error)

	calls := agent.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 10, calls[0].Budget, "easy items get the easy budget")
	assert.Equal(t, protocolText, calls[0].Context)
	assert.Contains(t, calls[0].Prompt, "[5.3]")
}

func TestRoute_PartialItemBudget(t *testing.T) {
	agent := scripted(`{"status": "PARTIAL"}`, nil)
	r := NewRouter(agent, 6, nil)

	item := itemWithTags("7.7", "Not in Protocol", "Complex Mapping")
	require.True(t, item.IsPartiallyAvailable)

	res := r.Route(context.Background(), item, protocolText)
	assert.Equal(t, model.StatusPartial, res.Status)
	assert.Equal(t, 6, agent.Calls()[0].Budget, "budget is clamped to the configured maximum")
}

func TestRoute_Defaults(t *testing.T) {
	r := NewRouter(scripted(`{"answer": "no status given"}`, nil), 20, nil)

	res := r.Route(context.Background(), itemWithTags("2.1"), protocolText)

	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.NotNil(t, res.Evidence)
	assert.Empty(t, res.Evidence)
	assert.Equal(t, "no status given", res.Answer)
}

func TestRoute_UnknownStatusAndConfidence(t *testing.T) {
	r := NewRouter(scripted(`{"status": "MAYBE", "confidence": "Somewhat"}`, nil), 20, nil)

	res := r.Route(context.Background(), itemWithTags("2.2"), protocolText)
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, model.Confidence("Somewhat"), res.Confidence)
}

func TestRoute_AgentReportsSkippedDropsEvidence(t *testing.T) {
	r := NewRouter(scripted(`{"status": "SKIPPED", "evidence": [{"quote": "q", "page": "1"}]}`, nil), 20, nil)

	res := r.Route(context.Background(), itemWithTags("2.3"), protocolText)
	assert.Equal(t, model.StatusSkipped, res.Status)
	assert.Empty(t, res.Evidence)
}

func TestRoute_FreeTextFallback(t *testing.T) {
	prose := "The study lasts twelve weeks and includes six clinic visits."
	r := NewRouter(scripted(prose, nil), 20, nil)

	res := r.Route(context.Background(), itemWithTags("3.1"), protocolText)
	assert.Equal(t, model.StatusPartial, res.Status)
	assert.Equal(t, prose, res.Answer)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.Equal(t, FallbackNote, res.Notes)
}

func TestRoute_Unparseable(t *testing.T) {
	r := NewRouter(scripted("nope", nil), 20, nil)

	res := r.Route(context.Background(), itemWithTags("3.2"), protocolText)
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, parseFailureNote, res.Notes)
	assert.Equal(t, parseFailureErr, res.Error)
	assert.Equal(t, "nope", res.RawResponse)
}

func TestRoute_AgentError(t *testing.T) {
	r := NewRouter(scripted("", errors.Wrap(context.DeadlineExceeded, "turn 3")), 20, nil)

	res := r.Route(context.Background(), itemWithTags("4.4"), protocolText)
	assert.Equal(t, model.StatusError, res.Status)
	assert.True(t, strings.HasPrefix(res.Error, "Timeout: "), res.Error)
	assert.Contains(t, res.Error, "turn 3")
	assert.Empty(t, res.Answer)
	assert.Empty(t, res.Confidence)
	assert.Empty(t, res.RawResponse)
}

type quotaError struct{}

func (quotaError) Error() string { return "quota exhausted" }

func TestRoute_AgentErrorTypeName(t *testing.T) {
	r := NewRouter(scripted("", errors.Wrap(&quotaError{}, "openai")), 20, nil)

	res := r.Route(context.Background(), itemWithTags("4.5"), protocolText)
	assert.Equal(t, "quotaError: openai: quota exhausted", res.Error)
}

func TestRoute_PanicBecomesError(t *testing.T) {
	agent := llm.NewScriptedAgent(func(llm.Task) (string, error) { panic("provider bug") })
	r := NewRouter(agent, 20, nil)

	res := r.Route(context.Background(), itemWithTags("4.6"), protocolText)
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, "panic: provider bug", res.Error)
	assert.Equal(t, "4.6", res.ItemID)
}
