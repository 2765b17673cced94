package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/ppiankov/icfextract/internal/model"
)

// answerShape documents the object the agent is asked to return. It is only
// used to generate the JSON Schema embedded in the task prompt.
type answerShape struct {
	SectionID      string          `json:"section_id" jsonschema:"description=ICF section identifier"`
	Status         string          `json:"status" jsonschema:"enum=FOUND,enum=NOT_FOUND,enum=PARTIAL"`
	Answer         string          `json:"answer" jsonschema:"description=Extracted text in plain language (Grade 6 reading level)"`
	FilledTemplate string          `json:"filled_template" jsonschema:"description=The required text with {{ }} variables filled in"`
	Evidence       []evidenceShape `json:"evidence"`
	Confidence     string          `json:"confidence" jsonschema:"enum=HIGH,enum=MEDIUM,enum=LOW"`
	Notes          string          `json:"notes,omitempty" jsonschema:"description=Caveats or items needing manual review"`
}

type evidenceShape struct {
	Quote   string `json:"quote" jsonschema:"description=Exact verbatim quote from the protocol"`
	Page    string `json:"page" jsonschema:"description=Page number from the --- PAGE n --- markers"`
	Section string `json:"section,omitempty" jsonschema:"description=Protocol section heading"`
}

var answerSchema = sync.OnceValue(func() string {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	data, err := json.MarshalIndent(r.Reflect(&answerShape{}), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
})

// AnswerSchema returns the JSON Schema of the expected agent answer
func AnswerSchema() string {
	return answerSchema()
}

func availabilityNote(item model.WorkItem) string {
	if !item.IsAvailableInSource {
		return "IMPORTANT: This information is typically NOT found in clinical protocols and " +
			"requires manual entry by the study team. Search the protocol briefly, but if you " +
			`cannot find explicit evidence, return status="NOT_FOUND" immediately. ` +
			"Do NOT fabricate information."
	}
	if item.IsPartiallyAvailable {
		return "NOTE: Some fields in this section may not be found in the protocol and require " +
			"manual entry. Extract what you can find, mark unfound fields as " +
			`[TO BE FILLED MANUALLY], and use status="PARTIAL" if only some information is found.`
	}
	return "This information should be findable in the protocol. Search thoroughly before concluding NOT_FOUND."
}

// BuildTaskPrompt builds the task description for one work item. The
// protocol text travels separately as the agent's context.
func BuildTaskPrompt(item model.WorkItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a Clinical Data Extraction Specialist.\n")
	fmt.Fprintf(&b, "Extract information from a clinical study protocol for ICF section [%s].\n\n", item.ID)

	target := item.Heading
	if item.SubHeading != "" {
		target += " > " + item.SubHeading
	}
	fmt.Fprintf(&b, "TARGET: %s\n", target)
	fmt.Fprintf(&b, "WHAT TO EXTRACT: %s\n\n", item.Instructions)

	if item.ProtocolMapping != "" || item.SponsorMapping != "" {
		b.WriteString("WHERE TO LOOK (hints - actual section names vary between protocols):\n")
		fmt.Fprintf(&b, "  Protocol sections: %s\n", item.ProtocolMapping)
		fmt.Fprintf(&b, "  Sponsor sections: %s\n\n", item.SponsorMapping)
	}

	b.WriteString(availabilityNote(item))
	b.WriteString("\n\n")

	if item.RequiredText != "" {
		fmt.Fprintf(&b, "ICF TEMPLATE TEXT (fill the {{ ... }} variables):\n%s\n\n", item.RequiredText)
	}
	if item.SuggestedText != "" {
		fmt.Fprintf(&b, "SUGGESTED TEXT:\n%s\n\n", item.SuggestedText)
	}

	b.WriteString("Pages are delimited by `--- PAGE n ---` markers in the protocol text.\n")
	b.WriteString("Quotes in `evidence` must be copied verbatim from the protocol.\n\n")
	fmt.Fprintf(&b, "Respond ONLY with a JSON object for section_id %q matching this schema:\n%s\n", item.ID, AnswerSchema())

	return b.String()
}
