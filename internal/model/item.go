package model

// WorkItem describes one ICF template section to be filled from the protocol.
// Items are built once by the registry loader and never mutated afterwards.
type WorkItem struct {
	ID              string   `json:"section_id"`
	Heading         string   `json:"heading"`
	SubHeading      string   `json:"sub_section,omitempty"`
	Required        bool     `json:"required"`
	Instructions    string   `json:"instructions,omitempty"`
	RequiredText    string   `json:"required_text,omitempty"`    // May contain {{ ... }} placeholders
	SuggestedText   string   `json:"suggested_text,omitempty"`   // Fallback wording for manual entry
	Tags            []string `json:"complexity,omitempty"`       // Free-text complexity/availability tags
	ProtocolMapping string   `json:"protocol_mapping,omitempty"` // Where to look in the protocol
	SponsorMapping  string   `json:"sponsor_mapping,omitempty"`  // Where to look in sponsor templates
	Notes           string   `json:"notes,omitempty"`
	RegistryStatus  string   `json:"registry_status,omitempty"` // Status column from the registry

	// Derived from Tags by the classifier
	IsAvailableInSource  bool `json:"is_in_protocol"`
	IsPartiallyAvailable bool `json:"partially_in_protocol"`
	IsStandardText       bool `json:"is_standard_text"`
}

// DisplayName returns "[id] heading > sub-heading" for logs and documents
func (w WorkItem) DisplayName() string {
	name := "[" + w.ID + "] " + w.Heading
	if w.SubHeading != "" {
		name += " > " + w.SubHeading
	}
	return name
}

// NeedsAgent reports whether routing the item requires an agent call
func (w WorkItem) NeedsAgent() bool {
	if w.IsStandardText {
		return false
	}
	return w.IsAvailableInSource || w.IsPartiallyAvailable
}
