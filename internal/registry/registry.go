// Package registry loads the ICF template breakdown: one work item per
// CSV row, with availability derived from the row's complexity tags.
package registry

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/icfextract/internal/classify"
	"github.com/ppiankov/icfextract/internal/model"
	"github.com/ppiankov/icfextract/internal/util"
)

// Column positions in the template breakdown
const (
	colID = iota
	colStatus
	colComplexity
	colHeading
	colSubHeading
	colRequired
	colInstructions
	colRequiredText
	colSuggestedText
	colQuestions
	colMinimalRisk
	colProtocolMapping
	colSponsorMapping
	colDecisions
	colNotes
)

// minColumns is the shortest row that still describes an item
const minColumns = colRequiredText + 1

// Load reads the registry at path. A missing file or a registry with no
// usable rows is an error.
func Load(path string) ([]model.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(errors.Newf("template registry not found: %s", path), "pass the template breakdown CSV with --csv")
		}
		return nil, errors.Wrap(err, "open registry")
	}
	defer func() { _ = f.Close() }()

	items, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "registry %s", path)
	}
	return items, nil
}

// Parse reads CSV rows after the header. Rows marked "excluded" and rows
// too short to describe an item are dropped.
func Parse(r io.Reader) ([]model.WorkItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("registry is empty")
		}
		return nil, errors.Wrap(err, "read header")
	}

	var items []model.WorkItem
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		if len(row) < minColumns {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row[colStatus]), "excluded") {
			continue
		}
		items = append(items, itemFromRow(row))
	}

	if len(items) == 0 {
		return nil, errors.New("registry has no usable rows")
	}
	return items, nil
}

func itemFromRow(row []string) model.WorkItem {
	tags := ParseTags(row[colComplexity])
	a := classify.Classify(tags)

	return model.WorkItem{
		ID:                   strings.TrimSpace(row[colID]),
		RegistryStatus:       strings.TrimSpace(row[colStatus]),
		Tags:                 tags,
		Heading:              cell(row, colHeading),
		SubHeading:           cell(row, colSubHeading),
		Required:             ParseRequired(row[colRequired]),
		Instructions:         cell(row, colInstructions),
		RequiredText:         cell(row, colRequiredText),
		SuggestedText:        cell(row, colSuggestedText),
		ProtocolMapping:      cell(row, colProtocolMapping),
		SponsorMapping:       cell(row, colSponsorMapping),
		Notes:                cell(row, colNotes),
		IsAvailableInSource:  a.Available,
		IsPartiallyAvailable: a.Partial,
		IsStandardText:       a.Standard,
	}
}

// cell returns the trimmed, entity-decoded column, or "" past the row end
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return html.UnescapeString(strings.TrimSpace(row[i]))
}

// ParseTags reads the complexity column. A bracketed list such as
// ['Easy Mapping', "Not in Protocol"] yields its elements; anything else
// is a single tag.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		if list, ok := decodeTagList(raw); ok {
			tags := make([]string, 0, len(list))
			for _, v := range list {
				if s, ok := v.(string); ok {
					tags = append(tags, s)
				} else if v != nil {
					tags = append(tags, yamlScalar(v))
				}
			}
			return tags
		}
	}
	return []string{raw}
}

// decodeTagList reads a Python-style list literal, falling back to a YAML
// flow sequence for unquoted elements
func decodeTagList(raw string) ([]any, bool) {
	if v, err := util.DecodeLiteral(raw); err == nil {
		list, ok := v.([]any)
		return list, ok
	}
	var list []any
	if err := yaml.Unmarshal([]byte(raw), &list); err != nil {
		return nil, false
	}
	return list, true
}

func yamlScalar(v any) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// ParseRequired reads the required/optional column
func ParseRequired(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(lower, "required"):
		return true
	case strings.HasPrefix(lower, "optional"):
		return false
	}
	return strings.Contains(lower, "required") && !strings.Contains(lower, "optional")
}

// Filter keeps items whose id is in ids, in registry order. An empty ids
// keeps everything.
func Filter(items []model.WorkItem, ids []string) []model.WorkItem {
	if len(ids) == 0 {
		return items
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = true
	}
	var out []model.WorkItem
	for _, it := range items {
		if want[it.ID] {
			out = append(out, it)
		}
	}
	return out
}
