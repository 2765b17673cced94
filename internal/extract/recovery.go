package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/icfextract/internal/util"
)

// Record is a structured answer recovered from agent text
type Record map[string]any

// Has reports whether key is present
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the value under key as text. Missing or null values give "".
// Non-string scalars are formatted, composites are JSON-encoded.
func (r Record) String(key string) string {
	return stringify(r[key])
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, float64, int, int64:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// Method names the strategy that produced a Record
type Method string

const (
	MethodJSON     Method = "json"
	MethodLiteral  Method = "literal"
	MethodFence    Method = "fenced_block"
	MethodBraces   Method = "brace_scan"
	MethodFallback Method = "free_text"
)

// FallbackNote is attached to records synthesized from free-form text
const FallbackNote = "Agent returned free-form text instead of structured output. Content may need manual review."

// minFallbackLength is the rune count free-form text must exceed to be kept
const minFallbackLength = 20

// Recovery is a recovered record plus the strategy that found it
type Recovery struct {
	Record Record
	Method Method
}

// strategy tries to recover a record from the trimmed text (and the raw text
// where surrounding whitespace matters)
type strategy struct {
	method Method
	try    func(trimmed, raw string) (Record, bool)
}

// strategies run in order; the first success wins
var strategies = []strategy{
	{MethodJSON, func(trimmed, _ string) (Record, bool) { return decodeJSONObject(trimmed) }},
	{MethodLiteral, func(trimmed, _ string) (Record, bool) { return decodeLiteralObject(trimmed) }},
	{MethodFence, func(_, raw string) (Record, bool) { return decodeFencedBlock(raw) }},
	{MethodBraces, func(_, raw string) (Record, bool) { return decodeBraceCandidates(raw) }},
	{MethodFallback, func(trimmed, _ string) (Record, bool) { return freeTextRecord(trimmed) }},
}

// Recover turns arbitrary agent output into a Record. It returns false only
// when nothing usable was found.
func Recover(raw string) (Record, bool) {
	rec, ok := RecoverWithMethod(raw)
	return rec.Record, ok
}

// RecoverWithMethod is Recover plus the name of the winning strategy
func RecoverWithMethod(raw string) (Recovery, bool) {
	if raw == "" {
		return Recovery{}, false
	}
	trimmed := strings.TrimSpace(raw)
	for _, s := range strategies {
		if rec, ok := s.try(trimmed, raw); ok {
			return Recovery{Record: rec, Method: s.method}, true
		}
	}
	return Recovery{}, false
}

func decodeJSONObject(text string) (Record, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// decodeLiteralObject accepts mapping literals JSON rejects: single-quoted
// keys and strings with backslash escapes, True/False/None, trailing commas.
// Unquoted keys get a second try as a YAML flow mapping. Text must look like
// a mapping: YAML would otherwise read "key: value" prose as a mapping.
func decodeLiteralObject(text string) (Record, bool) {
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return nil, false
	}
	if v, err := util.DecodeLiteral(text); err == nil {
		m, ok := v.(map[string]any)
		return Record(m), ok
	}
	var v any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	m, ok := normalizeLiteral(v).(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// normalizeLiteral converts YAML decoder output into JSON-shaped values
func normalizeLiteral(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeLiteral(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeLiteral(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeLiteral(item)
		}
		return out
	case int:
		return float64(val)
	case string:
		if val == "None" {
			return nil
		}
		return val
	default:
		return val
	}
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

func decodeFencedBlock(raw string) (Record, bool) {
	m := fencePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return decodeJSONObject(strings.TrimSpace(m[1]))
}

// decodeBraceCandidates scans from the last candidate to the first. A
// candidate with a "status" key wins; otherwise the last-occurring object
// that parses at all is returned.
func decodeBraceCandidates(raw string) (Record, bool) {
	candidates := braceCandidates(raw)
	var anyValid Record
	for i := len(candidates) - 1; i >= 0; i-- {
		rec, ok := decodeJSONObject(candidates[i])
		if !ok {
			continue
		}
		if rec.Has("status") {
			return rec, true
		}
		if anyValid == nil {
			anyValid = rec
		}
	}
	if anyValid != nil {
		return anyValid, true
	}
	return nil, false
}

// braceCandidates returns every top-level brace-balanced {...} substring in
// order of appearance. Unmatched closing braces are ignored.
func braceCandidates(text string) []string {
	var results []string
	depth := 0
	start := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				results = append(results, text[start:i+1])
				start = -1
			}
		}
	}
	return results
}

func freeTextRecord(trimmed string) (Record, bool) {
	if utf8.RuneCountInString(trimmed) <= minFallbackLength {
		return nil, false
	}
	return Record{
		"status":          "PARTIAL",
		"answer":          trimmed,
		"filled_template": "",
		"evidence":        []any{},
		"confidence":      "LOW",
		"notes":           FallbackNote,
	}, true
}
