// Package ingest turns a protocol text into page-indexed source text.
package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Page is one page of protocol text
type Page struct {
	Number int
	Text   string
}

// Source is a protocol split into pages
type Source struct {
	Pages      []Page
	FullText   string // Page-marked text handed to the agent and the validator
	TotalPages int
	Path       string
}

// pageCharLimit sizes synthetic pages for text without page boundaries
const pageCharLimit = 3000

var pageMarker = regexp.MustCompile(`(?m)^[ \t]*--- PAGE (\d+) ---[ \t]*$`)

// PageText returns every page preceded by its "--- PAGE n ---" marker
func (s *Source) PageText() string {
	parts := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		parts = append(parts, fmt.Sprintf("--- PAGE %d ---\n%s", p.Number, p.Text))
	}
	return strings.Join(parts, "\n")
}

// Parse splits text into pages. Existing page markers win, then form
// feeds, then paragraphs grouped into pages of about 3000 characters.
func Parse(text, path string) (*Source, error) {
	text = strings.ToValidUTF8(text, "\uFFFD")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var pages []Page
	var total int
	switch {
	case pageMarker.MatchString(text):
		pages = splitOnMarkers(text)
		total = len(pages)
	case strings.Contains(text, "\f"):
		pages, total = splitOnFormFeeds(text)
	default:
		pages = groupParagraphs(text)
		total = len(pages)
	}

	if len(pages) == 0 {
		return nil, errors.Newf("no text could be extracted from %s", path)
	}

	src := &Source{Pages: pages, TotalPages: total, Path: path}
	src.FullText = src.PageText()
	return src, nil
}

func splitOnMarkers(text string) []Page {
	locs := pageMarker.FindAllStringSubmatchIndex(text, -1)
	preamble := strings.TrimSpace(text[:locs[0][0]])

	var pages []Page
	for i, loc := range locs {
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])
		if i == 0 && preamble != "" {
			body = strings.TrimSpace(preamble + "\n" + body)
		}
		if body == "" {
			continue
		}
		pages = append(pages, Page{Number: n, Text: body})
	}
	return pages
}

// splitOnFormFeeds keeps page numbering even when blank pages are dropped
func splitOnFormFeeds(text string) ([]Page, int) {
	raw := strings.Split(text, "\f")
	var pages []Page
	for i, chunk := range raw {
		if body := strings.TrimSpace(chunk); body != "" {
			pages = append(pages, Page{Number: i + 1, Text: body})
		}
	}
	return pages, len(raw)
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

func groupParagraphs(text string) []Page {
	var pages []Page
	var parts []string
	length := 0

	flush := func() {
		if len(parts) == 0 {
			return
		}
		pages = append(pages, Page{Number: len(pages) + 1, Text: strings.Join(parts, "\n")})
		parts = nil
		length = 0
	}

	for _, para := range blankLines.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		parts = append(parts, para)
		length += len(para)
		if length >= pageCharLimit {
			flush()
		}
	}
	flush()
	return pages
}
