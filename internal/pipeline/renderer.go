package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/ppiankov/icfextract/internal/model"
)

const (
	manualMarker       = "[TO BE FILLED MANUALLY]"
	suggestedTextRunes = 800
	evidenceQuoteRunes = 250
)

// Renderer writes run reports to disk and terminals
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderAll writes the JSON report and, when a draft name is configured, the
// Markdown draft into dir
func (r *Renderer) RenderAll(report *model.Report, items []model.WorkItem, dir string, out model.OutputConfig) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", dir)
	}

	var written []string

	jsonPath := filepath.Join(dir, out.ReportName)
	if err := r.RenderJSON(report, jsonPath); err != nil {
		return written, errors.Wrap(err, "render JSON")
	}
	written = append(written, jsonPath)

	if out.DraftName != "" {
		mdPath := filepath.Join(dir, out.DraftName)
		if err := r.RenderMarkdown(report, items, mdPath); err != nil {
			return written, errors.Wrap(err, "render draft")
		}
		written = append(written, mdPath)
	}

	return written, nil
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	for i := range report.Extractions {
		if report.Extractions[i].Evidence == nil {
			report.Extractions[i].Evidence = []model.EvidenceQuote{}
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// RenderMarkdown writes the draft consent form. Every registry item gets a
// section; items without an extraction are marked as not processed.
func (r *Renderer) RenderMarkdown(report *model.Report, items []model.WorkItem, path string) error {
	return writeFileAtomic(path, []byte(r.Draft(report, items)))
}

// Draft builds the Markdown draft in memory
func (r *Renderer) Draft(report *model.Report, items []model.WorkItem) string {
	extractions := make(map[string]model.ExtractionResult, len(report.Extractions))
	for _, e := range report.Extractions {
		extractions[e.ItemID] = e
	}
	validations := make(map[string]model.ValidationResult, len(report.Validations))
	for _, v := range report.Validations {
		validations[v.ItemID] = v
	}

	var b strings.Builder
	b.WriteString("# DRAFT - Informed Consent Form\n\n")
	b.WriteString("_This is an auto-generated draft. Sections marked " + manualMarker +
		" require human review and completion. Evidence citations are included below each section for reference._\n\n")
	if report.Interrupted {
		b.WriteString("_The run was interrupted; later sections were not processed._\n\n")
	}
	b.WriteString("---\n\n")

	for _, item := range items {
		heading := item.Heading
		level := "##"
		if item.SubHeading != "" {
			heading += " - " + item.SubHeading
			level = "###"
		}
		fmt.Fprintf(&b, "%s %s\n\n", level, heading)

		ext, ok := extractions[item.ID]
		if !ok {
			b.WriteString("`NOT PROCESSED`\n\n")
			continue
		}

		b.WriteString(statusLine(ext) + "\n\n")
		writeContent(&b, item, ext)

		if len(ext.Evidence) > 0 {
			b.WriteString("_Evidence:_\n\n")
			for _, ev := range ext.Evidence {
				quote := strings.ReplaceAll(truncateRunes(ev.Quote, evidenceQuoteRunes), "\n", " ")
				fmt.Fprintf(&b, "- Page %s: \"%s\"\n", ev.Page, quote)
			}
			b.WriteString("\n")
		}

		if v, ok := validations[item.ID]; ok {
			for _, issue := range v.Issues {
				fmt.Fprintf(&b, "> [VALIDATION] %s\n", issue)
			}
			if len(v.Issues) > 0 {
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func statusLine(ext model.ExtractionResult) string {
	line := "`Status: " + string(ext.Status)
	if ext.Confidence != "" && ext.Confidence != model.ConfidenceNotApplicable {
		line += " | Confidence: " + string(ext.Confidence)
	}
	if ext.Error != "" {
		line += " | Error: " + ext.Error
	}
	return line + "`"
}

func writeContent(b *strings.Builder, item model.WorkItem, ext model.ExtractionResult) {
	switch ext.Status {
	case model.StatusFound, model.StatusPartial, model.StatusStandardText:
		text := ext.FilledTemplate
		if text == "" {
			text = ext.Answer
		}
		if text != "" {
			b.WriteString(text + "\n\n")
		}
		if ext.Status == model.StatusPartial && ext.Notes != "" {
			fmt.Fprintf(b, "_[PARTIAL] %s_\n\n", ext.Notes)
		}
	case model.StatusNotFound, model.StatusSkipped:
		b.WriteString("**" + manualMarker + "**\n\n")
		if item.SuggestedText != "" {
			fmt.Fprintf(b, "_Suggested text: %s_\n\n", truncateRunes(item.SuggestedText, suggestedTextRunes))
		}
	case model.StatusError:
		fmt.Fprintf(b, "**[EXTRACTION ERROR] %s**\n\n", ext.Error)
	}
}

// RenderSummary prints the run summary table
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	s := report.Summary
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 60))
	_, _ = fmt.Fprintln(w, "EXTRACTION SUMMARY")
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 60))
	_, _ = fmt.Fprintf(w, "  Total sections:     %d\n", s.TotalSections)
	_, _ = fmt.Fprintf(w, "  Found:              %d\n", s.Found)
	_, _ = fmt.Fprintf(w, "  Partial:            %d\n", s.Partial)
	_, _ = fmt.Fprintf(w, "  Not found:          %d\n", s.NotFound)
	_, _ = fmt.Fprintf(w, "  Skipped:            %d\n", s.Skipped)
	_, _ = fmt.Fprintf(w, "  Standard text:      %d\n", s.StandardText)
	_, _ = fmt.Fprintf(w, "  Errors:             %d\n", s.Errors)
	_, _ = fmt.Fprintf(w, "  Validation issues:  %d\n", s.ValidationIssues)
	_, _ = fmt.Fprintf(w, "  Fully verified:     %d\n", s.FullyVerified)
	_, _ = fmt.Fprintf(w, "  Elapsed:            %.1fs\n", s.ElapsedSeconds)
	if report.Interrupted {
		_, _ = fmt.Fprintln(w, "  (interrupted: partial results)")
	}
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 60))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// writeFileAtomic writes through a temp file so readers never see a partial report
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}
