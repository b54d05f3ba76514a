// Package synthesizer implements spec.md §4.6: prompt assembly from
// retrieved segments, post-generation cleaning, the fact-sanity pass, and
// entity extraction. Grounded on the teacher's
// internal/summarize/prompts.go (string-builder prompt assembly,
// truncateContent's sentence-boundary truncation, ParseSummaryResponse's
// section-header/bullet parsing) and summarizer.go (retry + fallback
// shape), generalized from "one article, one prompt style" to
// "retrieved segments, content-type-aware prompt style".
package synthesizer

import (
	"fmt"
	"strings"
	"unicode"

	"ragsum/internal/core"
)

const minCodeEvidenceCount = 8

// groupedSection is one section's worth of retrieved segments, in
// document order.
type groupedSection struct {
	title    string
	segments []*core.Segment
}

// groupBySection assembles the structural outline step of prompt
// assembly (spec.md §4.6 step 2): retrieved segments grouped by their
// section title, preserving first-seen order.
func groupBySection(segments []*core.Segment) []groupedSection {
	var order []string
	index := make(map[string]int)
	var groups []groupedSection

	for _, seg := range segments {
		title := seg.SectionTitle
		if i, ok := index[title]; ok {
			groups[i].segments = append(groups[i].segments, seg)
			continue
		}
		index[title] = len(groups)
		order = append(order, title)
		groups = append(groups, groupedSection{title: title, segments: []*core.Segment{seg}})
	}
	return groups
}

// filterCode drops code_block segments unless evidence is thin (spec.md
// §4.6 step 1: "filter out heavy code unless code is needed to reach a
// minimum evidence count").
func filterCode(segments []*core.Segment) []*core.Segment {
	nonCode := 0
	for _, s := range segments {
		if s.Type != core.SegmentCodeBlock {
			nonCode++
		}
	}
	if nonCode >= minCodeEvidenceCount || nonCode == len(segments) {
		out := make([]*core.Segment, 0, nonCode)
		for _, s := range segments {
			if s.Type != core.SegmentCodeBlock {
				out = append(out, s)
			}
		}
		return out
	}
	return segments
}

// extractTitle implements spec.md §4.6 step 4: first level-1 heading,
// else a Title:/Author: line or all-titlecase short line among the first
// 5 segments, else a sanitized filename.
func extractTitle(allSegments []*core.Segment, docID string) string {
	for _, seg := range allSegments {
		if seg.Type == core.SegmentHeading && seg.HeadingLevel == 1 {
			return seg.Text
		}
	}

	limit := len(allSegments)
	if limit > 5 {
		limit = 5
	}
	for _, seg := range allSegments[:limit] {
		if t, ok := titleLinePrefix(seg.Text, "title:"); ok {
			return t
		}
		if t, ok := titleLinePrefix(seg.Text, "author:"); ok {
			return t
		}
		if isAllTitleCaseShortLine(seg.Text) {
			return seg.Text
		}
	}

	return sanitizeFilename(docID)
}

func titleLinePrefix(text, prefix string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(lower, prefix) {
		return strings.TrimSpace(text[len(prefix):]), true
	}
	return "", false
}

func isAllTitleCaseShortLine(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if len(r) == 0 {
			continue
		}
		if !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}

func sanitizeFilename(docID string) string {
	replacer := strings.NewReplacer("_", " ", "-", " ")
	return strings.TrimSpace(replacer.Replace(docID))
}

// BuildPrompt assembles the synthesis prompt: content-type-aware unless
// the template supplies a custom one (spec.md §4.6 step 5).
func BuildPrompt(retrieved []*core.Segment, contentType core.ContentType, title string, template core.SummaryTemplate) string {
	if template.ExecutivePromptTemplate != "" {
		return fillTemplate(template.ExecutivePromptTemplate, retrieved, title, template)
	}

	evidence := filterCode(retrieved)
	sections := groupBySection(evidence)

	var b strings.Builder
	switch contentType {
	case core.ContentNarrative:
		b.WriteString("Summarize the following narrative excerpts faithfully, preserving character motivations, events in order, and setting.\n\n")
	case core.ContentExpository:
		b.WriteString("Summarize the following expository excerpts, preserving the argument structure, claims, and supporting evidence.\n\n")
	default:
		b.WriteString("Summarize the following excerpts.\n\n")
	}

	if title != "" {
		fmt.Fprintf(&b, "**Document:** %s\n\n", title)
	}

	b.WriteString("**Excerpts (grouped by section):**\n\n")
	for _, sec := range sections {
		if sec.title != "" {
			fmt.Fprintf(&b, "### %s\n", sec.title)
		}
		for _, seg := range sec.segments {
			fmt.Fprintf(&b, "%s\n\n", truncateContent(seg.Text, 1200))
		}
	}

	fmt.Fprintf(&b, "**Instructions:**\n")
	fmt.Fprintf(&b, "1. Write a summary of approximately %d words.\n", template.TargetWords)
	if template.OutputStyle == "bullets" {
		maxB := template.MaxBullets
		if maxB <= 0 {
			maxB = 5
		}
		fmt.Fprintf(&b, "2. Output as at most %d bullet points.\n", maxB)
	} else {
		b.WriteString("2. Output as flowing prose.\n")
	}
	b.WriteString("3. Use only facts present in the excerpts above. Do not invent names, numbers, or events not shown.\n")
	b.WriteString("4. Do not include quoted citation markers (e.g. bracketed ids) in the prose.\n")
	b.WriteString("5. Do not repeat the same point in different words.\n\n")
	b.WriteString("Summary:")

	return b.String()
}

func fillTemplate(tpl string, retrieved []*core.Segment, title string, template core.SummaryTemplate) string {
	var evidence strings.Builder
	for _, seg := range retrieved {
		evidence.WriteString(truncateContent(seg.Text, 1200))
		evidence.WriteString("\n\n")
	}
	replacer := strings.NewReplacer(
		"{{title}}", title,
		"{{evidence}}", evidence.String(),
		"{{target_words}}", fmt.Sprintf("%d", template.TargetWords),
	)
	return replacer.Replace(tpl)
}

// BuildFactExtractionPrompt is the fact-sanity pass's step (a): ask for
// 3-5 short fact statements drawn from the earliest retrieved segments.
func BuildFactExtractionPrompt(earliest []*core.Segment) string {
	var b strings.Builder
	b.WriteString("List 3-5 short, specific factual statements found in the following excerpts. One statement per line, no commentary.\n\n")
	for _, seg := range earliest {
		b.WriteString(truncateContent(seg.Text, 600))
		b.WriteString("\n\n")
	}
	b.WriteString("Facts:")
	return b.String()
}

// BuildFactCheckPrompt is the fact-sanity pass's step (b): ask the
// generator to confirm or correct the draft summary against the
// extracted facts.
func BuildFactCheckPrompt(draft, facts string) string {
	return fmt.Sprintf(`Check this summary against the facts listed below. If the summary is consistent, return it unchanged. If it contradicts or invents a fact, return a corrected version. Return only the summary text, nothing else.

**Facts:**
%s

**Summary:**
%s

Corrected summary:`, facts, draft)
}

// truncateContent truncates at a sentence boundary where possible,
// falling back to a word boundary. Mirrors the teacher's
// truncateContent in internal/summarize/prompts.go.
func truncateContent(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}
	truncated := content[:maxChars]

	lastPeriod := strings.LastIndex(truncated, ". ")
	if lastPeriod > maxChars/2 {
		return truncated[:lastPeriod+1]
	}
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
