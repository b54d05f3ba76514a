package synthesizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragsum/internal/core"
)

const maxTopicSections = 10
const maxFirstHeadings = 10

// Synthesizer composes a DocumentSummary from retrieved segments. It is a
// pure function of (retrieved, extraction, template, generator) per
// spec.md §9's "no cyclic reference with orchestrator" design note.
type Synthesizer struct {
	generator core.Generator
}

// New constructs a Synthesizer. generator may be nil or unavailable, in
// which case every run uses the extractive fallback.
func New(generator core.Generator) *Synthesizer {
	return &Synthesizer{generator: generator}
}

// Synthesize builds the final DocumentSummary (spec.md §4.6).
func (s *Synthesizer) Synthesize(ctx context.Context, docID string, extraction *core.ExtractionResult, retrieved []*core.Segment, template core.SummaryTemplate) *core.DocumentSummary {
	start := time.Now()

	total := len(extraction.AllSegments)
	coverage := 0.0
	if total > 0 {
		coverage = float64(len(retrieved)) / float64(total)
	}

	title := extractTitle(extraction.AllSegments, docID)

	var executiveSummary string
	var citationRate float64
	if len(retrieved) == 0 {
		executiveSummary = "No content was available to summarize."
		citationRate = 0
	} else if s.generator != nil && s.generator.IsAvailable(ctx) {
		executiveSummary, citationRate = s.generate(ctx, retrieved, extraction.ContentType, title, template, coverage)
	} else {
		executiveSummary = extractiveFallback(retrieved, template)
		citationRate = 1.0
	}

	return &core.DocumentSummary{
		ExecutiveSummary: executiveSummary,
		TopicSummaries:   buildTopicSummaries(retrieved),
		OpenQuestions:     nil,
		Trace: core.Trace{
			DocID:          docID,
			TotalSegments:  total,
			RetrievedCount: len(retrieved),
			FirstHeadings:  firstHeadings(extraction.AllSegments),
			ElapsedMS:      time.Since(start).Milliseconds(),
			CoverageScore:  coverage,
			CitationRate:   citationRate,
		},
		Entities: Extract(retrieved, extraction.ContentType),
	}
}

// generate runs the generator path: build prompt, call generator, clean,
// run fact-sanity. Falls back to extractive mode if the generator call
// fails or cleaning leaves nothing (spec.md §8: "preamble-only response
// -> extractive fallback if empty").
func (s *Synthesizer) generate(ctx context.Context, retrieved []*core.Segment, contentType core.ContentType, title string, template core.SummaryTemplate, coverage float64) (string, float64) {
	prompt := BuildPrompt(retrieved, contentType, title, template)

	raw, err := s.generator.Generate(ctx, prompt, 0.3)
	if err != nil {
		return extractiveFallback(retrieved, template), 1.0
	}

	cleaned := clean(raw, coverage, false)
	if strings.TrimSpace(stripFooter(cleaned)) == "" {
		return extractiveFallback(retrieved, template), 1.0
	}

	withFacts := runFactSanity(ctx, s.generator, cleaned, retrieved, contentType)
	withFacts = stripPreamble(withFacts) // second preamble-strip pass, per spec.md §4.6
	if template.IncludeCoverageMetadata {
		withFacts = appendCoverageFooter(withFacts, coverage)
	}

	return withFacts, citationRateOf(withFacts, retrieved)
}

// stripFooter removes a previously appended coverage footer so emptiness
// can be checked against the actual prose content.
func stripFooter(text string) string {
	idx := strings.Index(text, "\n\n---\nCoverage:")
	if idx < 0 {
		return text
	}
	return text[:idx]
}

// extractiveFallback builds a citation-bearing bullet list straight from
// the retrieved segments, used whenever the generator is unavailable or
// fails (spec.md §7: "GeneratorUnavailable ... falls back to an
// extractive, citation-bearing bullet summary").
func extractiveFallback(retrieved []*core.Segment, template core.SummaryTemplate) string {
	maxBullets := template.MaxBullets
	if maxBullets <= 0 {
		maxBullets = 5
	}
	n := len(retrieved)
	if n > maxBullets {
		n = maxBullets
	}

	var b strings.Builder
	b.WriteString("Extractive summary (generator unavailable):\n\n")
	for _, seg := range retrieved[:n] {
		fmt.Fprintf(&b, "- %s %s\n", truncateContent(seg.Text, 240), seg.CitationLabel())
	}
	return strings.TrimSpace(b.String())
}

// citationRateOf estimates the fraction of lines carrying a segment
// citation marker, approximating spec.md §4's "fraction of bullets or
// claims carrying a segment id" for generated (non-extractive) prose.
func citationRateOf(text string, retrieved []*core.Segment) float64 {
	lines := strings.Split(text, "\n")
	var claims, cited int
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "---") {
			continue
		}
		claims++
		for _, seg := range retrieved {
			if strings.Contains(line, seg.ID) {
				cited++
				break
			}
		}
	}
	if claims == 0 {
		return 0
	}
	return float64(cited) / float64(claims)
}

// buildTopicSummaries implements spec.md §4.6: one annotated summary per
// section group, up to 10, each a short annotation plus the section's
// citation-bearing concatenation.
func buildTopicSummaries(retrieved []*core.Segment) []core.TopicSummary {
	groups := groupBySection(retrieved)
	if len(groups) > maxTopicSections {
		groups = groups[:maxTopicSections]
	}

	out := make([]core.TopicSummary, 0, len(groups))
	for _, g := range groups {
		var text strings.Builder
		for _, seg := range g.segments {
			fmt.Fprintf(&text, "%s %s ", truncateContent(seg.Text, 200), seg.CitationLabel())
		}
		out = append(out, core.TopicSummary{
			SectionTitle: g.title,
			Annotation:   fmt.Sprintf("%d supporting excerpt(s)", len(g.segments)),
			Text:         strings.TrimSpace(text.String()),
		})
	}
	return out
}

// firstHeadings returns up to 10 heading texts in document order.
func firstHeadings(segments []*core.Segment) []string {
	var out []string
	for _, seg := range segments {
		if seg.Type != core.SegmentHeading {
			continue
		}
		out = append(out, seg.Text)
		if len(out) >= maxFirstHeadings {
			break
		}
	}
	return out
}
