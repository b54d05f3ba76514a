package synthesizer

import (
	"context"
	"strings"
	"testing"

	"ragsum/internal/core"
)

type stubGenerator struct {
	response  string
	err       error
	available bool
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	return g.response, g.err
}
func (g *stubGenerator) IsAvailable(ctx context.Context) bool { return g.available }
func (g *stubGenerator) ModelName() string                   { return "stub" }

func makeSegments(n int) []*core.Segment {
	var out []*core.Segment
	for i := 0; i < n; i++ {
		out = append(out, &core.Segment{
			ID: "doc_" + string(rune('a'+i)), DocID: "doc", Index: i,
			Type: core.SegmentParagraph, Text: "Widgets are discussed here in detail.",
			SectionTitle: "Intro",
		})
	}
	return out
}

func TestSynthesizeExtractiveFallbackWhenGeneratorUnavailable(t *testing.T) {
	retrieved := makeSegments(3)
	extraction := &core.ExtractionResult{AllSegments: retrieved, ContentType: core.ContentExpository}
	synth := New(&stubGenerator{available: false})

	summary := synth.Synthesize(context.Background(), "doc", extraction, retrieved, core.PresetTemplate("default"))
	if !strings.Contains(summary.ExecutiveSummary, "Extractive summary") {
		t.Fatalf("expected extractive fallback, got: %s", summary.ExecutiveSummary)
	}
	if summary.Trace.CitationRate != 1.0 {
		t.Fatalf("expected citation_rate 1.0 in fallback, got %v", summary.Trace.CitationRate)
	}
}

func TestSynthesizeEmptyRetrievedYieldsZeroCoverage(t *testing.T) {
	extraction := &core.ExtractionResult{AllSegments: makeSegments(5), ContentType: core.ContentExpository}
	synth := New(&stubGenerator{available: false})

	summary := synth.Synthesize(context.Background(), "doc", extraction, nil, core.PresetTemplate("default"))
	if summary.Trace.CoverageScore != 0 {
		t.Fatalf("expected coverage 0, got %v", summary.Trace.CoverageScore)
	}
}

func TestSynthesizeUsesGeneratorOutputWhenAvailable(t *testing.T) {
	retrieved := makeSegments(3)
	extraction := &core.ExtractionResult{AllSegments: retrieved, ContentType: core.ContentExpository}
	synth := New(&stubGenerator{available: true, response: "Widgets are broadly discussed."})

	summary := synth.Synthesize(context.Background(), "doc", extraction, retrieved, core.PresetTemplate("default"))
	if !strings.Contains(summary.ExecutiveSummary, "Widgets") {
		t.Fatalf("expected generator output, got: %s", summary.ExecutiveSummary)
	}
}

func TestStripPreambleRemovesKnownPhrases(t *testing.T) {
	got := stripPreamble("Here is the summary:\nWidgets are great.")
	if strings.Contains(strings.ToLower(got), "here is") {
		t.Fatalf("expected preamble stripped, got: %s", got)
	}
}

func TestConfidenceBandThresholds(t *testing.T) {
	if confidenceBand(0.01) != "Low" {
		t.Fatalf("expected Low")
	}
	if confidenceBand(0.10) != "Medium" {
		t.Fatalf("expected Medium")
	}
	if confidenceBand(0.50) != "High" {
		t.Fatalf("expected High")
	}
}

func TestExtractEntitiesDisabledForExpository(t *testing.T) {
	segs := []*core.Segment{{Text: "Mr. Smith walked down Baker Street.", Type: core.SegmentParagraph}}
	ent := Extract(segs, core.ContentExpository)
	if len(ent.Characters) != 0 || len(ent.Locations) != 0 {
		t.Fatalf("expected no entities for expository content, got %+v", ent)
	}
}

func TestExtractEntitiesNarrative(t *testing.T) {
	segs := []*core.Segment{
		{Text: "Mr. Smith walked down Baker Street with Mr. Smith again.", Type: core.SegmentParagraph},
	}
	ent := Extract(segs, core.ContentNarrative)
	found := false
	for _, c := range ent.Characters {
		if strings.Contains(c, "Smith") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Smith to be extracted as a character, got %+v", ent.Characters)
	}
}
