package orchestrator

import (
	"context"
	"strings"
	"testing"

	"ragsum/internal/core"
	"ragsum/internal/vectorstore"
)

const sampleDoc = `# Widgets Overview

Widgets are small mechanical devices used across many industries.

## History

Widgets were first manufactured in the early twentieth century.

## Usage

Modern widgets are used in manufacturing, logistics, and consumer goods.
`

func TestRunProducesSummaryWithoutStoreOrGenerator(t *testing.T) {
	orch := New(nil, nil, nil)
	summary, err := orch.Run(context.Background(), "widgets.md", sampleDoc, "", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Trace.CoverageScore <= 0 {
		t.Fatalf("expected positive coverage, got %v", summary.Trace.CoverageScore)
	}
	if summary.Trace.CitationRate != 1.0 {
		t.Fatalf("expected extractive fallback citation_rate 1.0, got %v", summary.Trace.CitationRate)
	}
}

func TestRunEmptyDocumentYieldsZeroCoverage(t *testing.T) {
	orch := New(nil, nil, nil)
	summary, err := orch.Run(context.Background(), "empty.md", "", "", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Trace.CoverageScore != 0 {
		t.Fatalf("expected zero coverage for empty document, got %v", summary.Trace.CoverageScore)
	}
	if summary.Trace.TotalSegments != 0 {
		t.Fatalf("expected zero segments, got %v", summary.Trace.TotalSegments)
	}
}

func TestRunReusesPersistedSegmentsOnSecondRun(t *testing.T) {
	vs := vectorstore.NewMemoryStore()
	orch := New(vs, nil, nil)
	cfg := DefaultConfig()

	first, err := orch.Run(context.Background(), "widgets.md", sampleDoc, "", cfg)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	second, err := orch.Run(context.Background(), "widgets.md", sampleDoc, "", cfg)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if first.ExecutiveSummary != second.ExecutiveSummary {
		t.Fatalf("expected identical summaries across runs over the same document, got %q vs %q",
			first.ExecutiveSummary, second.ExecutiveSummary)
	}
}

func TestRunPersistsExtractedDocument(t *testing.T) {
	vs := vectorstore.NewMemoryStore()
	orch := New(vs, nil, nil)
	cfg := DefaultConfig()

	if _, err := orch.Run(context.Background(), "widgets.md", sampleDoc, "", cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	stats, err := vs.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalDocuments != 1 {
		t.Fatalf("expected one persisted document, got %d", stats.TotalDocuments)
	}
}

func TestSanitizeDocIDIsStableAndNonEmpty(t *testing.T) {
	id := sanitizeDocID("My Report v2.md", core.ContentHash("hello"))
	if strings.Contains(id, " ") {
		t.Fatalf("expected no spaces in doc id, got %q", id)
	}
	if got := sanitizeDocID("", core.ContentHash("x")); got != "doc_"+core.ContentHash("x") {
		t.Fatalf("expected 'doc' fallback prefix for empty filename, got %q", got)
	}
}

func TestPreRetrievalKeyDiffersOnQuery(t *testing.T) {
	tmpl := core.PresetTemplate("default")
	retrieval := core.DefaultRetrievalConfig()
	a := preRetrievalKey("hash1", "", tmpl, retrieval, "embed-model", "gen-model")
	b := preRetrievalKey("hash1", "focus query", tmpl, retrieval, "embed-model", "gen-model")
	if a == b {
		t.Fatalf("expected different keys for no-query vs query variants")
	}
}

func TestSynthesisKeyIgnoresRetrievalOrder(t *testing.T) {
	segs := []*core.Segment{
		{ID: "a", ContentHash: "h1"},
		{ID: "b", ContentHash: "h2"},
	}
	reversed := []*core.Segment{segs[1], segs[0]}

	pre := "prekey"
	if synthesisKey(pre, segs) != synthesisKey(pre, reversed) {
		t.Fatalf("expected synthesis key to be order-insensitive over retrieved segments")
	}
}
