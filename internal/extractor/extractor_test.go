package extractor

import (
	"context"
	"testing"

	"ragsum/internal/tokenizer"
)

func TestExtractSalienceBounds(t *testing.T) {
	md := "# Title\n\nA short paragraph about widgets. Another sentence about widgets here.\n\n## Section two\n\nMore prose follows in this section about gadgets.\n"
	e := New(nil)
	result, err := e.Extract(context.Background(), "doc1", md, tokenizer.DefaultOptions(), DefaultOptions())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.AllSegments) == 0 {
		t.Fatalf("expected segments")
	}
	for _, seg := range result.AllSegments {
		if seg.Salience < 0 || seg.Salience > 1 {
			t.Fatalf("salience out of bounds: %v", seg.Salience)
		}
		if seg.HasEmbedding() {
			t.Fatalf("expected no embedding without embedder")
		}
	}
}

func TestTopBySalienceIsSubsetView(t *testing.T) {
	md := "# Title\n\nFirst paragraph sentence goes here nicely. Second one follows after that.\n"
	e := New(nil)
	result, err := e.Extract(context.Background(), "doc1", md, tokenizer.DefaultOptions(), DefaultOptions())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.TopBySalience) > len(result.AllSegments) {
		t.Fatalf("top_by_salience must not exceed all_segments")
	}
	all := make(map[string]bool)
	for _, s := range result.AllSegments {
		all[s.ID] = true
	}
	for _, s := range result.TopBySalience {
		if !all[s.ID] {
			t.Fatalf("top_by_salience segment %s not found in all_segments", s.ID)
		}
	}
}

func TestClassifyContentType(t *testing.T) {
	if got := ClassifyContentType("Abstract: this paper presents an algorithm. In conclusion, therefore, the method works."); got != "expository" {
		t.Fatalf("expected expository, got %v", got)
	}
	if got := ClassifyContentType("Once upon a time, she looked at the narrator and said hello."); got != "narrative" {
		t.Fatalf("expected narrative, got %v", got)
	}
}
