package retriever

import (
	"context"
	"testing"

	"ragsum/internal/core"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Dimensions() int { return len(s.vec) }
func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}
func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, s.err
}

func makeExtraction(n int) *core.ExtractionResult {
	segs := make([]*core.Segment, n)
	for i := 0; i < n; i++ {
		segs[i] = &core.Segment{
			ID:       core.SegmentID("doc", i, "h"),
			DocID:    "doc",
			Index:    i,
			Text:     "segment text",
			Salience: float64(n-i) / float64(n),
		}
	}
	top := make([]*core.Segment, len(segs))
	copy(top, segs)
	return &core.ExtractionResult{AllSegments: segs, TopBySalience: top, ContentType: core.ContentExpository}
}

func TestNoQueryPathReturnsDocumentOrder(t *testing.T) {
	extraction := makeExtraction(5)
	cfg := core.DefaultRetrievalConfig()
	cfg.TopK = 3
	r := New(nil)
	out, err := r.Retrieve(context.Background(), extraction, "", cfg)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Index <= out[i-1].Index {
			t.Fatalf("expected ascending document index, got %v", indicesOf(out))
		}
	}
}

func TestRetrieveSubsetOfAllSegments(t *testing.T) {
	extraction := makeExtraction(10)
	cfg := core.DefaultRetrievalConfig()
	cfg.TopK = 4
	cfg.FallbackCount = 2
	r := New(&stubEmbedder{vec: []float32{1, 0, 0}})
	for _, s := range extraction.AllSegments {
		s.Embedding = []float32{1, 0, 0}
	}
	out, err := r.Retrieve(context.Background(), extraction, "a query", cfg)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(out) > cfg.TopK+cfg.FallbackCount {
		t.Fatalf("retrieved set exceeds effective_k + fallback_count: got %d", len(out))
	}
	all := map[string]bool{}
	for _, s := range extraction.AllSegments {
		all[s.ID] = true
	}
	for _, s := range out {
		if !all[s.ID] {
			t.Fatalf("retrieved segment %s not part of all_segments", s.ID)
		}
	}
}

func TestRRFMonotonicity(t *testing.T) {
	// Fixed segment set: promote segment 5's BM25 rank from 6th to 2nd
	// while dense and salience stay fixed; fused score must not decrease.
	base := make([]int, 11)
	for i := range base {
		base[i] = i
	}
	bm25Before := append([]int{}, base...) // segment 5 at position 5
	bm25After := []int{0, 5, 1, 2, 3, 4, 6, 7, 8, 9, 10}

	dense := append([]int{}, base...)
	salience := append([]int{}, base...)

	before := fuseRRF([][]int{dense, bm25Before, salience}, DefaultRRFConstant)
	after := fuseRRF([][]int{dense, bm25After, salience}, DefaultRRFConstant)

	if after[5] < before[5] {
		t.Fatalf("expected fused score for segment 5 to not decrease: before=%v after=%v", before[5], after[5])
	}
	if after[5] <= before[5] {
		t.Fatalf("expected fused score to strictly increase when rank improves: before=%v after=%v", before[5], after[5])
	}
}

func TestLegacyFallbackMergeWhenAllBelowMinSimilarity(t *testing.T) {
	extraction := makeExtraction(6)
	for _, s := range extraction.AllSegments {
		s.Embedding = []float32{1, 0}
	}
	cfg := core.DefaultRetrievalConfig()
	cfg.UseRRF = false
	cfg.MinSimilarity = 2.0 // impossible to satisfy; cosine <= 1
	cfg.FallbackCount = 3
	cfg.TopK = 4

	r := New(&stubEmbedder{vec: []float32{1, 0}})
	out, err := r.Retrieve(context.Background(), extraction, "query", cfg)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(out) != cfg.FallbackCount {
		t.Fatalf("expected fallback-only result of length %d, got %d", cfg.FallbackCount, len(out))
	}
}

func indicesOf(segs []*core.Segment) []int {
	out := make([]int, len(segs))
	for i, s := range segs {
		out[i] = s.Index
	}
	return out
}
