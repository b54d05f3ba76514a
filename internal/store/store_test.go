package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ragsum/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreBootstrapCreatesDBFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, "ragsum.db")); err != nil {
		t.Fatalf("expected db file to exist: %v", err)
	}
}

func TestStoreUpsertAndRoundTripEmbedding(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seg := &core.Segment{
		ID: "d1_0_abcd1234", DocID: "d1", Index: 0, ContentHash: "abcd1234",
		Text: "hello world", Type: core.SegmentParagraph,
		Embedding: []float32{0.1, 0.2, 0.3}, Salience: 0.5,
	}
	if err := s.UpsertSegments(ctx, "col", []*core.Segment{seg}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetDocumentSegments(ctx, "col", "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(got))
	}
	if len(got[0].Embedding) != 3 || got[0].Embedding[1] != float32(0.2) {
		t.Fatalf("embedding did not round-trip: %+v", got[0].Embedding)
	}
}

func TestStoreHasDocumentAndDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seg := &core.Segment{ID: "d1_0_x", DocID: "d1", ContentHash: "x", Text: "t"}
	_ = s.UpsertSegments(ctx, "col", []*core.Segment{seg})

	has, err := s.HasDocument(ctx, "col", "d1")
	if err != nil || !has {
		t.Fatalf("expected HasDocument true, got %v err=%v", has, err)
	}

	if err := s.DeleteDocument(ctx, "col", "d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	has, _ = s.HasDocument(ctx, "col", "d1")
	if has {
		t.Fatalf("expected HasDocument false after delete")
	}
}

func TestStoreSearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	segs := []*core.Segment{
		{ID: "near", DocID: "d1", ContentHash: "near", Text: "t", Embedding: []float32{1, 0, 0}},
		{ID: "far", DocID: "d1", ContentHash: "far", Text: "t", Embedding: []float32{0, 1, 0}},
	}
	_ = s.UpsertSegments(ctx, "col", segs)

	results, err := s.Search(ctx, core.SearchQuery{Collection: "col", Vector: []float32{1, 0, 0}, K: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 || results[0].Segment.ID != "near" {
		t.Fatalf("expected near first, got %+v", results)
	}
}

func TestStoreCacheSummaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	summary := &core.DocumentSummary{ExecutiveSummary: "a summary"}
	if err := s.CacheSummary(ctx, "key1", summary); err != nil {
		t.Fatalf("cache: %v", err)
	}
	got, ok, err := s.GetCachedSummary(ctx, "key1")
	if err != nil || !ok {
		t.Fatalf("expected cache hit, ok=%v err=%v", ok, err)
	}
	if got.ExecutiveSummary != "a summary" {
		t.Fatalf("unexpected summary: %+v", got)
	}
}
