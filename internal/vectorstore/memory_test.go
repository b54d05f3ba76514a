package vectorstore

import (
	"context"
	"testing"

	"ragsum/internal/core"
)

func seg(id, docID string, index int, embedding []float32) *core.Segment {
	return &core.Segment{ID: id, DocID: docID, Index: index, ContentHash: id, Embedding: embedding, Text: "x"}
}

func TestMemoryStoreUpsertAndGetDocumentSegments(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Initialize(ctx, "c", 3)

	segs := []*core.Segment{
		seg("a", "doc1", 1, []float32{1, 0, 0}),
		seg("b", "doc1", 0, []float32{0, 1, 0}),
	}
	if err := store.UpsertSegments(ctx, "c", segs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetDocumentSegments(ctx, "c", "doc1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 1 {
		t.Fatalf("expected index-ordered segments, got %+v", got)
	}
}

func TestMemoryStoreSearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Initialize(ctx, "c", 3)
	_ = store.UpsertSegments(ctx, "c", []*core.Segment{
		seg("near", "doc1", 0, []float32{1, 0, 0}),
		seg("far", "doc1", 1, []float32{0, 1, 0}),
	})

	results, err := store.Search(ctx, core.SearchQuery{Vector: []float32{1, 0, 0}, K: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 || results[0].Segment.ID != "near" {
		t.Fatalf("expected near first, got %+v", results)
	}
}

func TestMemoryStoreRemoveStale(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.UpsertSegments(ctx, "c", []*core.Segment{
		seg("keep", "doc1", 0, nil),
		seg("drop", "doc1", 1, nil),
	})
	if err := store.RemoveStale(ctx, "c", "doc1", map[string]bool{"keep": true}); err != nil {
		t.Fatalf("remove_stale: %v", err)
	}
	got, _ := store.GetDocumentSegments(ctx, "c", "doc1")
	if len(got) != 1 || got[0].ID != "keep" {
		t.Fatalf("expected only 'keep' to remain, got %+v", got)
	}
}
