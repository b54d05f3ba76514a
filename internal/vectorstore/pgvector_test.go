package vectorstore

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"ragsum/internal/core"
)

// TestPgVectorIntegration exercises PgVectorStore against a real
// Postgres + pgvector instance.
//
// Run with: DATABASE_URL=postgres://... go test ./internal/vectorstore -run TestPgVectorIntegration
func TestPgVectorIntegration(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	ctx := context.Background()
	store := NewPgVectorStore(db)
	collection := "ragsum_pgvector_integration_test"

	if err := store.Initialize(ctx, collection, 3); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() {
		_ = store.DeleteCollection(context.Background(), collection)
	})

	segs := []*core.Segment{
		{ID: "a", DocID: "doc1", Index: 0, ContentHash: "ha", Text: "near", Embedding: []float32{1, 0, 0}},
		{ID: "b", DocID: "doc1", Index: 1, ContentHash: "hb", Text: "far", Embedding: []float32{0, 1, 0}},
	}
	if err := store.UpsertSegments(ctx, collection, segs); err != nil {
		t.Fatalf("upsert_segments: %v", err)
	}

	t.Run("Search", func(t *testing.T) {
		results, err := store.Search(ctx, core.SearchQuery{Collection: collection, Vector: []float32{1, 0, 0}, K: 2})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(results) != 2 || results[0].Segment.ID != "a" {
			t.Fatalf("expected segment 'a' ranked first, got %+v", results)
		}
	})

	t.Run("DeleteDocument recreates the HNSW index", func(t *testing.T) {
		if err := store.DeleteDocument(ctx, collection, "doc1"); err != nil {
			t.Fatalf("delete_document: %v", err)
		}
		has, err := store.HasDocument(ctx, collection, "doc1")
		if err != nil {
			t.Fatalf("has_document: %v", err)
		}
		if has {
			t.Fatalf("expected doc1 segments to be gone after delete_document")
		}
		var indexExists bool
		err = db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE indexname = 'idx_segments_embedding_hnsw')`,
		).Scan(&indexExists)
		if err != nil {
			t.Fatalf("index existence check: %v", err)
		}
		if !indexExists {
			t.Fatalf("expected HNSW index to be recreated after delete_document")
		}
	})

	t.Run("DeleteCollection recreates the HNSW index", func(t *testing.T) {
		if err := store.UpsertSegments(ctx, collection, segs); err != nil {
			t.Fatalf("re-upsert: %v", err)
		}
		if err := store.DeleteCollection(ctx, collection); err != nil {
			t.Fatalf("delete_collection: %v", err)
		}
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.TotalDocuments != 0 {
			t.Fatalf("expected zero documents after delete_collection, got %d", stats.TotalDocuments)
		}
		var indexExists bool
		err = db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE indexname = 'idx_segments_embedding_hnsw')`,
		).Scan(&indexExists)
		if err != nil {
			t.Fatalf("index existence check: %v", err)
		}
		if !indexExists {
			t.Fatalf("expected HNSW index to be recreated after delete_collection")
		}
	})
}
