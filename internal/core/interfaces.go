package core

import "context"

// Embedder maps text to a fixed-dimension, L2-normalized vector. Batched,
// stateless. A failed Embed/EmbedBatch call is treated by callers as
// "embedding unavailable" and degrades retrieval to salience-only, not as a
// fatal error.
type Embedder interface {
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces prose from a prompt. Must be cancellable via ctx.
// IsAvailable lets callers short-circuit to the extractive fallback before
// spending a network round trip.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
	IsAvailable(ctx context.Context) bool
	ModelName() string
}

// SearchQuery describes a nearest-neighbor lookup against a VectorStore.
type SearchQuery struct {
	Collection string
	DocID      string // optional filter; empty means search the whole collection
	Vector     []float32
	K          int
}

// SearchResult pairs a segment with its query similarity.
type SearchResult struct {
	Segment         *Segment
	QuerySimilarity float64
}

// Stats reports operational shape of a VectorStore backend.
type Stats struct {
	Backend          string
	TotalSegments    int
	TotalDocuments   int
	EmbeddingDims    int
}

// VectorStore persists segments keyed by (collection, doc_id, content_hash)
// and a summary cache keyed by synthesis fingerprint. See spec.md §4.5 for
// the full operation table; both the in-memory and disk-backed (HNSW)
// implementations satisfy this same contract.
type VectorStore interface {
	Initialize(ctx context.Context, collection string, dim int) error
	HasDocument(ctx context.Context, collection, docID string) (bool, error)
	UpsertSegments(ctx context.Context, collection string, segments []*Segment) error
	GetDocumentSegments(ctx context.Context, collection, docID string) ([]*Segment, error)
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
	GetByHash(ctx context.Context, collection string, hashes []string) (map[string]*Segment, error)
	RemoveStale(ctx context.Context, collection, docID string, keepHashes map[string]bool) error
	DeleteDocument(ctx context.Context, collection, docID string) error
	DeleteCollection(ctx context.Context, collection string) error
	GetCachedSummary(ctx context.Context, key string) (*DocumentSummary, bool, error)
	CacheSummary(ctx context.Context, key string, summary *DocumentSummary) error
	Vacuum(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
