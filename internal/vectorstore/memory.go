package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"ragsum/internal/core"
)

// MemoryStore is an in-process, exhaustive-cosine-search VectorStore.
// Used for tests and for the single-shot CLI path where persistence
// across runs isn't needed (spec.md §4.5's "in-memory exhaustive search"
// backend). The collection argument of every method is ignored: documents
// from all collections share one namespace keyed by doc id, and
// DeleteCollection removes every document.
type MemoryStore struct {
	mu        sync.RWMutex
	dim       int
	documents map[string]map[string]*core.Segment // docID -> segmentID -> segment
	summaries map[string]*core.DocumentSummary
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]map[string]*core.Segment),
		summaries: make(map[string]*core.DocumentSummary),
	}
}

func (m *MemoryStore) Initialize(ctx context.Context, collection string, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dim = dim
	return nil
}

func (m *MemoryStore) HasDocument(ctx context.Context, collection, docID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	segs, ok := m.documents[docID]
	return ok && len(segs) > 0, nil
}

func (m *MemoryStore) UpsertSegments(ctx context.Context, collection string, segments []*core.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, seg := range segments {
		if m.documents[seg.DocID] == nil {
			m.documents[seg.DocID] = make(map[string]*core.Segment)
		}
		m.documents[seg.DocID][seg.ID] = seg
	}
	return nil
}

func (m *MemoryStore) GetDocumentSegments(ctx context.Context, collection, docID string) ([]*core.Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	segs := m.documents[docID]
	out := make([]*core.Segment, 0, len(segs))
	for _, s := range segs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *MemoryStore) Search(ctx context.Context, q core.SearchQuery) ([]core.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, core.NewError(core.KindInput, "search requires a non-empty query vector", nil)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []*core.Segment
	if q.DocID != "" {
		for _, s := range m.documents[q.DocID] {
			candidates = append(candidates, s)
		}
	} else {
		for _, segs := range m.documents {
			for _, s := range segs {
				candidates = append(candidates, s)
			}
		}
	}

	results := make([]core.SearchResult, 0, len(candidates))
	for _, s := range candidates {
		if !s.HasEmbedding() {
			continue
		}
		results = append(results, core.SearchResult{Segment: s, QuerySimilarity: cosineSimilarity(q.Vector, s.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].QuerySimilarity != results[j].QuerySimilarity {
			return results[i].QuerySimilarity > results[j].QuerySimilarity
		}
		return results[i].Segment.ID < results[j].Segment.ID
	})

	k := q.K
	if k <= 0 || k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (m *MemoryStore) GetByHash(ctx context.Context, collection string, hashes []string) (map[string]*core.Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		want[h] = true
	}
	out := make(map[string]*core.Segment)
	for _, segs := range m.documents {
		for _, s := range segs {
			if want[s.ContentHash] {
				out[s.ContentHash] = s
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) RemoveStale(ctx context.Context, collection, docID string, keepHashes map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs := m.documents[docID]
	for id, s := range segs {
		if !keepHashes[s.ContentHash] {
			delete(segs, id)
		}
	}
	return nil
}

func (m *MemoryStore) DeleteDocument(ctx context.Context, collection, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, docID)
	return nil
}

func (m *MemoryStore) DeleteCollection(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = make(map[string]map[string]*core.Segment)
	return nil
}

func (m *MemoryStore) GetCachedSummary(ctx context.Context, key string) (*core.DocumentSummary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[key]
	return s, ok, nil
}

func (m *MemoryStore) CacheSummary(ctx context.Context, key string, summary *core.DocumentSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[key] = summary
	return nil
}

func (m *MemoryStore) Vacuum(ctx context.Context) error { return nil }

func (m *MemoryStore) Stats(ctx context.Context) (core.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, segs := range m.documents {
		total += len(segs)
	}
	return core.Stats{Backend: "memory", TotalSegments: total, TotalDocuments: len(m.documents), EmbeddingDims: m.dim}, nil
}

func (m *MemoryStore) Close() error { return nil }

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ core.VectorStore = (*MemoryStore)(nil)
