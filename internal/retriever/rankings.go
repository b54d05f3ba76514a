package retriever

import (
	"math"
	"sort"

	"ragsum/internal/core"
)

// rankBySalience returns every segment index ordered by descending
// salience, ties broken by ascending index.
func rankBySalience(segments []*core.Segment) []int {
	indices := make([]int, len(segments))
	for i := range segments {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		sa, sb := segments[indices[a]].Salience, segments[indices[b]].Salience
		if sa != sb {
			return sa > sb
		}
		return indices[a] < indices[b]
	})
	return indices
}

// rankByQuerySimilarity returns indices of segments that carry an embedding,
// ordered by descending query similarity (already computed by the caller).
// Segments without an embedding are excluded from this ranking entirely,
// per spec.md §4.4 ("Segments missing from a ranking do not receive that
// term").
func rankByQuerySimilarity(segments []*core.Segment) []int {
	indices := make([]int, 0, len(segments))
	for i, seg := range segments {
		if seg.HasEmbedding() {
			indices = append(indices, i)
		}
	}
	sort.Slice(indices, func(a, b int) bool {
		sa, sb := segments[indices[a]].QuerySimilarity, segments[indices[b]].QuerySimilarity
		if sa != sb {
			return sa > sb
		}
		return indices[a] < indices[b]
	})
	return indices
}

// cosineSimilarity computes cosine similarity between two vectors. Both the
// spec's embeddings and query embeddings are L2-normalized, so this reduces
// to a dot product, but the implementation stays general.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
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
