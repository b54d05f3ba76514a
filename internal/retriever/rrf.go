// Package retriever implements spec.md §4.4: hybrid RRF / legacy weighted
// fusion over dense, BM25, and salience rankings, with a salience fallback
// merge, always returned in document order.
//
// RRF fusion is grounded on
// other_examples/259abbd4_Aman-CERP-amanmcp__internal-search-fusion.go.go:
// per-list 1-indexed ranks, score += 1/(k+rank) per list, segments missing
// from a ranking simply don't receive that term (rather than a synthetic
// worst-rank penalty), deterministic ascending-index tie-break.
package retriever

import "sort"

// DefaultRRFConstant is spec.md's default rrf_k.
const DefaultRRFConstant = 60

// fuseRRF combines any number of rankings (each a slice of segment indices,
// best first) into per-index fused scores. An index's score only
// accumulates a term from rankings that contain it; RRF is monotone by
// construction: improving a segment's rank in any single list strictly
// increases 1/(k+rank) for that term and cannot decrease any other term.
func fuseRRF(rankings [][]int, k int) map[int]float64 {
	scores := make(map[int]float64)
	for _, ranking := range rankings {
		for pos, idx := range ranking {
			rank := pos + 1 // 1-indexed per spec.md §4.4
			scores[idx] += 1.0 / (float64(k) + float64(rank))
		}
	}
	return scores
}

// topByFusedScore returns the top n indices by fused score, ties broken by
// ascending index for determinism.
func topByFusedScore(scores map[int]float64, n int) []int {
	indices := make([]int, 0, len(scores))
	for idx := range scores {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(a, b int) bool {
		if scores[indices[a]] != scores[indices[b]] {
			return scores[indices[a]] > scores[indices[b]]
		}
		return indices[a] < indices[b]
	})
	if n >= 0 && len(indices) > n {
		indices = indices[:n]
	}
	return indices
}
