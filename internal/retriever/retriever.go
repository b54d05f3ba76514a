package retriever

import (
	"context"
	"math"
	"sort"

	"ragsum/internal/bm25"
	"ragsum/internal/core"
)

// Retriever ties the fusion strategies together behind a single entry
// point, given an ExtractionResult and an optional focus query.
type Retriever struct {
	embedder core.Embedder
}

// New constructs a Retriever. embedder may be nil; in that case any
// non-empty query is treated as if the embedder were unavailable and
// retrieval degrades to the no-query (salience-only) path.
func New(embedder core.Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Retrieve returns a ranked, document-ordered subset of
// extraction.AllSegments. It never mutates extraction.AllSegments beyond
// setting the transient QuerySimilarity/RetrievalScore fields for the
// duration of this call.
func (r *Retriever) Retrieve(ctx context.Context, extraction *core.ExtractionResult, query string, cfg core.RetrievalConfig) ([]*core.Segment, error) {
	segments := extraction.AllSegments
	total := len(segments)
	if total == 0 {
		return nil, nil
	}

	effectiveK := computeEffectiveK(cfg, total, extraction.ContentType)

	if query == "" || r.embedder == nil {
		return r.noQueryPath(extraction, effectiveK), nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		// Embedder unavailable mid-run: degrade to salience-only, per
		// spec.md §7 EmbedderUnavailable semantics.
		return r.noQueryPath(extraction, effectiveK), nil
	}

	for _, seg := range segments {
		if seg.HasEmbedding() {
			seg.QuerySimilarity = cosineSimilarity(queryVec, seg.Embedding)
		}
	}

	var selected []int
	switch {
	case cfg.UseHybridSearch && cfg.UseRRF:
		bmIdx := bm25.Build(segments)
		rankings := [][]int{
			rankByQuerySimilarity(segments),
			bmIdx.Rank(query),
			rankBySalience(segments),
		}
		scores := fuseRRF(rankings, rrfK(cfg))
		selected = topByFusedScore(scores, effectiveK)
	case cfg.UseRRF:
		rankings := [][]int{
			rankByQuerySimilarity(segments),
			rankBySalience(segments),
		}
		scores := fuseRRF(rankings, rrfK(cfg))
		selected = topByFusedScore(scores, effectiveK)
	default:
		selected = legacyWeightedSum(segments, cfg, effectiveK)
	}

	result := r.mergeFallback(extraction, selected, cfg)
	return sortByIndex(segments, result), nil
}

// noQueryPath returns top_by_salience[..effective_k], sorted by salience and
// then re-sorted by document index on the way out, per spec.md §4.4.
func (r *Retriever) noQueryPath(extraction *core.ExtractionResult, effectiveK int) []*core.Segment {
	top := extraction.TopBySalience
	if effectiveK < len(top) {
		top = top[:effectiveK]
	}
	out := make([]*core.Segment, len(top))
	copy(out, top)
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// legacyWeightedSum implements the alpha-weighted retrieval_score, filtering
// by min_similarity before taking the top effectiveK.
func legacyWeightedSum(segments []*core.Segment, cfg core.RetrievalConfig, effectiveK int) []int {
	type scored struct {
		idx   int
		score float64
	}
	var candidates []scored
	for i, seg := range segments {
		if !seg.HasEmbedding() {
			continue
		}
		if seg.QuerySimilarity < cfg.MinSimilarity {
			continue
		}
		score := cfg.Alpha*seg.QuerySimilarity + (1-cfg.Alpha)*seg.Salience
		seg.RetrievalScore = score
		candidates = append(candidates, scored{idx: i, score: score})
	}
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].idx < candidates[b].idx
	})
	if len(candidates) > effectiveK {
		candidates = candidates[:effectiveK]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.idx
	}
	return out
}

// mergeFallback unions the selected indices with up to fallback_count
// segments from top_by_salience that aren't already selected.
func (r *Retriever) mergeFallback(extraction *core.ExtractionResult, selected []int, cfg core.RetrievalConfig) []int {
	have := make(map[int]bool, len(selected))
	for _, idx := range selected {
		have[idx] = true
	}
	result := append([]int{}, selected...)

	added := 0
	for _, seg := range extraction.TopBySalience {
		if added >= cfg.FallbackCount {
			break
		}
		idx := seg.Index
		if have[idx] {
			continue
		}
		have[idx] = true
		result = append(result, idx)
		added++
	}
	return result
}

func sortByIndex(segments []*core.Segment, indices []int) []*core.Segment {
	out := make([]*core.Segment, len(indices))
	for i, idx := range indices {
		out[i] = segments[idx]
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

func rrfK(cfg core.RetrievalConfig) int {
	if cfg.RRFK <= 0 {
		return DefaultRRFConstant
	}
	return cfg.RRFK
}

// computeEffectiveK implements spec.md §4.4's adaptive top_k formula:
// clamp(ceil(total * min_coverage_percent/100) * narrative_boost_if_narrative,
// min_top_k, max_top_k); otherwise top_k verbatim.
func computeEffectiveK(cfg core.RetrievalConfig, total int, contentType core.ContentType) int {
	if !cfg.AdaptiveTopK {
		return cfg.TopK
	}
	raw := math.Ceil(float64(total) * cfg.MinCoveragePercent / 100.0)
	if contentType == core.ContentNarrative && cfg.NarrativeBoost > 0 {
		raw *= cfg.NarrativeBoost
	}
	k := int(raw)
	if k < cfg.MinTopK {
		k = cfg.MinTopK
	}
	if cfg.MaxTopK > 0 && k > cfg.MaxTopK {
		k = cfg.MaxTopK
	}
	return k
}
