package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"ragsum/internal/core"
)

// PipelineVersion changes whenever the algorithmic shape of extraction,
// retrieval, or synthesis changes, invalidating every cache key derived
// from it. Mirrors the teacher's cache-invalidation-by-version idiom
// (internal/pipeline/pipeline.go's CacheTTL/CacheEnabled config knobs),
// generalized to spec.md §4.7's explicit version component.
const PipelineVersion = "ragsum-v1"

func hashParts(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func templateFingerprint(t core.SummaryTemplate) string {
	return hashParts(t.Name, fmt.Sprintf("%d", t.TargetWords), t.OutputStyle,
		fmt.Sprintf("%d", t.MaxBullets), fmt.Sprintf("%t", t.IncludeCoverageMetadata), t.ExecutivePromptTemplate)
}

func retrievalFingerprint(c core.RetrievalConfig) string {
	return hashParts(
		fmt.Sprintf("%d", c.TopK), fmt.Sprintf("%d", c.MinTopK), fmt.Sprintf("%d", c.MaxTopK),
		fmt.Sprintf("%f", c.Alpha), fmt.Sprintf("%t", c.UseRRF), fmt.Sprintf("%t", c.UseHybridSearch),
		fmt.Sprintf("%d", c.RRFK), fmt.Sprintf("%d", c.FallbackCount), fmt.Sprintf("%f", c.MinSimilarity),
		fmt.Sprintf("%t", c.AdaptiveTopK), fmt.Sprintf("%f", c.MinCoveragePercent), fmt.Sprintf("%f", c.NarrativeBoost),
	)
}

// preRetrievalKey implements spec.md §4.7: hash of {pipeline_version,
// content_hash, query_hash_or_"noquery", template_fingerprint,
// retrieval_fingerprint, embedding_model_fingerprint, generator_model_name}.
func preRetrievalKey(contentHash, query string, template core.SummaryTemplate, retrieval core.RetrievalConfig, embeddingModel, generatorModel string) string {
	queryHash := "noquery"
	if query != "" {
		queryHash = hashParts(query)
	}
	return hashParts(
		PipelineVersion,
		contentHash,
		queryHash,
		templateFingerprint(template),
		retrievalFingerprint(retrieval),
		hashParts(embeddingModel),
		generatorModel,
	)
}

// synthesisKey implements spec.md §4.7: pre_retrieval_key + hash("n=" +
// count + ":" + join(sorted(retrieved_segment_content_hashes), "_")).
// Sorting makes the key order-insensitive to retrieval's internal
// ordering.
func synthesisKey(preKey string, retrieved []*core.Segment) string {
	hashes := make([]string, len(retrieved))
	for i, seg := range retrieved {
		hashes[i] = seg.ContentHash
	}
	sort.Strings(hashes)
	evidence := fmt.Sprintf("n=%d:%s", len(hashes), strings.Join(hashes, "_"))
	return preKey + hashParts(evidence)
}

// sanitizeDocID builds the stable_doc_id: sanitize(filename) + "_" +
// content_hash (spec.md §4.7 step 1).
func sanitizeDocID(filename, contentHash string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ".", "_")
	sanitized := strings.ToLower(replacer.Replace(strings.TrimSpace(filename)))
	if sanitized == "" {
		sanitized = "doc"
	}
	return sanitized + "_" + contentHash
}
