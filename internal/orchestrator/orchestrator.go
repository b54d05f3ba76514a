// Package orchestrator implements spec.md §4.7: the end-to-end flow and
// its two-level cache key derivation. Grounded on the teacher's
// internal/pipeline/pipeline.go (big struct of injected collaborators +
// Config + numbered-step execution with progress logging), generalized
// from "parse URLs -> fetch -> summarize -> cluster -> render" to
// "extract -> retrieve -> synthesize" with content-hash-addressed
// caching at both the segment and summary level.
package orchestrator

import (
	"context"
	"time"

	"ragsum/internal/core"
	"ragsum/internal/extractor"
	"ragsum/internal/logger"
	"ragsum/internal/retriever"
	"ragsum/internal/synthesizer"
	"ragsum/internal/tokenizer"
)

// Config bundles every tunable surface named in spec.md §6's
// configuration table. Mirrors the teacher's Config/DefaultConfig
// pattern in internal/pipeline/pipeline.go.
type Config struct {
	Collection              string
	PersistVectors          bool
	ReuseExistingEmbeddings bool
	ExtractionOptions       extractor.Options
	TokenizerOptions        tokenizer.Options
	RetrievalConfig         core.RetrievalConfig
	Template                core.SummaryTemplate
}

// DefaultConfig mirrors spec.md's stated defaults across every section.
func DefaultConfig() Config {
	return Config{
		Collection:              "ragsum_default",
		PersistVectors:          true,
		ReuseExistingEmbeddings: true,
		ExtractionOptions:       extractor.DefaultOptions(),
		TokenizerOptions:        tokenizer.DefaultOptions(),
		RetrievalConfig:         core.DefaultRetrievalConfig(),
		Template:                core.PresetTemplate("default"),
	}
}

// Orchestrator wires the Tokenizer/SegmentExtractor/Retriever/Synthesizer
// pipeline together with a VectorStore and the Embedder/Generator
// external collaborators.
type Orchestrator struct {
	extractor   *extractor.Extractor
	retriever   *retriever.Retriever
	synthesizer *synthesizer.Synthesizer
	store       core.VectorStore
	embedder    core.Embedder
	generator   core.Generator
}

// New constructs an Orchestrator. store, embedder, and generator may all
// be nil; every failure mode degrades rather than panics, per spec.md §7.
func New(store core.VectorStore, embedder core.Embedder, generator core.Generator) *Orchestrator {
	return &Orchestrator{
		extractor:   extractor.New(embedder),
		retriever:   retriever.New(embedder),
		synthesizer: synthesizer.New(generator),
		store:       store,
		embedder:    embedder,
		generator:   generator,
	}
}

// Run executes the end-to-end flow described in spec.md §4.7.
func (o *Orchestrator) Run(ctx context.Context, filename, markdown, query string, cfg Config) (*core.DocumentSummary, error) {
	start := time.Now()

	// Step 1: canonicalize + hash markdown -> content_hash; form stable_doc_id.
	contentHash := core.ContentHash(markdown)
	docID := sanitizeDocID(filename, contentHash)

	extraction, err := o.loadOrExtract(ctx, docID, markdown, cfg)
	if err != nil {
		return nil, err
	}

	// Step 3: empty document.
	if len(extraction.AllSegments) == 0 {
		return &core.DocumentSummary{
			ExecutiveSummary: "The document contained no extractable content.",
			Trace: core.Trace{
				DocID:         docID,
				TotalSegments: 0,
				ElapsedMS:     time.Since(start).Milliseconds(),
				CoverageScore: 0,
				Backend:       o.backendName(),
			},
		}, nil
	}

	// Step 4: retrieve.
	retrieved, err := o.retriever.Retrieve(ctx, extraction, query, cfg.RetrievalConfig)
	if err != nil {
		return nil, core.NewError(core.KindInternal, "retrieval failed", err)
	}

	// Step 5: synthesis-key lookup.
	preKey := preRetrievalKey(contentHash, query, cfg.Template, cfg.RetrievalConfig, o.embeddingModelName(), o.generatorModelName())
	synthKey := synthesisKey(preKey, retrieved)

	if o.store != nil {
		if cached, hit, err := o.store.GetCachedSummary(ctx, synthKey); err == nil && hit {
			logger.Debug("synthesis cache hit", "doc_id", docID, "key", synthKey)
			return cached, nil
		}
	}

	// Step 6: synthesize and persist.
	summary := o.synthesizer.Synthesize(ctx, docID, extraction, retrieved, cfg.Template)
	summary.Trace.Backend = o.backendName()
	summary.Trace.ElapsedMS = time.Since(start).Milliseconds()

	if o.store != nil {
		if err := o.store.CacheSummary(ctx, synthKey, summary); err != nil {
			logger.Warn("failed to cache summary", "doc_id", docID, "error", err.Error())
		}
	}

	return summary, nil
}

// loadOrExtract implements spec.md §4.7 step 2: reuse stored segments
// when available and configured to do so, otherwise extract fresh and
// persist.
func (o *Orchestrator) loadOrExtract(ctx context.Context, docID, markdown string, cfg Config) (*core.ExtractionResult, error) {
	if o.store != nil && cfg.ReuseExistingEmbeddings {
		if err := o.store.Initialize(ctx, cfg.Collection, o.embeddingDims()); err != nil {
			logger.Warn("vector store initialize failed, degrading to in-run extraction", "error", err.Error())
		} else if has, err := o.store.HasDocument(ctx, cfg.Collection, docID); err == nil && has {
			segments, err := o.store.GetDocumentSegments(ctx, cfg.Collection, docID)
			if err == nil && len(segments) > 0 {
				return &core.ExtractionResult{
					AllSegments:   segments,
					TopBySalience: rankedBySalienceView(segments, cfg.ExtractionOptions),
					ContentType:   extractor.ClassifyContentType(markdown),
				}, nil
			}
		}
	}

	extraction, err := o.extractor.Extract(ctx, docID, markdown, cfg.TokenizerOptions, cfg.ExtractionOptions)
	if err != nil {
		return nil, core.NewError(core.KindInternal, "extraction failed", err)
	}

	if o.store != nil && cfg.PersistVectors {
		if err := o.store.UpsertSegments(ctx, cfg.Collection, extraction.AllSegments); err != nil {
			logger.Warn("failed to persist segments", "doc_id", docID, "error", err.Error())
		} else {
			keep := make(map[string]bool, len(extraction.AllSegments))
			for _, seg := range extraction.AllSegments {
				keep[seg.ContentHash] = true
			}
			if err := o.store.RemoveStale(ctx, cfg.Collection, docID, keep); err != nil {
				logger.Warn("failed to remove stale segments", "doc_id", docID, "error", err.Error())
			}
		}
	}

	return extraction, nil
}

func (o *Orchestrator) embeddingDims() int {
	if o.embedder != nil {
		return o.embedder.Dimensions()
	}
	return 0
}

func (o *Orchestrator) embeddingModelName() string {
	type modelNamed interface{ ModelName() string }
	if m, ok := o.embedder.(modelNamed); ok {
		return m.ModelName()
	}
	return "none"
}

func (o *Orchestrator) generatorModelName() string {
	if o.generator != nil {
		return o.generator.ModelName()
	}
	return "none"
}

func (o *Orchestrator) backendName() string {
	if o.store == nil {
		return "none"
	}
	stats, err := o.store.Stats(context.Background())
	if err != nil {
		return "unknown"
	}
	return stats.Backend
}

// rankedBySalienceView rebuilds a bucketed salience view over segments
// already persisted (no re-embedding); used on the reuse-from-store path
// where salience was computed and stored on a previous run.
func rankedBySalienceView(segments []*core.Segment, opts extractor.Options) []*core.Segment {
	out := make([]*core.Segment, len(segments))
	copy(out, segments)
	sortBySalienceDesc(out)

	size := int(float64(len(segments)) * opts.ExtractionRatio)
	if size < opts.MinSegments {
		size = opts.MinSegments
	}
	if size > opts.MaxSegments {
		size = opts.MaxSegments
	}
	if size > len(out) {
		size = len(out)
	}
	return out[:size]
}

func sortBySalienceDesc(segments []*core.Segment) {
	for i := 1; i < len(segments); i++ {
		j := i
		for j > 0 && less(segments[j], segments[j-1]) {
			segments[j], segments[j-1] = segments[j-1], segments[j]
			j--
		}
	}
}

func less(a, b *core.Segment) bool {
	if a.Salience != b.Salience {
		return a.Salience > b.Salience
	}
	return a.Index < b.Index
}
