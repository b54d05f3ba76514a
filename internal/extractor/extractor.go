// Package extractor implements SegmentExtractor (spec.md §4.2): computes
// embeddings and salience for every segment and produces an
// ExtractionResult, with a salience-ranked top_by_salience view.
package extractor

import (
	"context"
	"sort"
	"time"

	"ragsum/internal/core"
	"ragsum/internal/logger"
	"ragsum/internal/tokenizer"
)

// Options configures extraction. Mirrors spec.md §6's extraction config
// group.
type Options struct {
	ExtractionRatio float64
	MinSegments     int
	MaxSegments     int
	EmbedBatchSize  int
}

// DefaultOptions matches spec.md's stated defaults.
func DefaultOptions() Options {
	return Options{
		ExtractionRatio: 0.3,
		MinSegments:     5,
		MaxSegments:     200,
		EmbedBatchSize:  32,
	}
}

// Extractor computes embeddings and salience over a parsed segment sequence.
type Extractor struct {
	embedder core.Embedder
}

// New constructs an Extractor. embedder may be nil, in which case
// extraction still succeeds with embedding=None on all segments (spec.md
// §4.2 failure semantics: embedder unavailable degrades, it doesn't fail).
func New(embedder core.Embedder) *Extractor {
	return &Extractor{embedder: embedder}
}

// Extract parses markdown into segments, computes salience and (if an
// embedder is configured) embeddings, and returns the ExtractionResult.
func (e *Extractor) Extract(ctx context.Context, docID, markdown string, tokOpts tokenizer.Options, opts Options) (*core.ExtractionResult, error) {
	start := time.Now()

	segments, err := tokenizer.Parse(docID, markdown, tokOpts)
	if err != nil {
		return nil, core.NewError(core.KindInput, "failed to parse markdown", err)
	}

	contentType := ClassifyContentType(markdown)
	total := len(segments)

	sectionOrdinal := -1
	for i, seg := range segments {
		if seg.Type == core.SegmentHeading {
			sectionOrdinal++
		}
		ordinal := sectionOrdinal
		if ordinal < 0 {
			ordinal = 0
		}
		seg.Salience = salience(seg, contentType, i, total, ordinal)
	}

	if err := e.embedSegments(ctx, segments, opts.EmbedBatchSize); err != nil {
		logger.Warn("embedding unavailable, degrading to salience-only retrieval", "doc_id", docID, "error", err.Error())
	}

	topBySalience := rankedBySalience(segments)
	bucketSize := fallbackBucketSize(total, opts)
	if bucketSize < len(topBySalience) {
		topBySalience = topBySalience[:bucketSize]
	}

	return &core.ExtractionResult{
		AllSegments:    segments,
		TopBySalience:  topBySalience,
		ContentType:    contentType,
		ExtractionTime: time.Since(start),
	}, nil
}

// embedSegments batches non-empty segment texts through the embedder in
// groups of batchSize. A segment with empty text keeps embedding=None and
// is excluded from vector search, per spec.md §4.2.
func (e *Extractor) embedSegments(ctx context.Context, segments []*core.Segment, batchSize int) error {
	if e.embedder == nil {
		return core.NewError(core.KindEmbedderUnavailable, "no embedder configured", nil)
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	var batchSegs []*core.Segment
	var batchTexts []string
	var firstErr error

	flush := func() {
		if len(batchTexts) == 0 {
			return
		}
		vectors, err := e.embedder.EmbedBatch(ctx, batchTexts)
		if err != nil {
			if firstErr == nil {
				firstErr = core.NewError(core.KindEmbedderUnavailable, "embed batch failed", err)
			}
			batchSegs, batchTexts = nil, nil
			return
		}
		for i, seg := range batchSegs {
			if i < len(vectors) {
				seg.Embedding = vectors[i]
			}
		}
		batchSegs, batchTexts = nil, nil
	}

	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		batchSegs = append(batchSegs, seg)
		batchTexts = append(batchTexts, seg.Text)
		if len(batchTexts) >= batchSize {
			flush()
		}
	}
	flush()

	return firstErr
}

// rankedBySalience returns a view (shared pointers) over segments sorted
// descending by salience, ties broken by ascending document index.
func rankedBySalience(segments []*core.Segment) []*core.Segment {
	out := make([]*core.Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Salience != out[b].Salience {
			return out[a].Salience > out[b].Salience
		}
		return out[a].Index < out[b].Index
	})
	return out
}

// fallbackBucketSize implements spec.md §4.2: max(MinSegments,
// extraction_ratio * total), clamped to MaxSegments.
func fallbackBucketSize(total int, opts Options) int {
	size := int(float64(total) * opts.ExtractionRatio)
	if size < opts.MinSegments {
		size = opts.MinSegments
	}
	if size > opts.MaxSegments {
		size = opts.MaxSegments
	}
	if size > total {
		size = total
	}
	return size
}
