package synthesizer

import (
	"context"

	"ragsum/internal/core"
)

const (
	factSanityMinRetrieved = 5
	factCorrectionMinRatio = 0.5
	factCorrectionMaxRatio = 1.5
)

// runFactSanity implements spec.md §4.6's fact-sanity pass: gated on
// narrative content, >= 5 retrieved segments, and an available
// generator. Extracts 3-5 facts from the earliest retrieved segments,
// asks for a confirmation-or-correction, and accepts the correction only
// if its length falls within [0.5x, 1.5x] of the draft's length.
func runFactSanity(ctx context.Context, gen core.Generator, draft string, retrieved []*core.Segment, contentType core.ContentType) string {
	if contentType != core.ContentNarrative || len(retrieved) < factSanityMinRetrieved || gen == nil || !gen.IsAvailable(ctx) {
		return draft
	}

	earliestCount := 5
	if earliestCount > len(retrieved) {
		earliestCount = len(retrieved)
	}
	facts, err := gen.Generate(ctx, BuildFactExtractionPrompt(retrieved[:earliestCount]), 0.0)
	if err != nil || facts == "" {
		return draft
	}

	corrected, err := gen.Generate(ctx, BuildFactCheckPrompt(draft, facts), 0.0)
	if err != nil || corrected == "" {
		return draft
	}
	corrected = stripPreamble(corrected)

	draftLen := float64(len(draft))
	correctedLen := float64(len(corrected))
	if draftLen == 0 {
		return corrected
	}
	ratio := correctedLen / draftLen
	if ratio < factCorrectionMinRatio || ratio > factCorrectionMaxRatio {
		return draft
	}
	return corrected
}
