package extractor

import (
	"strings"

	"ragsum/internal/core"
)

// narrativeKeywords and expositoryKeywords are the lightweight keyword
// heuristics spec.md §3 calls for, applied to a head sample of the document.
var narrativeKeywords = []string{
	"chapter", "said", "story", "once upon", "he walked", "she looked",
	"novel", "character", "protagonist", "narrator",
}

var expositoryKeywords = []string{
	"abstract", "introduction", "conclusion", "method", "analysis",
	"therefore", "furthermore", "in summary", "references", "figure",
	"table", "algorithm", "definition",
}

const headSampleBytes = 2000

// ClassifyContentType applies a lightweight keyword heuristic over a head
// sample of the document, per spec.md §3.
func ClassifyContentType(markdown string) core.ContentType {
	sample := markdown
	if len(sample) > headSampleBytes {
		sample = sample[:headSampleBytes]
	}
	lower := strings.ToLower(sample)

	var narrativeScore, expositoryScore int
	for _, kw := range narrativeKeywords {
		if strings.Contains(lower, kw) {
			narrativeScore++
		}
	}
	for _, kw := range expositoryKeywords {
		if strings.Contains(lower, kw) {
			expositoryScore++
		}
	}

	switch {
	case narrativeScore == 0 && expositoryScore == 0:
		return core.ContentUnknown
	case narrativeScore > expositoryScore:
		return core.ContentNarrative
	case expositoryScore > narrativeScore:
		return core.ContentExpository
	default:
		return core.ContentUnknown
	}
}
