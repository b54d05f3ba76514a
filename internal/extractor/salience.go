// Salience combines four normalized sub-scores into a single [0,1] value,
// following the weighted-factor shape of the teacher's
// internal/relevance/keyword_scorer.go (content/title/authority/recency/
// quality factors, each normalized then averaged) adapted to spec.md
// §4.2's four factors: position, structural, lexical density, length.
package extractor

import (
	"strings"

	"ragsum/internal/bm25"
	"ragsum/internal/core"
)

const (
	introConclusionThreshold = 0.15
	bodyThreshold            = 0.85
)

// positionWeight depends on content type: narrative weights the body (the
// middle band) higher; expository weights the intro/conclusion higher.
func positionWeight(contentType core.ContentType, index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	fraction := float64(index) / float64(total-1)
	inEdges := fraction <= introConclusionThreshold || fraction >= bodyThreshold

	switch contentType {
	case core.ContentExpository:
		if inEdges {
			return 1.0
		}
		return 0.5
	case core.ContentNarrative:
		if inEdges {
			return 0.5
		}
		return 1.0
	default:
		return 0.6
	}
}

// structuralWeight rewards headings and segments in early sections: a
// heading scores 1.0, any other segment scores 1/(1+n) where n is the
// zero-based ordinal of the section it belongs to.
func structuralWeight(seg *core.Segment, sectionOrdinal int) float64 {
	if seg.Type == core.SegmentHeading {
		return 1.0
	}
	return 1.0 / float64(1+sectionOrdinal)
}

// lexicalDensity is the ratio of content words (post BM25 tokenization, i.e.
// non-stopword alphanumeric tokens) to total whitespace-delimited tokens.
func lexicalDensity(text string) float64 {
	totalWords := len(strings.Fields(text))
	if totalWords == 0 {
		return 0
	}
	contentWords := len(bm25.Tokenize(text))
	density := float64(contentWords) / float64(totalWords)
	if density > 1 {
		density = 1
	}
	return density
}

// lengthPenalty penalizes extremely short or long segments; segments
// between idealMinWords and idealMaxWords score 1.0.
const (
	idealMinWords = 5
	idealMaxWords = 60
)

func lengthPenalty(text string) float64 {
	words := len(strings.Fields(text))
	switch {
	case words == 0:
		return 0
	case words < idealMinWords:
		return float64(words) / float64(idealMinWords)
	case words <= idealMaxWords:
		return 1.0
	default:
		over := float64(words-idealMaxWords) / float64(idealMaxWords)
		score := 1.0 - over*0.5
		if score < 0.1 {
			score = 0.1
		}
		return score
	}
}

// salience computes the final [0,1] salience score for one segment.
func salience(seg *core.Segment, contentType core.ContentType, index, total, sectionOrdinal int) float64 {
	pw := positionWeight(contentType, index, total)
	sw := structuralWeight(seg, sectionOrdinal)
	ld := lexicalDensity(seg.Text)
	lp := lengthPenalty(seg.Text)

	score := (pw + sw + ld + lp) / 4.0
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
