// Package bm25 implements classical Okapi BM25 scoring over a segment
// corpus (spec.md §4.3). Grounded on other_examples/438cd6ee_covrom-bm25s's
// index-building shape, but the spec fixes k1/b rather than auto-tuning
// them, and tokenization has no stemming step.
package bm25

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"ragsum/internal/core"
)

const (
	k1 = 1.5
	b  = 0.75
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// stopWords is the built-in stopword set referenced by spec.md §4.3.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "this": true, "but": true, "or": true,
	"not": true, "have": true, "had": true, "been": true, "their": true,
	"they": true, "them": true, "which": true, "who": true, "what": true,
	"when": true, "where": true, "how": true, "all": true, "each": true,
	"more": true, "most": true, "can": true, "could": true, "would": true,
	"should": true, "do": true, "does": true, "did": true, "there": true,
}

// Tokenize lowercases, splits on non-alphanumeric runs, drops stopwords, and
// keeps tokens of length >= 2, per spec.md §4.3.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := nonAlnum.Split(lower, -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) < 2 {
			continue
		}
		if stopWords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Index is a BM25 index built over a fixed segment corpus.
type Index struct {
	segments     []*core.Segment
	docTermFreqs []map[string]int
	docLengths   []int
	termDocFreq  map[string]int
	avgDocLength float64
}

// Build constructs a BM25 index over segments, in document order.
func Build(segments []*core.Segment) *Index {
	idx := &Index{
		segments:     segments,
		docTermFreqs: make([]map[string]int, len(segments)),
		docLengths:   make([]int, len(segments)),
		termDocFreq:  make(map[string]int),
	}

	total := 0
	for i, seg := range segments {
		tokens := Tokenize(seg.Text)
		idx.docLengths[i] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.docTermFreqs[i] = tf
		for term := range tf {
			idx.termDocFreq[term]++
		}
	}
	if len(segments) > 0 {
		idx.avgDocLength = float64(total) / float64(len(segments))
	}
	return idx
}

func (idx *Index) idf(term string) float64 {
	df := idx.termDocFreq[term]
	n := len(idx.segments)
	return math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
}

// Score returns BM25(query, segment[i]) for a single segment.
func (idx *Index) Score(i int, queryTokens []string) float64 {
	tf := idx.docTermFreqs[i]
	docLen := float64(idx.docLengths[i])
	if idx.avgDocLength == 0 {
		return 0
	}
	var score float64
	for _, term := range queryTokens {
		freq, ok := tf[term]
		if !ok || freq == 0 {
			continue
		}
		numerator := float64(freq) * (k1 + 1)
		denominator := float64(freq) + k1*(1-b+b*(docLen/idx.avgDocLength))
		score += idx.idf(term) * numerator / denominator
	}
	return score
}

// Result pairs a segment index with its BM25 score.
type Result struct {
	Index int
	Score float64
}

// ScoreAll returns a dense list of scores aligned with the segment order
// the index was built over, per spec.md §4.3.
func (idx *Index) ScoreAll(query string) []Result {
	queryTokens := Tokenize(query)
	results := make([]Result, len(idx.segments))
	for i := range idx.segments {
		results[i] = Result{Index: i, Score: idx.Score(i, queryTokens)}
	}
	return results
}

// Rank returns segment indices ordered by descending BM25 score, ties broken
// by ascending index, for RRF fusion.
func (idx *Index) Rank(query string) []int {
	results := idx.ScoreAll(query)
	ranked := make([]int, len(results))
	for i, r := range results {
		ranked[i] = r.Index
	}
	sort.SliceStable(ranked, func(a, bIdx int) bool {
		if results[ranked[a]].Score != results[ranked[bIdx]].Score {
			return results[ranked[a]].Score > results[ranked[bIdx]].Score
		}
		return ranked[a] < ranked[bIdx]
	})
	return ranked
}
