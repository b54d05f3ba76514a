package bm25

import (
	"testing"

	"ragsum/internal/core"
)

func segs(texts ...string) []*core.Segment {
	out := make([]*core.Segment, len(texts))
	for i, t := range texts {
		out[i] = &core.Segment{Index: i, Text: t}
	}
	return out
}

func TestScoreFavorsTermOverlap(t *testing.T) {
	idx := Build(segs(
		"widgets are useful industrial components",
		"bananas are a tasty tropical fruit",
	))
	results := idx.ScoreAll("widgets components")
	if results[0].Score <= results[1].Score {
		t.Fatalf("expected segment 0 to score higher for widget query: %+v", results)
	}
}

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	tokens := Tokenize("The cat is on a mat, I a")
	for _, tok := range tokens {
		if len(tok) < 2 {
			t.Fatalf("unexpected short token kept: %q", tok)
		}
		if stopWords[tok] {
			t.Fatalf("unexpected stopword kept: %q", tok)
		}
	}
}

func TestRankDeterministicTieBreak(t *testing.T) {
	idx := Build(segs("zzz", "zzz"))
	rank := idx.Rank("zzz")
	if rank[0] != 0 || rank[1] != 1 {
		t.Fatalf("expected ascending index tie-break, got %v", rank)
	}
}
