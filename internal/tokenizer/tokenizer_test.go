package tokenizer

import (
	"testing"

	"ragsum/internal/core"
)

func TestParseTinyDoc(t *testing.T) {
	md := "# Title\n\nA short paragraph about widgets. Another sentence about widgets.\n"
	segs, err := Parse("doc1", md, DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(segs) < 2 {
		t.Fatalf("expected at least 2 segments, got %d", len(segs))
	}
	var headings int
	for _, s := range segs {
		if s.Type == core.SegmentHeading {
			headings++
			if s.Text != "Title" {
				t.Errorf("expected heading text 'Title', got %q", s.Text)
			}
		}
	}
	if headings != 1 {
		t.Fatalf("expected exactly 1 heading, got %d", headings)
	}
}

func TestParseIndexStrictlyIncreasing(t *testing.T) {
	md := "# A\n\nFirst paragraph here with enough length. Second sentence follows nicely.\n\n## B\n\n- item one here\n- item two here\n"
	segs, err := Parse("doc1", md, DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, s := range segs {
		if s.Index != i {
			t.Fatalf("segment %d has index %d, want %d", i, s.Index, i)
		}
	}
}

func TestSectionTitlePropagation(t *testing.T) {
	md := "# Heading One\n\nSome body text goes here for the section.\n"
	segs, err := Parse("doc1", md, DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var sawBody bool
	for _, s := range segs {
		if s.Type == core.SegmentParagraph {
			sawBody = true
			if s.SectionTitle != "Heading One" {
				t.Errorf("expected section title propagated, got %q", s.SectionTitle)
			}
		}
	}
	if !sawBody {
		t.Fatalf("expected at least one paragraph segment")
	}
}

func TestAbbreviationDoesNotSplitSentence(t *testing.T) {
	sentences := splitSentences("Dr. Watson arrived at the scene quickly.", 5)
	if len(sentences) != 1 {
		t.Fatalf("expected abbreviation to suppress split, got %d sentences: %v", len(sentences), sentences)
	}
}

func TestMinSentenceLengthDrops(t *testing.T) {
	sentences := splitSentences("Ok. This one is definitely long enough to keep.", 10)
	for _, s := range sentences {
		if len(s) < 10 {
			t.Fatalf("unexpectedly kept too-short sentence: %q", s)
		}
	}
}
