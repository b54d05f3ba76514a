package synthesizer

import (
	"regexp"
	"strings"
	"unicode"

	"ragsum/internal/core"
)

var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "professor": true,
	"captain": true, "capt": true, "inspector": true, "sir": true, "madam": true,
	"lord": true, "lady": true, "general": true, "gen": true, "colonel": true, "col": true,
	"major": true, "sergeant": true, "sgt": true, "reverend": true, "rev": true,
}

var placeSuffixes = map[string]bool{
	"street": true, "road": true, "avenue": true, "lane": true, "boulevard": true,
	"square": true, "park": true, "river": true, "lake": true, "mountain": true,
	"island": true, "drive": true, "court": true, "place": true,
}

// entityStopwords rejects pronouns/determiners/sentence adverbs,
// calendar names, programming keywords, and common Gutenberg boilerplate
// tokens, per spec.md §4.6's entity-extraction reject list.
var entityStopwords = buildStopwordSet(
	"i he she it we they you the a an this that these those there here",
	"however therefore moreover furthermore nevertheless meanwhile consequently",
	"january february march april may june july august september october november december",
	"monday tuesday wednesday thursday friday saturday sunday",
	"func package import return var const struct interface type map string int bool",
	"project gutenberg ebook license chapter contents produced",
)

func buildStopwordSet(groups ...string) map[string]bool {
	out := make(map[string]bool)
	for _, g := range groups {
		for _, w := range strings.Fields(g) {
			out[w] = true
		}
	}
	return out
}

var orgSuffixes = map[string]bool{
	"inc": true, "corp": true, "company": true, "ltd": true, "llc": true, "co": true,
}

var dateRe = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(,\s*\d{4})?\b|\b\d{4}\b`)

// Extract runs spec.md §4.6's entity extraction: disabled for
// expository/code-heavy content; for narrative content, proper-noun
// spans with honorific or place-suffix continuation, frequency-gated.
func Extract(segments []*core.Segment, contentType core.ContentType) core.Entities {
	if contentType != core.ContentNarrative {
		return core.Entities{}
	}

	characterCounts := make(map[string]int)
	characterHasHonorific := make(map[string]bool)
	locationCounts := make(map[string]int)
	orgCounts := make(map[string]int)
	var dates []string
	seenDates := make(map[string]bool)

	for _, seg := range segments {
		if seg.Type == core.SegmentCodeBlock {
			continue
		}
		scanSpans(seg.Text, characterCounts, characterHasHonorific, locationCounts, orgCounts)
		for _, m := range dateRe.FindAllString(seg.Text, -1) {
			if !seenDates[m] {
				seenDates[m] = true
				dates = append(dates, m)
			}
		}
	}

	return core.Entities{
		Characters:    filterByFrequency(characterCounts, characterHasHonorific),
		Locations:     keysAboveThreshold(locationCounts, 1),
		Dates:         dates,
		Events:        nil,
		Organizations: keysAboveThreshold(orgCounts, 1),
	}
}

func scanSpans(text string, characterCounts map[string]int, hasHonorific map[string]bool, locationCounts, orgCounts map[string]int) {
	words := strings.Fields(text)
	i := 0
	for i < len(words) {
		word := trimPunct(words[i])
		if !isCapitalizedWord(word) {
			i++
			continue
		}

		spanStart := i
		span := []string{word}
		precededByHonorific := i > 0 && honorifics[strings.ToLower(trimPunct(words[i-1]))]
		i++
		for i < len(words) {
			next := trimPunct(words[i])
			if isCapitalizedWord(next) {
				span = append(span, next)
				i++
				continue
			}
			break
		}

		last := strings.ToLower(span[len(span)-1])
		full := strings.Join(span, " ")
		key := strings.ToLower(full)
		if entityStopwords[key] || entityStopwords[strings.ToLower(span[0])] {
			_ = spanStart
			continue
		}

		switch {
		case placeSuffixes[last]:
			locationCounts[full]++
		case orgSuffixes[last]:
			orgCounts[full]++
		default:
			characterCounts[full]++
			if precededByHonorific || len(span) > 1 {
				hasHonorific[full] = hasHonorific[full] || precededByHonorific
			}
		}
	}
}

func isCapitalizedWord(w string) bool {
	r := []rune(w)
	if len(r) == 0 {
		return false
	}
	return unicode.IsUpper(r[0]) && len(r) > 1
}

func trimPunct(w string) string {
	return strings.Trim(w, ".,;:!?\"'()")
}

// filterByFrequency implements the frequency gate: single-word names
// need freq >= 2; multi-word names (or any name preceded by an
// honorific) pass with freq >= 1.
func filterByFrequency(counts map[string]int, hasHonorific map[string]bool) []string {
	var out []string
	for name, count := range counts {
		isMultiWord := strings.Contains(name, " ")
		if isMultiWord || hasHonorific[name] {
			if count >= 1 {
				out = append(out, name)
			}
			continue
		}
		if count >= 2 {
			out = append(out, name)
		}
	}
	return out
}

func keysAboveThreshold(counts map[string]int, min int) []string {
	var out []string
	for name, count := range counts {
		if count >= min {
			out = append(out, name)
		}
	}
	return out
}
