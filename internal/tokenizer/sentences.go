package tokenizer

import "strings"

// splitSentences splits text on '.', '!', or '?' followed by whitespace and
// a capital letter or opening quote, honoring an abbreviation allow-list so
// "Dr. Watson" doesn't split. Sentences shorter than minLen (after trimming)
// are dropped, per spec.md §4.1.
func splitSentences(text string, minLen int) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	isBoundaryPunct := func(r rune) bool { return r == '.' || r == '!' || r == '?' }
	isOpenQuote := func(r rune) bool { return r == '"' || r == '\'' || r == '“' }

	for i := 0; i < len(runes); i++ {
		if !isBoundaryPunct(runes[i]) {
			continue
		}
		// find following whitespace run
		j := i + 1
		for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n') {
			j++
		}
		if j == i+1 {
			continue // no whitespace followed the punctuation
		}
		if j >= len(runes) {
			// punctuation at end of text with trailing whitespace: boundary
			sentences = append(sentences, strings.TrimSpace(string(runes[start:j])))
			start = j
			continue
		}
		next := runes[j]
		if !(isUpper(next) || isOpenQuote(next)) {
			continue
		}
		if lastWordIsAbbreviation(runes, i) {
			continue
		}
		sentences = append(sentences, strings.TrimSpace(string(runes[start:j])))
		start = j
	}
	if start < len(runes) {
		sentences = append(sentences, strings.TrimSpace(string(runes[start:])))
	}

	kept := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if len([]rune(s)) >= minLen {
			kept = append(kept, s)
		}
	}
	return kept
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// lastWordIsAbbreviation looks backward from the punctuation at index idx
// for the preceding word and checks it against the abbreviation allow-list.
func lastWordIsAbbreviation(runes []rune, idx int) bool {
	end := idx
	start := end
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	if start == end {
		return false
	}
	word := strings.ToLower(string(runes[start:end]))
	return abbreviations[word]
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '.'
}
