package synthesizer

import (
	"fmt"
	"regexp"
	"strings"
)

var preamblePhrases = []string{
	"here is", "here's", "below is", "based on", "certainly",
}

var discourseMarkers = []string{
	"ultimately", "finally", "in the end", "it becomes clear",
}

var whitespaceRun = regexp.MustCompile(` {2,}`)

// stripPreamble drops leading lines that start with a known preamble
// phrase, keeping everything from the first non-preamble line onward.
// Mirrors spec.md §4.6's cleaning step and the teacher's line-oriented
// parsing style in ParseSummaryResponse.
func stripPreamble(text string) string {
	lines := strings.Split(text, "\n")
	start := 0
	for start < len(lines) {
		line := strings.TrimSpace(lines[start])
		if line == "" {
			start++
			continue
		}
		if hasPreamblePrefix(line) {
			start++
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

func hasPreamblePrefix(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range preamblePhrases {
		if strings.HasPrefix(lower, phrase) {
			return true
		}
	}
	return false
}

// removeDiscourseMarkers strips absolutist discourse markers and
// renormalizes whitespace (spec.md §4.6: "if coverage < 5%, remove
// absolutist discourse markers"; Open Question decision 4: a
// whitespace-renormalization pass follows).
func removeDiscourseMarkers(text string) string {
	out := text
	for _, marker := range discourseMarkers {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(marker) + `\b[,]?\s*`)
		out = re.ReplaceAllString(out, "")
	}
	out = whitespaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

const sampledScopeDisclaimer = "This summary is based on a small sample of the document's content.\n\n"

// confidenceBand maps a coverage fraction to a qualitative label per
// spec.md §4.6: Low < 5%, Medium < 15%, else High.
func confidenceBand(coverage float64) string {
	switch {
	case coverage < 0.05:
		return "Low"
	case coverage < 0.15:
		return "Medium"
	default:
		return "High"
	}
}

// appendCoverageFooter appends a coverage percent + confidence band
// footer when the template requests coverage metadata.
func appendCoverageFooter(text string, coverage float64) string {
	return text + fmt.Sprintf("\n\n---\nCoverage: %.1f%% (%s confidence)", coverage*100, confidenceBand(coverage))
}

// clean runs the full post-generation cleaning pass (spec.md §4.6):
// preamble strip, low-coverage discourse-marker removal with a
// disclaimer, and an optional coverage footer.
func clean(text string, coverage float64, includeCoverageMetadata bool) string {
	out := stripPreamble(text)
	if coverage < 0.05 {
		out = removeDiscourseMarkers(out)
		out = sampledScopeDisclaimer + out
	}
	if includeCoverageMetadata {
		out = appendCoverageFooter(out, coverage)
	}
	return out
}
