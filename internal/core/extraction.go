package core

import "time"

// ContentType is a coarse classification of a document's prose style, used
// to tune salience position-weighting and gate entity extraction.
type ContentType string

const (
	ContentNarrative  ContentType = "narrative"
	ContentExpository ContentType = "expository"
	ContentUnknown    ContentType = "unknown"
)

// ExtractionResult is the output of the SegmentExtractor: every segment in
// document order, plus a salience-ranked view over the same backing slice.
//
// TopBySalience is a view, not a copy: it holds pointers into AllSegments so
// that embeddings and salience scores computed once are shared, not
// duplicated, across the rest of a run.
type ExtractionResult struct {
	AllSegments     []*Segment
	TopBySalience   []*Segment
	ContentType     ContentType
	ExtractionTime  time.Duration
}

// RetrievalConfig controls the Retriever's fusion strategy and bounds.
type RetrievalConfig struct {
	TopK               int
	MinTopK            int
	MaxTopK            int
	Alpha              float64
	UseRRF             bool
	UseHybridSearch    bool
	RRFK               int
	FallbackCount      int
	MinSimilarity      float64
	AdaptiveTopK       bool
	MinCoveragePercent float64
	NarrativeBoost     float64
}

// DefaultRetrievalConfig mirrors the spec's stated defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:               10,
		MinTopK:            3,
		MaxTopK:            30,
		Alpha:              0.6,
		UseRRF:             true,
		UseHybridSearch:    false,
		RRFK:               60,
		FallbackCount:      3,
		MinSimilarity:      0.0,
		AdaptiveTopK:       false,
		MinCoveragePercent: 15,
		NarrativeBoost:     1.2,
	}
}

// SummaryTemplate controls the synthesizer's output shape.
type SummaryTemplate struct {
	Name                    string
	TargetWords             int
	OutputStyle             string
	MaxBullets              int
	IncludeCoverageMetadata bool
	ExecutivePromptTemplate string // empty means "use the content-type-aware default"
}

// Presets named in spec.md §3.
func PresetTemplate(name string) SummaryTemplate {
	switch name {
	case "bookreport":
		return SummaryTemplate{Name: name, TargetWords: 400, OutputStyle: "prose", MaxBullets: 5, IncludeCoverageMetadata: true}
	case "executive":
		return SummaryTemplate{Name: name, TargetWords: 150, OutputStyle: "prose", MaxBullets: 5, IncludeCoverageMetadata: true}
	case "brief":
		return SummaryTemplate{Name: name, TargetWords: 75, OutputStyle: "prose", MaxBullets: 3, IncludeCoverageMetadata: false}
	case "oneliner":
		return SummaryTemplate{Name: name, TargetWords: 25, OutputStyle: "prose", MaxBullets: 0, IncludeCoverageMetadata: false}
	case "strict":
		return SummaryTemplate{Name: name, TargetWords: 100, OutputStyle: "prose", MaxBullets: 3, IncludeCoverageMetadata: true}
	case "technical":
		return SummaryTemplate{Name: name, TargetWords: 200, OutputStyle: "bullets", MaxBullets: 8, IncludeCoverageMetadata: true}
	case "academic":
		return SummaryTemplate{Name: name, TargetWords: 250, OutputStyle: "prose", MaxBullets: 5, IncludeCoverageMetadata: true}
	case "meeting":
		return SummaryTemplate{Name: name, TargetWords: 120, OutputStyle: "bullets", MaxBullets: 10, IncludeCoverageMetadata: false}
	case "bullets":
		return SummaryTemplate{Name: name, TargetWords: 150, OutputStyle: "bullets", MaxBullets: 8, IncludeCoverageMetadata: false}
	default:
		return SummaryTemplate{Name: "default", TargetWords: 200, OutputStyle: "prose", MaxBullets: 5, IncludeCoverageMetadata: true}
	}
}

// Entities groups extracted narrative entities by kind.
type Entities struct {
	Characters    []string `json:"characters"`
	Locations     []string `json:"locations"`
	Dates         []string `json:"dates"`
	Events        []string `json:"events"`
	Organizations []string `json:"organizations"`
}

// TopicSummary annotates one section group with a short note and its
// citation-bearing concatenation.
type TopicSummary struct {
	SectionTitle string `json:"section_title"`
	Annotation   string `json:"annotation"`
	Text         string `json:"text"`
}

// Trace records the observable shape of a run for debugging and the
// cache/confidence story.
type Trace struct {
	DocID         string   `json:"document_id"`
	TotalSegments int      `json:"total_segments"`
	RetrievedCount int     `json:"retrieved_count"`
	FirstHeadings []string `json:"headings"`
	ElapsedMS     int64    `json:"elapsed_ms"`
	CoverageScore float64  `json:"coverage_score"`
	CitationRate  float64  `json:"citation_rate"`
	Backend       string   `json:"backend"`
}

// DocumentSummary is the final produced value of a run.
type DocumentSummary struct {
	ExecutiveSummary string         `json:"executive_summary"`
	TopicSummaries   []TopicSummary `json:"topic_summaries"`
	OpenQuestions    []string       `json:"open_questions"`
	Trace            Trace          `json:"trace"`
	Entities         Entities       `json:"entities"`
}
