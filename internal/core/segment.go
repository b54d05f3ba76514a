// Package core holds the domain types shared across the retrieval and
// synthesis pipeline: segments, extraction results, retrieval configuration,
// summary templates, and the typed error taxonomy.
package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SegmentType is the kind of markdown construct a Segment was derived from.
type SegmentType string

const (
	SegmentHeading   SegmentType = "heading"
	SegmentParagraph SegmentType = "paragraph"
	SegmentListItem  SegmentType = "list_item"
	SegmentCodeBlock SegmentType = "code_block"
	SegmentQuote     SegmentType = "quote"
)

// Segment is the atomic unit of evidence the rest of the pipeline operates
// over: a heading, sentence, list item, code block, or quote line.
//
// Transient fields (QuerySimilarity, RetrievalScore) are not persisted. The
// retriever sets them during a retrieval pass and does not clear them
// afterwards, so they keep the values of the most recent pass over the
// same segment slice. Keeping them on the struct (rather than a parallel
// array owned by the retriever) matches how the rest of this codebase
// threads per-run state.
type Segment struct {
	ID              string      `json:"id"`
	DocID           string      `json:"doc_id"`
	Index           int         `json:"index"`
	ByteStart       int         `json:"byte_start"`
	ByteEnd         int         `json:"byte_end"`
	Type            SegmentType `json:"type"`
	HeadingLevel    int         `json:"heading_level"`
	SectionTitle    string      `json:"section_title"`
	Text            string      `json:"text"`
	ContentHash     string      `json:"content_hash"`
	Embedding       []float32   `json:"embedding,omitempty"`
	Salience        float64     `json:"salience"`
	QuerySimilarity float64     `json:"-"`
	RetrievalScore  float64     `json:"-"`
}

// CitationLabel derives a short, stable citation marker from the segment id.
func (s *Segment) CitationLabel() string {
	return "[" + s.ID + "]"
}

// HasEmbedding reports whether the segment carries a usable embedding.
func (s *Segment) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// CanonicalizeText normalizes text for content hashing: CRLF -> LF, internal
// whitespace runs collapsed to a single space, trimmed, lowercased.
// Idempotent: CanonicalizeText(CanonicalizeText(x)) == CanonicalizeText(x).
func CanonicalizeText(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	fields := strings.Fields(normalized)
	normalized = strings.Join(fields, " ")
	return strings.ToLower(strings.TrimSpace(normalized))
}

// ContentHash returns a stable hex digest over the canonicalized text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(CanonicalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// SegmentID builds the stable id `{doc_id}_{index}_{content_hash[:n]}`.
const contentHashPrefixLen = 8

func SegmentID(docID string, index int, contentHash string) string {
	prefix := contentHash
	if len(prefix) > contentHashPrefixLen {
		prefix = prefix[:contentHashPrefixLen]
	}
	return docID + "_" + strconv.Itoa(index) + "_" + prefix
}
