// Package tokenizer turns markdown into ordered Segments with section
// context (spec.md §4.1). The teacher's own internal/parser is a URL
// extractor, not a segmenter, so this is grounded instead on
// other_examples/4a563f0f_HSn0918-rag's goldmark AST-walking style.
package tokenizer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"ragsum/internal/core"
)

// Options configures parsing. Mirrors spec.md's `{ include_code,
// include_list_items, min_sentence_length }`.
type Options struct {
	IncludeCode       bool
	IncludeListItems  bool
	MinSentenceLength int
}

// DefaultOptions matches the spec's stated defaults (min kept sentence
// length 10 characters).
func DefaultOptions() Options {
	return Options{
		IncludeCode:       true,
		IncludeListItems:  true,
		MinSentenceLength: 10,
	}
}

var md = goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID()))

// abbreviations that must not be treated as sentence-ending periods.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"vs": true, "etc": true, "ie": true, "eg": true, "i.e": true, "e.g": true,
	"st": true, "jr": true, "sr": true, "capt": true, "col": true, "gen": true,
	"rev": true, "sgt": true, "no": true, "vol": true, "inc": true, "corp": true,
}

// Parse turns canonicalized markdown into an ordered segment sequence for
// the document identified by docID.
func Parse(docID string, markdown string, opts Options) ([]*core.Segment, error) {
	normalized := strings.ReplaceAll(markdown, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	source := []byte(normalized)

	doc := md.Parser().Parse(text.NewReader(source))

	b := &builder{
		docID: docID,
		source: source,
		opts:   opts,
	}
	ast.Walk(doc, b.visit)
	return b.segments, nil
}

type builder struct {
	docID          string
	source         []byte
	opts           Options
	segments       []*core.Segment
	index          int
	currentHeading string
}

func (b *builder) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	switch node := n.(type) {
	case *ast.Heading:
		text := strings.TrimSpace(extractText(node, b.source))
		if text != "" {
			b.append(core.SegmentHeading, node.Level, text, spanOf(node, b.source))
			b.currentHeading = text
		}
		return ast.WalkSkipChildren, nil

	case *ast.Paragraph:
		if _, insideListItem := n.Parent().(*ast.ListItem); insideListItem {
			return ast.WalkContinue, nil
		}
		text := strings.TrimSpace(extractText(node, b.source))
		b.appendSentences(text, core.SegmentParagraph, spanOf(node, b.source))
		return ast.WalkSkipChildren, nil

	case *ast.ListItem:
		if !b.opts.IncludeListItems {
			return ast.WalkSkipChildren, nil
		}
		text := strings.TrimSpace(extractText(node, b.source))
		if text != "" {
			b.append(core.SegmentListItem, 0, text, spanOf(node, b.source))
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock:
		if !b.opts.IncludeCode {
			return ast.WalkSkipChildren, nil
		}
		code := extractRawLines(node, b.source)
		if strings.TrimSpace(code) != "" {
			b.append(core.SegmentCodeBlock, 0, code, spanOf(node, b.source))
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		if !b.opts.IncludeCode {
			return ast.WalkSkipChildren, nil
		}
		code := extractRawLines(node, b.source)
		if strings.TrimSpace(code) != "" {
			b.append(core.SegmentCodeBlock, 0, code, spanOf(node, b.source))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Blockquote:
		text := strings.TrimSpace(extractText(node, b.source))
		b.appendSentences(text, core.SegmentQuote, spanOf(node, b.source))
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func (b *builder) appendSentences(text string, kind core.SegmentType, span [2]int) {
	if text == "" {
		return
	}
	for _, sentence := range splitSentences(text, b.opts.MinSentenceLength) {
		b.append(kind, 0, sentence, span)
	}
}

func (b *builder) append(kind core.SegmentType, headingLevel int, text string, span [2]int) {
	hash := core.ContentHash(text)
	seg := &core.Segment{
		ID:           core.SegmentID(b.docID, b.index, hash),
		DocID:        b.docID,
		Index:        b.index,
		ByteStart:    span[0],
		ByteEnd:      span[1],
		Type:         kind,
		HeadingLevel: headingLevel,
		SectionTitle: b.currentHeading,
		Text:         text,
		ContentHash:  hash,
	}
	if kind == core.SegmentHeading {
		seg.SectionTitle = text
	}
	b.segments = append(b.segments, seg)
	b.index++
}

func spanOf(n ast.Node, source []byte) [2]int {
	lines := n.Lines()
	if lines.Len() == 0 {
		return [2]int{0, 0}
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	return [2]int{first.Start, last.Stop}
}

func extractRawLines(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(source))
	}
	return sb.String()
}

// extractText walks inline children collecting *ast.Text / *ast.String
// segments, matching the stack-based traversal style of the goldmark
// chunker this package is grounded on.
func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				walk(c)
			}
		default:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}
