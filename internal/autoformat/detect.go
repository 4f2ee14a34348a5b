// Package autoformat turns markdown-like shorthand typed into a text block
// into structured blocks.
//
// The pipeline runs once per content-changed notification from the editing
// surface:
//
//	Detect        does the span carry the commit sentinel?
//	Canonicalize  decode entities once, so grammars see one encoding
//	Recognize     render the source, pick the first matching shorthand grammar
//	Apply         replace the text block in place with the structured block
//
// Engine ties the steps together and guards against overlapping
// transformations of the same block.
package autoformat

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Sentinel is the token an editing surface emits for a space typed right
// after a shorthand marker; its presence commits the span for evaluation.
const Sentinel = "&nbsp;"

// Span is the live content of the block being edited.
type Span struct {
	Content  string // raw content, possibly carrying HTML entities
	Index    int    // logical block index
	ReadOnly bool
}

// TriggerEvent records one span committed for evaluation.
type TriggerEvent struct {
	Content  string // span content with the sentinel removed
	Sentinel string
	Index    int
}

// Detect reports whether raw carries sentinel. If so it returns raw with
// exactly the first occurrence of sentinel removed; otherwise it returns raw
// as is.
func Detect(raw, sentinel string) (bool, string) {
	if sentinel == "" {
		return false, raw
	}
	i := strings.Index(raw, sentinel)
	if i < 0 {
		return false, raw
	}
	return true, raw[:i] + raw[i+len(sentinel):]
}

// Canonicalize decodes HTML entities (so "&gt;&gt;" reads as ">>"), folds
// any remaining non-breaking spaces into plain spaces, and NFC normalizes the
// result. It is the single point where surface encodings are resolved;
// recognizers only ever see its output.
func Canonicalize(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return norm.NFC.String(s)
}

// Detector decides whether a span should be evaluated.
type Detector struct {
	Sentinel string // defaults to Sentinel
}

func (det Detector) sentinel() string {
	if det.Sentinel == "" {
		return Sentinel
	}
	return det.Sentinel
}

// Evaluate returns a trigger event for span, or false if span is read-only or
// carries no sentinel.
func (det Detector) Evaluate(span Span) (TriggerEvent, bool) {
	if span.ReadOnly {
		return TriggerEvent{}, false
	}
	sentinel := det.sentinel()
	ok, stripped := Detect(span.Content, sentinel)
	if !ok {
		return TriggerEvent{}, false
	}
	return TriggerEvent{
		Content:  stripped,
		Sentinel: sentinel,
		Index:    span.Index,
	}, true
}
