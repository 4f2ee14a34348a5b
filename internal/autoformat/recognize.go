package autoformat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/jcorbin/autoblock/internal/blocks"
	"github.com/jcorbin/autoblock/internal/mdrender"
)

// FlashcardDelimiter separates a flashcard question from its answer.
const FlashcardDelimiter = ">>"

// Match is the result of recognizing shorthand: one of None, Heading,
// ListItem, or Flashcard.
type Match interface {
	// Block returns the structured block type and payload to create; the
	// type is empty for None.
	Block() (blockType string, payload interface{})
}

// None means no shorthand grammar matched.
type None struct{}

// Heading is an atx or setext heading.
type Heading struct {
	Level int
	Text  string
}

// ListItem is a list item; More holds any further items of a multi-line span
// when multi-item lists are enabled.
type ListItem struct {
	Style   string
	Content string
	More    []string
}

// Flashcard is a question and answer pair; either side may be empty.
type Flashcard struct {
	Question string
	Answer   string
}

func (None) Block() (string, interface{}) { return "", nil }

func (h Heading) Block() (string, interface{}) {
	return blocks.TypeHeader, blocks.HeadingData{Text: h.Text, Level: h.Level}
}

func (li ListItem) Block() (string, interface{}) {
	data := blocks.ListData{Style: li.Style}
	data.Items = make([]blocks.ListItem, 0, 1+len(li.More))
	for _, content := range append([]string{li.Content}, li.More...) {
		data.Items = append(data.Items, blocks.ListItem{Content: content, Items: []blocks.ListItem{}})
	}
	return blocks.TypeList, data
}

func (fc Flashcard) Block() (string, interface{}) {
	return blocks.TypeFlashcard, blocks.FlashcardData{Question: fc.Question, Answer: fc.Answer}
}

func (None) String() string        { return "None" }
func (h Heading) String() string   { return fmt.Sprintf("Heading%v%q", h.Level, h.Text) }
func (li ListItem) String() string { return fmt.Sprintf("ListItem(%v)%q", li.Style, li.Content) }
func (fc Flashcard) String() string {
	return fmt.Sprintf("Flashcard%q>>%q", fc.Question, fc.Answer)
}

// RecognitionError reports a recognition that could not complete, typically
// because the renderer failed; it wraps the underlying *mdrender.RenderError.
type RecognitionError struct {
	Err error
}

func (err *RecognitionError) Error() string { return "recognition failed: " + err.Err.Error() }
func (err *RecognitionError) Unwrap() error { return err.Err }

// rendered is what a grammar gets to look at.
type rendered struct {
	source string     // canonical source, before rendering
	doc    *html.Node // parsed renderer output
}

type grammar struct {
	name  string
	match func(r rendered, multi bool) (Match, bool)
}

// precedence is the declared order in which grammars are tried; the first
// one to match wins.
var precedence = []grammar{
	{"heading", matchHeading},
	{"list", matchList},
	{"flashcard", matchFlashcard},
}

// Recognizer classifies canonical span content into a Match.
type Recognizer struct {
	Renderer mdrender.Renderer

	// MultiItemLists makes every item of a multi-line list span a top-level
	// item; otherwise only the first item is kept.
	MultiItemLists bool
}

// Recognize renders source and returns the first matching grammar, or None.
// Render failures are returned as *RecognitionError; no match is guessed.
func (rec Recognizer) Recognize(ctx context.Context, source string) (Match, error) {
	out, err := rec.Renderer.Render(ctx, markupEscaper.Replace(source))
	if err != nil {
		return nil, &RecognitionError{err}
	}
	doc, err := html.Parse(strings.NewReader(out))
	if err != nil {
		return nil, &RecognitionError{fmt.Errorf("parse rendered html: %w", err)}
	}
	r := rendered{source: source, doc: doc}
	for _, g := range precedence {
		if m, ok := g.match(r, rec.MultiItemLists); ok {
			return m, nil
		}
	}
	return None{}, nil
}

// markupEscaper keeps canonical text that reads as HTML, such as a decoded
// "&lt;div&gt;", rendering as literal text.
var markupEscaper = strings.NewReplacer("&", `\&`, "<", `\<`)

var (
	headingSel = cascadia.MustCompile("h1, h2, h3, h4, h5, h6")
	listSel    = cascadia.MustCompile("ul, ol")
	itemSel    = cascadia.MustCompile("li")
)

func matchHeading(r rendered, _ bool) (Match, bool) {
	n := headingSel.MatchFirst(r.doc)
	if n == nil {
		return nil, false
	}
	level, err := strconv.Atoi(strings.TrimPrefix(n.Data, "h"))
	if err != nil || level < 1 || level > 6 {
		return nil, false
	}
	return Heading{Level: level, Text: strings.TrimSpace(textContent(n))}, true
}

func matchList(r rendered, multi bool) (Match, bool) {
	list := listSel.MatchFirst(r.doc)
	if list == nil {
		return nil, false
	}
	items := itemSel.MatchAll(list)
	if len(items) == 0 {
		return nil, false
	}
	li := ListItem{Style: blocks.Unordered}
	if list.Data == "ol" {
		li.Style = blocks.Ordered
	}
	li.Content = itemText(items[0])
	if multi {
		for _, item := range items[1:] {
			li.More = append(li.More, itemText(item))
		}
	}
	return li, true
}

func matchFlashcard(r rendered, _ bool) (Match, bool) {
	i := strings.Index(r.source, FlashcardDelimiter)
	if i < 0 {
		return nil, false
	}
	return Flashcard{
		Question: strings.TrimSpace(r.source[:i]),
		Answer:   strings.TrimSpace(r.source[i+len(FlashcardDelimiter):]),
	}, true
}

// itemText returns the text of a list item, leaving out any nested lists
// since those become items of their own.
func itemText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			continue
		}
		writeText(&sb, c)
	}
	return strings.TrimSpace(sb.String())
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	writeText(&sb, n)
	return sb.String()
}

func writeText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
}
