// Package mdrender converts markdown source into HTML fragments.
//
// Renderers are pure: they hold no per call state and may be shared between
// goroutines. Failures, including renderer panics on malformed input and
// context cancellation, are reported as *RenderError.
package mdrender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/russross/blackfriday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer renders markdown source into HTML.
type Renderer interface {
	Render(ctx context.Context, source string) (string, error)
}

// RenderError reports a failed markdown rendering.
type RenderError struct {
	Renderer string
	Err      error
}

func (err *RenderError) Error() string {
	return fmt.Sprintf("%v render failed: %v", err.Renderer, err.Err)
}

func (err *RenderError) Unwrap() error { return err.Err }

// ErrUnknown is returned by New for unregistered renderer names.
var ErrUnknown = errors.New("unknown markdown renderer")

var renderers = map[string]func() Renderer{
	"goldmark":    func() Renderer { return NewGoldmark() },
	"blackfriday": func() Renderer { return Blackfriday{} },
}

// Names returns the known renderer names.
func Names() []string {
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the named renderer; the empty name selects goldmark.
func New(name string) (Renderer, error) {
	if name == "" {
		name = "goldmark"
	}
	mk := renderers[name]
	if mk == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	return mk(), nil
}

// Goldmark renders GitHub flavored markdown with goldmark.
type Goldmark struct {
	md goldmark.Markdown
}

// NewGoldmark creates a goldmark renderer with the GFM extension set.
func NewGoldmark() Goldmark {
	return Goldmark{goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render converts source to HTML.
func (gm Goldmark) Render(ctx context.Context, source string) (_ string, rerr error) {
	const name = "goldmark"
	if err := ctx.Err(); err != nil {
		return "", &RenderError{name, err}
	}
	defer recoverRender(name, &rerr)
	var buf bytes.Buffer
	if err := gm.md.Convert([]byte(source), &buf); err != nil {
		return "", &RenderError{name, err}
	}
	return buf.String(), nil
}

// Blackfriday renders markdown with blackfriday's common extensions.
type Blackfriday struct{}

// Render converts source to HTML.
func (Blackfriday) Render(ctx context.Context, source string) (_ string, rerr error) {
	const name = "blackfriday"
	if err := ctx.Err(); err != nil {
		return "", &RenderError{name, err}
	}
	defer recoverRender(name, &rerr)
	// setext underlines are only recognized on terminated lines
	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	out := blackfriday.Run([]byte(source), blackfriday.WithExtensions(0|
		blackfriday.NoIntraEmphasis|
		blackfriday.FencedCode|
		blackfriday.Autolink|
		blackfriday.Strikethrough|
		blackfriday.SpaceHeadings|
		blackfriday.BackslashLineBreak,
	))
	return string(out), nil
}

func recoverRender(name string, rerr *error) {
	if e := recover(); e != nil {
		*rerr = &RenderError{name, fmt.Errorf("panic: %v", e)}
	}
}
