package mdrender_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/jcorbin/autoblock/internal/mdrender"
)

func TestRenderers(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			r, err := New(name)
			require.NoError(t, err, "must create renderer")
			for _, tc := range []struct {
				in       string
				contains []string
			}{
				{"# Title", []string{"<h1", "Title</h1>"}},
				{"###### Six", []string{"<h6", "Six</h6>"}},
				{"Title\n===", []string{"<h1", "Title</h1>"}},
				{"Sub\n---", []string{"<h2", "Sub</h2>"}},
				{"- item one", []string{"<ul>", "<li>item one</li>"}},
				{"1. first", []string{"<ol>", "<li>first</li>"}},
				{"plain text", []string{"<p>plain text</p>"}},
			} {
				out, err := r.Render(context.Background(), tc.in)
				if assert.NoError(t, err, "render %q", tc.in) {
					for _, want := range tc.contains {
						assert.True(t, strings.Contains(out, want), "expected %q in %q", want, out)
					}
				}
			}
		})
	}
}

func TestNew(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	assert.IsType(t, Goldmark{}, r)

	_, err = New("remark")
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestRender_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, r := range []Renderer{NewGoldmark(), Blackfriday{}} {
		_, err := r.Render(ctx, "# Title")
		var rerr *RenderError
		if assert.True(t, errors.As(err, &rerr), "expected a RenderError, got %v", err) {
			assert.ErrorIs(t, err, context.Canceled)
		}
	}
}
