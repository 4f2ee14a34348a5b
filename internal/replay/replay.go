// Package replay feeds recorded input events through an autoformat engine,
// as a regression harness and for offline batch conversion of documents.
package replay

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/jcorbin/autoblock/internal/autoformat"
	"github.com/jcorbin/autoblock/internal/blocks"
)

// textSetter is implemented by stores that can update a text block in place,
// as blocks.MemStore does.
type textSetter interface {
	SetText(index int, text string) error
}

// Run applies every event of script to store, writing one line per event to
// out:
//
//	<line>: <index> <status> <detail>
//
// where detail is the match for transformations, the error for aborted and
// failed events, and the resulting span content otherwise. When store can
// set text, spans that were not transformed keep their resulting content, as
// an editing surface would show them.
func Run(ctx context.Context, script io.Reader, eng *autoformat.Engine, store blocks.Store, out io.Writer) error {
	sc := NewScript(script)
	ts, _ := store.(textSetter)

	var runErr error
	werr := writeLines(out, func(w io.Writer) bool {
		if err := ctx.Err(); err != nil {
			runErr = err
			return false
		}
		if !sc.Scan() {
			return false
		}
		res := eng.Handle(ctx, store, sc.Span())
		if ts != nil && res.Status != autoformat.Transformed && res.Status != autoformat.Dropped {
			// out of range spans have nothing to keep
			_ = ts.SetText(res.Index, res.Content)
		}
		_, _ = fmt.Fprintf(w, "%v: %s\n", sc.Line(), AppendQuoted(nil,
			strconv.Itoa(res.Index),
			res.Status.String(),
			detail(res)))
		return true
	})
	if runErr != nil {
		return runErr
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return werr
}

func detail(res autoformat.Outcome) string {
	switch res.Status {
	case autoformat.Transformed:
		if s, ok := res.Match.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprint(res.Match)
	case autoformat.Aborted, autoformat.Failed, autoformat.Dropped:
		if res.Err != nil {
			return res.Err.Error()
		}
	}
	return res.Content
}
