package replay

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jcorbin/autoblock/internal/autoformat"
)

// ReadOnlyPrefix marks an event line whose span is read-only.
const ReadOnlyPrefix = "ro"

// Script scans recorded input events, one per line:
//
//	// comment
//	0 "# Title&nbsp;"
//	ro 1 "- item&nbsp;"
//
// Blank lines and lines starting with // are skipped.
type Script struct {
	lines *bufio.Scanner
	line  int
	span  autoformat.Span
	err   error
}

// NewScript returns a Script reading events from r.
func NewScript(r io.Reader) *Script {
	sc := &Script{lines: bufio.NewScanner(r)}
	sc.lines.Split(bufio.ScanLines)
	return sc
}

// Scan advances to the next event, returning false at the end of input or
// after the first malformed line.
func (sc *Script) Scan() bool {
	for sc.err == nil && sc.lines.Scan() {
		sc.line++
		text := strings.TrimSpace(sc.lines.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		span, err := sc.parse(sc.lines.Bytes())
		if err != nil {
			sc.err = fmt.Errorf("line %v: %w", sc.line, err)
			return false
		}
		sc.span = span
		return true
	}
	if sc.err == nil {
		sc.err = sc.lines.Err()
	}
	return false
}

func (sc *Script) parse(line []byte) (span autoformat.Span, _ error) {
	tok := bufio.NewScanner(bytes.NewReader(line))
	tok.Split(ScanArgs)

	var args []string
	for tok.Scan() {
		args = append(args, tok.Text())
	}
	if err := tok.Err(); err != nil {
		return span, err
	}

	if len(args) > 0 && args[0] == ReadOnlyPrefix {
		span.ReadOnly = true
		args = args[1:]
	}
	if len(args) != 2 {
		return span, fmt.Errorf("expected <index> <content>, got %v args", len(args))
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return span, fmt.Errorf("invalid index %q", args[0])
	}
	span.Index = index
	span.Content = UnquoteArg(args[1])
	return span, nil
}

// Span returns the current event.
func (sc *Script) Span() autoformat.Span { return sc.span }

// Line returns the line number of the current event.
func (sc *Script) Line() int { return sc.line }

// Err returns any read or parse error that stopped Scan.
func (sc *Script) Err() error { return sc.err }
