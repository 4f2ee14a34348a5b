package replay

import (
	"bytes"
	"io"
)

// errWriter passes writes through until the first error, then refuses all
// further writes.
type errWriter struct {
	io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (n int, err error) {
	if ew.err == nil {
		n, ew.err = ew.Writer.Write(p)
	}
	return n, ew.err
}

// lineBuffer accumulates output, writing through only whole lines.
type lineBuffer struct {
	bytes.Buffer
	to io.Writer
}

func (buf *lineBuffer) flushLines() error {
	b := buf.Bytes()
	i := bytes.LastIndexByte(b, '\n')
	if i < 0 {
		return nil
	}
	n, err := buf.to.Write(b[:i+1])
	buf.Next(n)
	return err
}

func (buf *lineBuffer) flush() error {
	_, err := buf.WriteTo(buf.to)
	return err
}

// writeLines calls next with a buffered writer until it returns false or a
// write fails, writing complete lines after every call.
func writeLines(to io.Writer, next func(w io.Writer) bool) error {
	ew, _ := to.(*errWriter)
	if ew == nil {
		ew = &errWriter{Writer: to}
	}
	buf := lineBuffer{to: ew}
	for ew.err == nil && next(&buf) {
		_ = buf.flushLines()
	}
	_ = buf.flush()
	return ew.err
}
