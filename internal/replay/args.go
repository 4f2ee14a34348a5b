package replay

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// QuoteArgs returns args joined by spaces, each quoted with strconv when it
// would not otherwise scan back as a single arg.
func QuoteArgs(args ...string) string {
	n := len(args)
	for _, arg := range args {
		n += 2 * len(arg)
	}
	return string(AppendQuoted(make([]byte, 0, n), args...))
}

// AppendQuoted appends each of args to b, space separated, quoting as
// QuoteArgs does.
func AppendQuoted(b []byte, args ...string) []byte {
	for i, arg := range args {
		if i > 0 {
			b = append(b, ' ')
		}
		if needsQuote(arg) {
			b = strconv.AppendQuote(b, arg)
		} else {
			b = append(b, arg...)
		}
	}
	return b
}

func needsQuote(arg string) bool {
	if arg == "" {
		return true
	}
	if arg[0] == '"' || arg[0] == '\'' {
		return true
	}
	return strings.IndexFunc(arg, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) >= 0
}

// ScanArgs is a bufio.SplitFunc that scans space separated, optionally quoted,
// arg tokens; quoted tokens keep their quotes, see UnquoteArg.
func ScanArgs(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	var r rune
	for width := 0; start < len(data); start += width {
		r, width = utf8.DecodeRune(data[start:])
		if !unicode.IsSpace(r) {
			break
		}
	}
	if start >= len(data) {
		return len(data), nil, nil
	}

	if r == '"' || r == '\'' {
		q, esc := r, false
		for width, i := 0, start+1; i < len(data); i += width {
			r, width = utf8.DecodeRune(data[i:])
			switch {
			case esc:
				esc = false
			case r == '\\':
				esc = true
			case r == q:
				return i + width, data[start : i+width], nil
			}
		}
	} else {
		for width, i := 0, start; i < len(data); i += width {
			r, width = utf8.DecodeRune(data[i:])
			if unicode.IsSpace(r) {
				return i + width, data[start:i], nil
			}
		}
	}

	// final, non-terminated, arg
	if atEOF {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// UnquoteArg removes any quotes from an arg scanned by ScanArgs, interpreting
// escape sequences within them. Malformed escapes are kept literally.
func UnquoteArg(arg string) string {
	if len(arg) < 2 || (arg[0] != '"' && arg[0] != '\'') {
		return arg
	}
	q := arg[0]
	arg = strings.TrimSuffix(arg[1:], string(q))
	var sb strings.Builder
	sb.Grow(len(arg))
	for len(arg) > 0 {
		r, _, tail, err := strconv.UnquoteChar(arg, q)
		if err != nil {
			sb.WriteString(arg)
			break
		}
		sb.WriteRune(r)
		arg = tail
	}
	return sb.String()
}
