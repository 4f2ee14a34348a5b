package replay_test

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/autoblock/internal/autoformat"
	"github.com/jcorbin/autoblock/internal/blocks"
	"github.com/jcorbin/autoblock/internal/mdrender"
	. "github.com/jcorbin/autoblock/internal/replay"
)

func emptyDoc(n int) blocks.Document {
	doc := blocks.Document{Version: blocks.DefaultVersion}
	for i := 0; i < n; i++ {
		doc.Blocks = append(doc.Blocks, blocks.NewParagraph(string(rune('a'+i)), ""))
	}
	return doc
}

func TestRun(t *testing.T) {
	script := strings.Join([]string{
		"// a recorded session",
		`0 "# Title&nbsp;"`,
		"",
		`1 plain&nbsp;text`,
		`1 "- milk"`,
		`ro 2 "## ignored&nbsp;"`,
		`2 "Q? >> A&nbsp;"`,
	}, "\n")

	store := blocks.NewMemStore(emptyDoc(3))
	eng := autoformat.New(mdrender.NewGoldmark(), autoformat.Config{})
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), strings.NewReader(script), eng, store, &out))

	assert.Equal(t, []string{
		`2: 0 transformed Heading1"Title"`,
		`4: 1 no-match plaintext`,
		`5: 1 ignored "- milk"`,
		`6: 2 ignored "## ignored&nbsp;"`,
		`7: 2 transformed Flashcard"Q?">>"A"`,
		"",
	}, strings.Split(out.String(), "\n"), "expected output")

	doc := store.Snapshot()
	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, blocks.TypeHeader, doc.Blocks[0].Type)
	assert.Equal(t, blocks.TypeParagraph, doc.Blocks[1].Type)
	assert.Equal(t, blocks.TypeFlashcard, doc.Blocks[2].Type)

	var para blocks.ParagraphData
	require.NoError(t, doc.Blocks[1].Decode(&para))
	assert.Equal(t, "- milk", para.Text, "untransformed text kept")

	var card blocks.FlashcardData
	require.NoError(t, doc.Blocks[2].Decode(&card))
	assert.Equal(t, blocks.FlashcardData{Question: "Q?", Answer: "A"}, card)
}

func TestRun_errors(t *testing.T) {
	eng := autoformat.New(mdrender.Blackfriday{}, autoformat.Config{})
	for _, tc := range []struct {
		name   string
		script string
		err    string
		out    string
	}{
		{
			name:   "bad index",
			script: "x \"# a&nbsp;\"\n",
			err:    `line 1: invalid index "x"`,
		},
		{
			name:   "missing content",
			script: "0 \"# a&nbsp;\"\n\n3\n",
			err:    "line 3: expected <index> <content>, got 1 args",
			out:    "1: 0 transformed Heading1\"a\"\n",
		},
		{
			name:   "out of range",
			script: "5 \"# a&nbsp;\"\n",
			out:    "1: 5 failed \"",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			err := Run(context.Background(), strings.NewReader(tc.script), eng, blocks.NewMemStore(emptyDoc(1)), &out)
			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
				assert.Equal(t, tc.out, out.String())
			} else {
				assert.NoError(t, err)
				assert.True(t, strings.HasPrefix(out.String(), tc.out), "output %q", out.String())
			}
		})
	}
}

func TestRun_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := autoformat.New(mdrender.NewGoldmark(), autoformat.Config{})
	var out bytes.Buffer
	err := Run(ctx, strings.NewReader(`0 "# a&nbsp;"`), eng, blocks.NewMemStore(emptyDoc(1)), &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestScanArgs(t *testing.T) {
	for _, tc := range []struct {
		name string
		line string
		args []string
	}{
		{"nothing", "   ", nil},
		{"bare", "0 plain", []string{"0", "plain"}},
		{"double quoted", `1 "# Title&nbsp;"`, []string{"1", "# Title&nbsp;"}},
		{"single quoted", `ro 2 'it\'s here'`, []string{"ro", "2", "it's here"}},
		{"escaped quote", `3 "say \"hi\""`, []string{"3", `say "hi"`}},
		{"empty", `4 ""`, []string{"4", ""}},
		{"unterminated", `5 "open`, []string{"5", "open"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sc := bufio.NewScanner(strings.NewReader(tc.line))
			sc.Split(ScanArgs)
			var args []string
			for sc.Scan() {
				args = append(args, UnquoteArg(sc.Text()))
			}
			require.NoError(t, sc.Err())
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestQuoteArgs(t *testing.T) {
	args := []string{"0", "# Title&nbsp;", "", `"quoted"`, "tab\there", "plain"}
	line := QuoteArgs(args...)
	assert.Equal(t, `0 "# Title&nbsp;" "" "\"quoted\"" "tab\there" plain`, line)

	sc := bufio.NewScanner(strings.NewReader(line))
	sc.Split(ScanArgs)
	var back []string
	for sc.Scan() {
		back = append(back, UnquoteArg(sc.Text()))
	}
	assert.Equal(t, args, back)
}
