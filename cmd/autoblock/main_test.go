package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/autoblock/internal/blocks"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := newParser(&cli)
	require.NoError(t, err, "must build parser")
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = kctx.Run(&env{
		ctx:    context.Background(),
		logger: slog.New(slog.DiscardHandler),
		out:    &out,
	})
	return out.String(), err
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
		want classification
	}{
		{
			name: "heading",
			args: []string{"classify", "## Plan"},
			want: classification{Match: `Heading2"Plan"`, Type: blocks.TypeHeader},
		},
		{
			name: "flashcard",
			args: []string{"classify", "--renderer=blackfriday", "2+2 >> 4"},
			want: classification{Match: `Flashcard"2+2">>"4"`, Type: blocks.TypeFlashcard},
		},
		{
			name: "none",
			args: []string{"classify", "just text"},
			want: classification{Match: "None"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, tc.args...)
			require.NoError(t, err)
			var got classification
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			got.Data = nil
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassify_badRenderer(t *testing.T) {
	_, err := run(t, "classify", "--renderer=nope", "# x")
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	doc := blocks.Document{
		Time:    1,
		Blocks:  []blocks.Block{blocks.NewParagraph("a", ""), blocks.NewParagraph("b", "")},
		Version: blocks.DefaultVersion,
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	docPath := filepath.Join(dir, "notes.json")
	require.NoError(t, os.WriteFile(docPath, b, 0o666))

	scriptPath := filepath.Join(dir, "session.txt")
	require.NoError(t, os.WriteFile(scriptPath, []byte(strings.Join([]string{
		`0 "# Groceries&nbsp;"`,
		`1 "1. eggs&nbsp;"`,
	}, "\n")), 0o666))

	out, err := run(t, "replay", docPath, scriptPath)
	require.NoError(t, err)
	assert.Equal(t, "1: 0 transformed Heading1\"Groceries\"\n2: 1 transformed ListItem(ordered)\"eggs\"\n", out)

	b, err = os.ReadFile(docPath)
	require.NoError(t, err)
	var saved blocks.Document
	require.NoError(t, json.Unmarshal(b, &saved))
	require.Len(t, saved.Blocks, 2)
	assert.Equal(t, blocks.TypeHeader, saved.Blocks[0].Type)
	assert.Equal(t, blocks.TypeList, saved.Blocks[1].Type)
}

func TestServe_flags(t *testing.T) {
	parse := func(args ...string) (CLI, error) {
		var cli CLI
		parser, err := newParser(&cli)
		require.NoError(t, err)
		_, err = parser.Parse(args)
		return cli, err
	}

	_, err := parse("serve", "--dir", "a", "--db", "b.db")
	assert.Error(t, err, "--dir and --db are exclusive")

	cli, err := parse("serve", "--lists=multi", "--origin=http://a", "--origin=http://b")
	require.NoError(t, err)
	assert.Equal(t, "multi", cli.Serve.Lists)
	assert.Equal(t, []string{"http://a", "http://b"}, cli.Serve.Origin)
	assert.Equal(t, "&nbsp;", cli.Serve.Sentinel)
	assert.Equal(t, "localhost:8080", cli.Serve.Addr)
}

func TestConfigFile(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o777))
	require.NoError(t, os.WriteFile(filepath.Join(root, configName),
		[]byte(`{"log-level": "debug"}`), 0o666))
	t.Chdir(sub)

	path, err := findWDFile(configName)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(root, configName))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	var cli CLI
	parser, err := newParser(&cli)
	require.NoError(t, err)
	_, err = parser.Parse([]string{"classify", "x"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cli.LogLevel)

	missing, err := findWDFile("no-such-config.json")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
