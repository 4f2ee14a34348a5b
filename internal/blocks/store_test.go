package blocks_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/jcorbin/autoblock/internal/blocks"
)

func testDoc(texts ...string) Document {
	var doc Document
	for i, text := range texts {
		doc.Blocks = append(doc.Blocks, NewParagraph(fmt.Sprintf("b%v", i), text))
	}
	return doc
}

func blockTexts(t *testing.T, doc Document) []string {
	texts := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		var data struct {
			Text string `json:"text"`
		}
		require.NoError(t, b.Decode(&data), "must decode %v block", b.Type)
		texts = append(texts, fmt.Sprintf("%v:%v", b.Type, data.Text))
	}
	return texts
}

func TestMemStore(t *testing.T) {
	ms := NewMemStore(testDoc("one", "two", "three"))
	assert.Equal(t, 3, ms.Count())
	assert.Equal(t, 0, ms.CurrentIndex())
	assert.Equal(t, DefaultVersion, ms.Snapshot().Version)

	t.Run("focus", func(t *testing.T) {
		require.NoError(t, ms.Focus(1))
		assert.Equal(t, 1, ms.CurrentIndex())
		assert.ErrorIs(t, ms.Focus(3), ErrIndexRange)
		assert.Equal(t, 1, ms.CurrentIndex(), "failed focus must not move the cursor")
	})

	t.Run("insert shifts down", func(t *testing.T) {
		require.NoError(t, ms.InsertAt(TypeHeader, HeadingData{Text: "two", Level: 2}, 1))
		assert.Equal(t, []string{
			"paragraph:one",
			"header:two",
			"paragraph:two",
			"paragraph:three",
		}, blockTexts(t, ms.Snapshot()))
		b, ok := ms.GetByIndex(1)
		require.True(t, ok)
		assert.NotEmpty(t, b.ID)
		assert.JSONEq(t, `{"text":"two","level":2}`, string(b.Data))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, ms.DeleteAt(2))
		assert.Equal(t, []string{
			"paragraph:one",
			"header:two",
			"paragraph:three",
		}, blockTexts(t, ms.Snapshot()))
	})

	t.Run("range errors", func(t *testing.T) {
		assert.ErrorIs(t, ms.InsertAt(TypeParagraph, ParagraphData{}, -1), ErrIndexRange)
		assert.ErrorIs(t, ms.InsertAt(TypeParagraph, ParagraphData{}, 4), ErrIndexRange)
		assert.ErrorIs(t, ms.DeleteAt(3), ErrIndexRange)
		assert.ErrorIs(t, ms.ReplaceAt(TypeParagraph, ParagraphData{}, 3), ErrIndexRange)
		_, ok := ms.GetByIndex(3)
		assert.False(t, ok)
		assert.Equal(t, 3, ms.Count(), "failed mutations must not change the document")
	})

	t.Run("append", func(t *testing.T) {
		require.NoError(t, ms.InsertAt(TypeParagraph, ParagraphData{Text: "four"}, 3))
		assert.Equal(t, 4, ms.Count())
	})

	t.Run("replace", func(t *testing.T) {
		require.NoError(t, ms.ReplaceAt(TypeParagraph, ParagraphData{Text: "uno"}, 0))
		b, _ := ms.GetByIndex(0)
		assert.JSONEq(t, `{"text":"uno"}`, string(b.Data))
	})

	t.Run("set text", func(t *testing.T) {
		require.NoError(t, ms.SetText(2, "tres"))
		assert.Error(t, ms.SetText(1, "not a paragraph"))
		assert.Equal(t, []string{
			"paragraph:uno",
			"header:two",
			"paragraph:tres",
			"paragraph:four",
		}, blockTexts(t, ms.Snapshot()))
	})

	t.Run("delete clamps cursor", func(t *testing.T) {
		require.NoError(t, ms.Focus(3))
		require.NoError(t, ms.DeleteAt(3))
		assert.Equal(t, 2, ms.CurrentIndex())
	})
}

func TestMemStore_snapshotIsolation(t *testing.T) {
	src := testDoc("a")
	ms := NewMemStore(src)
	snap := ms.Snapshot()
	snap.Blocks[0].Data[2] = 'X'
	b, _ := ms.GetByIndex(0)
	assert.JSONEq(t, `{"text":"a"}`, string(b.Data))
	assert.JSONEq(t, `{"text":"a"}`, string(src.Blocks[0].Data))
}

func TestDocument_Title(t *testing.T) {
	title, ok := testDoc("Hello", "world").Title()
	assert.True(t, ok)
	assert.Equal(t, "Hello", title)

	_, ok = Document{}.Title()
	assert.False(t, ok)

	doc := Document{Blocks: []Block{{ID: "x", Type: TypeFlashcard, Data: []byte(`{"question":"q","answer":"a"}`)}}}
	_, ok = doc.Title()
	assert.False(t, ok)
}

func TestDocument_Digest(t *testing.T) {
	a, err := testDoc("x", "y").Digest()
	require.NoError(t, err)

	doc := testDoc("x", "y")
	doc.Time = 42
	b, err := doc.Digest()
	require.NoError(t, err)
	assert.Equal(t, a, b, "time must not affect the digest")

	c, err := testDoc("x", "z").Digest()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
