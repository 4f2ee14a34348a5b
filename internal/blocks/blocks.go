// Package blocks defines the block document model shared by the autoformat
// engine, its persistence layer, and the editing surface.
//
// A Document follows the shape an Editor.js style editor saves:
//
//	{"time": 1700000000000, "blocks": [{"id": "...", "type": "paragraph", "data": {...}}], "version": "2.30.0"}
//
// Block data is kept as raw JSON so that block types unknown to this module
// round trip untouched.
package blocks

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Block type names understood by the downstream block renderers.
const (
	TypeParagraph = "paragraph"
	TypeHeader    = "header"
	TypeList      = "nestedList"
	TypeFlashcard = "flashcard"
)

// List styles.
const (
	Unordered = "unordered"
	Ordered   = "ordered"
)

// DefaultVersion is stamped on new documents.
const DefaultVersion = "2.30.0"

// Block is a single document unit.
type Block struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the block's data into v.
func (b Block) Decode(v interface{}) error {
	if len(b.Data) == 0 {
		return fmt.Errorf("%v block %q has no data", b.Type, b.ID)
	}
	return json.Unmarshal(b.Data, v)
}

// Document is an ordered list of blocks.
type Document struct {
	Time    int64   `json:"time"`
	Blocks  []Block `json:"blocks"`
	Version string  `json:"version"`
}

// Copy returns a deep copy of the receiver.
func (doc Document) Copy() Document {
	cp := doc
	cp.Blocks = make([]Block, len(doc.Blocks))
	for i, b := range doc.Blocks {
		b.Data = append(json.RawMessage(nil), b.Data...)
		cp.Blocks[i] = b
	}
	return cp
}

// Title returns the text of the first block, if it carries any.
func (doc Document) Title() (string, bool) {
	if len(doc.Blocks) == 0 {
		return "", false
	}
	var data struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(doc.Blocks[0].Data, &data); err != nil || data.Text == nil {
		return "", false
	}
	return *data.Text, true
}

// Digest hashes the document blocks; Time is excluded so that a save that only
// touches the timestamp compares equal.
func (doc Document) Digest() ([32]byte, error) {
	b, err := json.Marshal(struct {
		Blocks  []Block `json:"blocks"`
		Version string  `json:"version"`
	}{doc.Blocks, doc.Version})
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(b), nil
}

// ParagraphData is the payload of a plain text block.
type ParagraphData struct {
	Text string `json:"text"`
}

// HeadingData is the payload of a header block.
type HeadingData struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// ListData is the payload of a nested list block.
type ListData struct {
	Style string     `json:"style"`
	Items []ListItem `json:"items"`
}

// ListItem is a nested list entry; Items is always non-nil so that it
// serializes as an empty array.
type ListItem struct {
	Content string     `json:"content"`
	Items   []ListItem `json:"items"`
}

// FlashcardData is the payload of a flashcard block.
type FlashcardData struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewParagraph builds a paragraph block holding text.
func NewParagraph(id, text string) Block {
	data, _ := json.Marshal(ParagraphData{Text: text})
	return Block{ID: id, Type: TypeParagraph, Data: data}
}
