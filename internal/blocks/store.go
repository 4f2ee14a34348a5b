package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrIndexRange is returned for block indices outside the document.
var ErrIndexRange = errors.New("block index out of range")

// Store is the host block store contract: the document's ordered block list.
// Implementations own block identity and lifecycle; callers must not cache
// indices across events.
type Store interface {
	CurrentIndex() int
	InsertAt(blockType string, payload interface{}, index int) error
	DeleteAt(index int) error
	GetByIndex(index int) (Block, bool)
	Count() int
}

// Replacer is implemented by stores able to substitute the block at index
// with a new one as a single step.
type Replacer interface {
	ReplaceAt(blockType string, payload interface{}, index int) error
}

// MemStore is a mutex guarded in-memory Store around a Document.
type MemStore struct {
	mu      sync.Mutex
	doc     Document
	current int
	now     func() time.Time
	newID   func() string
}

// NewMemStore creates a store over a copy of doc.
func NewMemStore(doc Document) *MemStore {
	if doc.Version == "" {
		doc.Version = DefaultVersion
	}
	return &MemStore{
		doc:   doc.Copy(),
		now:   time.Now,
		newID: newBlockID,
	}
}

// newBlockID mimics the short ids an Editor.js surface generates.
func newBlockID() string { return uuid.NewString()[:10] }

// Focus moves the current index cursor, as the editing surface does when the
// caret enters a block.
func (ms *MemStore) Focus(index int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if index < 0 || index >= len(ms.doc.Blocks) {
		return fmt.Errorf("focus %v: %w", index, ErrIndexRange)
	}
	ms.current = index
	return nil
}

// CurrentIndex returns the focused block index.
func (ms *MemStore) CurrentIndex() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.current
}

// Count returns the number of blocks.
func (ms *MemStore) Count() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.doc.Blocks)
}

// GetByIndex returns a copy of the block at index.
func (ms *MemStore) GetByIndex(index int) (Block, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if index < 0 || index >= len(ms.doc.Blocks) {
		return Block{}, false
	}
	b := ms.doc.Blocks[index]
	b.Data = append(json.RawMessage(nil), b.Data...)
	return b, true
}

// InsertAt inserts a new block at index, shifting the block there (and all
// after it) down by one. Inserting at Count() appends.
func (ms *MemStore) InsertAt(blockType string, payload interface{}, index int) error {
	b, err := ms.makeBlock(blockType, payload)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.insert(b, index)
}

// DeleteAt removes the block at index.
func (ms *MemStore) DeleteAt(index int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.delete(index)
}

// ReplaceAt substitutes the block at index under a single lock hold.
func (ms *MemStore) ReplaceAt(blockType string, payload interface{}, index int) error {
	b, err := ms.makeBlock(blockType, payload)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if index < 0 || index >= len(ms.doc.Blocks) {
		return fmt.Errorf("replace %v: %w", index, ErrIndexRange)
	}
	ms.doc.Blocks[index] = b
	ms.touch()
	return nil
}

// SetText overwrites the text of the paragraph block at index, as the editing
// surface does on every content change. Non paragraph blocks are rejected.
func (ms *MemStore) SetText(index int, text string) error {
	data, err := json.Marshal(ParagraphData{Text: text})
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if index < 0 || index >= len(ms.doc.Blocks) {
		return fmt.Errorf("set text %v: %w", index, ErrIndexRange)
	}
	if t := ms.doc.Blocks[index].Type; t != TypeParagraph {
		return fmt.Errorf("set text %v: not a %v block: %v", index, TypeParagraph, t)
	}
	ms.doc.Blocks[index].Data = data
	ms.touch()
	return nil
}

// Snapshot returns a copy of the current document.
func (ms *MemStore) Snapshot() Document {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.doc.Copy()
}

// Reset replaces the whole document, e.g. after a save from the surface or a
// reload from storage. The current index is clamped into the new document.
func (ms *MemStore) Reset(doc Document) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.doc = doc.Copy()
	if ms.current >= len(ms.doc.Blocks) {
		ms.current = len(ms.doc.Blocks) - 1
	}
	if ms.current < 0 {
		ms.current = 0
	}
}

func (ms *MemStore) makeBlock(blockType string, payload interface{}) (Block, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Block{}, fmt.Errorf("encode %v payload: %w", blockType, err)
	}
	return Block{ID: ms.newID(), Type: blockType, Data: data}, nil
}

func (ms *MemStore) insert(b Block, index int) error {
	if index < 0 || index > len(ms.doc.Blocks) {
		return fmt.Errorf("insert %v: %w", index, ErrIndexRange)
	}
	ms.doc.Blocks = append(ms.doc.Blocks, Block{})
	copy(ms.doc.Blocks[index+1:], ms.doc.Blocks[index:])
	ms.doc.Blocks[index] = b
	ms.touch()
	return nil
}

func (ms *MemStore) delete(index int) error {
	if index < 0 || index >= len(ms.doc.Blocks) {
		return fmt.Errorf("delete %v: %w", index, ErrIndexRange)
	}
	ms.doc.Blocks = append(ms.doc.Blocks[:index], ms.doc.Blocks[index+1:]...)
	if ms.current >= len(ms.doc.Blocks) && ms.current > 0 {
		ms.current--
	}
	ms.touch()
	return nil
}

func (ms *MemStore) touch() { ms.doc.Time = ms.now().UnixMilli() }
