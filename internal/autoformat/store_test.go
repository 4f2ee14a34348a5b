package autoformat_test

import (
	"fmt"
	"sync"

	"github.com/jcorbin/autoblock/internal/blocks"
)

// storeCall records one mutation issued against a recordingStore.
type storeCall struct {
	op        string
	blockType string
	payload   interface{}
	index     int
}

func (c storeCall) String() string {
	if c.op == "delete" {
		return fmt.Sprintf("deleteAt(%v)", c.index)
	}
	return fmt.Sprintf("%vAt(%q, %+v, %v)", c.op, c.blockType, c.payload, c.index)
}

// recordingStore is a blocks.Store (but not a blocks.Replacer) that records
// mutations before passing them on to an in-memory document.
type recordingStore struct {
	ms *blocks.MemStore

	mu         sync.Mutex
	calls      []storeCall
	failInsert error
	failDelete error
}

func newRecordingStore(texts ...string) *recordingStore {
	var doc blocks.Document
	for i, text := range texts {
		doc.Blocks = append(doc.Blocks, blocks.NewParagraph(fmt.Sprintf("p%v", i), text))
	}
	return &recordingStore{ms: blocks.NewMemStore(doc)}
}

func (rs *recordingStore) record(call storeCall) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.calls = append(rs.calls, call)
}

func (rs *recordingStore) recorded() []storeCall {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]storeCall(nil), rs.calls...)
}

func (rs *recordingStore) CurrentIndex() int                        { return rs.ms.CurrentIndex() }
func (rs *recordingStore) Count() int                               { return rs.ms.Count() }
func (rs *recordingStore) GetByIndex(index int) (blocks.Block, bool) { return rs.ms.GetByIndex(index) }

func (rs *recordingStore) InsertAt(blockType string, payload interface{}, index int) error {
	rs.record(storeCall{"insert", blockType, payload, index})
	if rs.failInsert != nil {
		return rs.failInsert
	}
	return rs.ms.InsertAt(blockType, payload, index)
}

func (rs *recordingStore) DeleteAt(index int) error {
	rs.record(storeCall{op: "delete", index: index})
	if rs.failDelete != nil {
		return rs.failDelete
	}
	return rs.ms.DeleteAt(index)
}

// types lists the block types of the underlying document.
func (rs *recordingStore) types() []string {
	doc := rs.ms.Snapshot()
	types := make([]string, len(doc.Blocks))
	for i, b := range doc.Blocks {
		types[i] = b.Type
	}
	return types
}
