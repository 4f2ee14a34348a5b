package autoformat

import (
	"fmt"
	"sync"

	"github.com/jcorbin/autoblock/internal/blocks"
)

// StoreMutationError reports a block store rejecting one step of a replace.
// The document is left as the store left it; the step is never retried.
type StoreMutationError struct {
	Op    string // "insert", "delete", or "replace"
	Index int
	Err   error
}

func (err *StoreMutationError) Error() string {
	return fmt.Sprintf("block store %v at %v failed: %v", err.Op, err.Index, err.Err)
}

func (err *StoreMutationError) Unwrap() error { return err.Err }

// Transformer replaces a text block in place with the structured block for a
// Match.
type Transformer struct {
	// held across each insert+delete pair so that no other replace
	// interleaves between the two calls
	mu sync.Mutex
}

// Apply replaces the block at index with the block for m, returning whether
// the store was mutated. None is a no-op.
//
// Stores implementing blocks.Replacer are asked to replace directly.
// Otherwise the new block is inserted at index, shifting the original down,
// and then the original is deleted from index+1; the order is never reversed.
func (tr *Transformer) Apply(m Match, index int, store blocks.Store) (bool, error) {
	if m == nil {
		return false, nil
	}
	blockType, payload := m.Block()
	if blockType == "" {
		return false, nil
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	if rs, ok := store.(blocks.Replacer); ok {
		if err := rs.ReplaceAt(blockType, payload, index); err != nil {
			return false, &StoreMutationError{"replace", index, err}
		}
		return true, nil
	}

	if err := store.InsertAt(blockType, payload, index); err != nil {
		return false, &StoreMutationError{"insert", index, err}
	}
	if err := store.DeleteAt(index + 1); err != nil {
		return true, &StoreMutationError{"delete", index + 1, err}
	}
	return true, nil
}
