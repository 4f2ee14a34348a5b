// Package docstore persists block documents.
//
// Two repositories are provided: FileRepo keeps one JSON file per document in
// a directory, replacing files atomically; SQLiteRepo keeps documents and the
// folders organizing them in a SQLite database.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jcorbin/autoblock/internal/blocks"
)

var (
	ErrExists    = errors.New("document already exists")
	ErrNotExist  = errors.New("document does not exist")
	ErrInvalidID = errors.New("invalid document id")
)

// UntitledTitle is recorded for documents whose first block carries no text.
const UntitledTitle = "No title found"

// Repo loads and stores documents by id.
type Repo interface {
	// Load returns ErrNotExist for unknown ids.
	Load(ctx context.Context, id string) (blocks.Document, error)
	// Create returns ErrExists if id is already taken.
	Create(ctx context.Context, id string, doc blocks.Document) error
	// Save replaces an existing document, returning ErrNotExist otherwise.
	// Saving content identical to what is stored may be skipped.
	Save(ctx context.Context, id string, doc blocks.Document) error
	// List describes every stored document, most recently changed first.
	List(ctx context.Context) ([]Entry, error)
}

// Entry describes a stored document.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Time  int64  `json:"time"`
}

// CheckID rejects ids that are empty, hidden, or contain path separators.
func CheckID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w %q: leading dot", ErrInvalidID, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w %q: path separator", ErrInvalidID, id)
	}
	return nil
}

func titleOf(doc blocks.Document) string {
	if title, ok := doc.Title(); ok && title != "" {
		return title
	}
	return UntitledTitle
}
