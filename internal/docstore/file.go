package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio"

	"github.com/jcorbin/autoblock/internal/blocks"
)

const fileExt = ".json"

// FileRepo stores each document as <dir>/<id>.json.
//
// Updates are written to a pending temporary file, then atomically renamed
// over the old content; a reader never sees a partial document.
type FileRepo struct {
	dir string

	mu     sync.Mutex
	digest map[string][32]byte // last content loaded or written, per id
}

// NewFileRepo creates a repo over dir, creating the directory if needed.
func NewFileRepo(dir string) (*FileRepo, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, err
	}
	return &FileRepo{dir: dir, digest: make(map[string][32]byte)}, nil
}

// Dir returns the repo's directory.
func (fr *FileRepo) Dir() string { return fr.dir }

// IDForPath returns the document id stored at path, if path names a document
// file within the repo directory.
func (fr *FileRepo) IDForPath(path string) (string, bool) {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(fr.dir) {
		return "", false
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, fileExt)
	if CheckID(id) != nil {
		return "", false
	}
	return id, true
}

func (fr *FileRepo) filename(id string) (string, error) {
	if err := CheckID(id); err != nil {
		return "", err
	}
	return filepath.Join(fr.dir, id+fileExt), nil
}

// Load reads the document stored under id.
func (fr *FileRepo) Load(ctx context.Context, id string) (blocks.Document, error) {
	var doc blocks.Document
	if err := ctx.Err(); err != nil {
		return doc, err
	}
	filename, err := fr.filename(id)
	if err != nil {
		return doc, err
	}
	b, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, fmt.Errorf("%w: %q", ErrNotExist, id)
	} else if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decode %v: %w", filename, err)
	}
	fr.remember(id, doc)
	return doc, nil
}

// Create writes a new document, failing if one is already stored under id.
func (fr *FileRepo) Create(ctx context.Context, id string, doc blocks.Document) (rerr error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	filename, err := fr.filename(id)
	if err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filename, os.O_EXCL|os.O_CREATE|os.O_WRONLY, 0o666)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %q", ErrExists, id)
	} else if err != nil {
		return err
	}
	pf := pendingCreateFile{File: f}
	defer func() {
		if cerr := pf.Cleanup(); rerr == nil {
			rerr = cerr
		}
	}()
	if _, err := pf.Write(b); err != nil {
		return err
	}
	if err := pf.Close(); err != nil {
		return err
	}
	fr.remember(id, doc)
	return nil
}

// Save atomically replaces the document stored under id. Content identical to
// the last loaded or written version is not rewritten.
func (fr *FileRepo) Save(ctx context.Context, id string, doc blocks.Document) (rerr error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	filename, err := fr.filename(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrNotExist, id)
	} else if err != nil {
		return err
	}
	if fr.unchanged(id, doc) {
		return nil
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	pf, err := renameio.TempFile(fr.dir, filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pf.Cleanup(); rerr == nil {
			rerr = cerr
		}
	}()
	if _, err := pf.Write(b); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return err
	}
	fr.remember(id, doc)
	return nil
}

// List loads every document in the directory to describe it.
func (fr *FileRepo) List(ctx context.Context) ([]Entry, error) {
	des, err := os.ReadDir(fr.dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		id, ok := fr.IDForPath(filepath.Join(fr.dir, de.Name()))
		if !ok {
			continue
		}
		doc, err := fr.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{ID: id, Title: titleOf(doc), Time: doc.Time})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Time > entries[j].Time })
	return entries, nil
}

func (fr *FileRepo) remember(id string, doc blocks.Document) {
	sum, err := doc.Digest()
	if err != nil {
		return
	}
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.digest[id] = sum
}

func (fr *FileRepo) unchanged(id string, doc blocks.Document) bool {
	sum, err := doc.Digest()
	if err != nil {
		return false
	}
	fr.mu.Lock()
	defer fr.mu.Unlock()
	prior, ok := fr.digest[id]
	return ok && prior == sum
}

// pendingCreateFile removes a newly created file unless it was successfully
// written and closed.
type pendingCreateFile struct {
	*os.File
	closed bool
}

func (cf *pendingCreateFile) Close() error {
	if cf.closed {
		return nil
	}
	err := cf.File.Sync()
	if cerr := cf.File.Close(); err == nil {
		err = cerr
	}
	cf.closed = err == nil
	return err
}

func (cf *pendingCreateFile) Cleanup() error {
	if cf.closed {
		return nil
	}
	_ = cf.File.Close()
	err := os.Remove(cf.Name())
	cf.closed = true
	return err
}
