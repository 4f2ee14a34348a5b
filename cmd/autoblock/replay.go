package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jcorbin/autoblock/internal/blocks"
	"github.com/jcorbin/autoblock/internal/docstore"
	"github.com/jcorbin/autoblock/internal/replay"
)

// ReplayCmd applies a recorded input script to a JSON document file.
type ReplayCmd struct {
	EngineFlags `embed:""`

	Document string `arg:"" help:"Document file to transform." type:"existingfile"`
	Script   string `arg:"" optional:"" help:"Input script, or - for stdin." default:"-"`
	DryRun   bool   `help:"Print outcomes without saving the document."`
}

func (c *ReplayCmd) Run(e *env) (rerr error) {
	eng, err := c.engine(e.logger)
	if err != nil {
		return err
	}

	path, err := filepath.Abs(c.Document)
	if err != nil {
		return err
	}
	repo, err := docstore.NewFileRepo(filepath.Dir(path))
	if err != nil {
		return err
	}
	id, ok := repo.IDForPath(path)
	if !ok {
		return fmt.Errorf("%v is not a document file", c.Document)
	}
	doc, err := repo.Load(e.ctx, id)
	if err != nil {
		return err
	}

	var script io.Reader = os.Stdin
	if c.Script != "-" {
		f, err := os.Open(c.Script)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); rerr == nil {
				rerr = cerr
			}
		}()
		script = f
	}

	store := blocks.NewMemStore(doc)
	if err := replay.Run(e.ctx, script, eng, store, e.out); err != nil {
		return err
	}
	if c.DryRun {
		return nil
	}
	return repo.Save(e.ctx, id, store.Snapshot())
}
