package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jcorbin/autoblock/internal/docstore"
	"github.com/jcorbin/autoblock/internal/surface"
)

// ServeCmd serves the websocket editing surface.
type ServeCmd struct {
	EngineFlags `embed:""`

	Addr   string   `help:"Listen address." default:"localhost:8080" env:"AUTOBLOCK_ADDR"`
	Dir    string   `help:"Directory of JSON documents." type:"path" xor:"repo" env:"AUTOBLOCK_DIR"`
	DB     string   `name:"db" help:"SQLite database of documents." type:"path" xor:"repo" env:"AUTOBLOCK_DB"`
	Watch  bool     `help:"Reload open documents changed by other programs (directory repos only)."`
	Origin []string `help:"Allowed websocket origins; default same origin only." env:"AUTOBLOCK_ORIGINS"`
}

func (c *ServeCmd) Run(e *env) (rerr error) {
	eng, err := c.engine(e.logger)
	if err != nil {
		return err
	}

	var repo docstore.Repo
	var files *docstore.FileRepo
	switch {
	case c.DB != "":
		db, err := docstore.OpenSQLite(e.ctx, c.DB)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := db.Close(); rerr == nil {
				rerr = cerr
			}
		}()
		repo = db
	default:
		dir := c.Dir
		if dir == "" {
			dir = "."
		}
		files, err = docstore.NewFileRepo(dir)
		if err != nil {
			return err
		}
		repo = files
	}

	srv := surface.NewServer(eng, repo, surface.Options{
		Logger:         e.logger,
		AllowedOrigins: c.Origin,
	})

	if c.Watch {
		if files == nil {
			return errors.New("--watch needs a directory repo")
		}
		if err := files.Watch(e.ctx, e.logger, func(id string) {
			if err := srv.Reload(e.ctx, id); err != nil {
				e.logger.Warn("reload failed", "doc", id, "err", err)
			}
		}); err != nil {
			return err
		}
	}

	hs := &http.Server{
		Addr:              c.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-e.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
	}()

	e.logger.Info("serving", "addr", c.Addr)
	if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
