package docstore

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch calls changed with the id of every document file created, written, or
// renamed into place within the repo directory, until ctx is done. Writes made
// through the repo itself are reported too; callers compare content to decide
// whether a reload matters.
func (fr *FileRepo) Watch(ctx context.Context, logger *slog.Logger, changed func(id string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(fr.dir); err != nil {
		_ = watcher.Close()
		return err
	}
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("document watch error", "dir", fr.dir, "err", err)
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				if id, isDoc := fr.IDForPath(ev.Name); isDoc {
					logger.Debug("document changed on disk", "id", id, "op", ev.Op)
					changed(id)
				}
			}
		}
	}()
	return nil
}
