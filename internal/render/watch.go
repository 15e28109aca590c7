package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch invalidates cached templates when their files change on disk until
// ctx is done. It only applies to engines reading from TemplatesPath.
func (e *Engine) Watch(ctx context.Context) error {
	if !e.onDisk {
		return errors.New("template watching requires a templates directory")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}

	err = filepath.WalkDir(e.opts.TemplatesPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", e.opts.TemplatesPath, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					// New subdirectories need their own watch
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						_ = w.Add(ev.Name)
					}
				}
				if ev.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
					e.Invalidate(ev.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				e.log.Warn("Template watcher error", zap.Error(err))
			}
		}
	}()

	e.log.Info("Watching templates", zap.String("path", e.opts.TemplatesPath))
	return nil
}
