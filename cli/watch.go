package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchFiles calls check for a file each time it is written or replaced,
// until ctx is done. Directories are watched so editors that save through
// a rename are still seen.
func (a *app) watchFiles(ctx context.Context, files []string, check func(file string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ioError(err, "cannot watch definitions")
	}
	defer func() { _ = w.Close() }()

	targets := make(map[string]string)
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return ioError(err, "cannot watch %s", f)
		}
		targets[abs] = f
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return ioError(err, "cannot watch %s", dir)
		}
		dirs[dir] = true
	}
	_, _ = fmt.Fprintf(a.stderr, "watching %d definition(s), press Ctrl-C to stop\n", len(targets))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if file, ok := targets[filepath.Clean(ev.Name)]; ok {
				check(file)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger().Warn("watch error", "error", err)
		}
	}
}
