// Package filewatcher provides file system monitoring adapters.
// Clean Architecture: Adapter implementing ports.FileWatcher.
package filewatcher

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
//
// A single file is watched through its parent directory: editors and
// spreadsheet tools usually save by writing a temp file and renaming it over
// the old one, which drops a watch placed on the file itself.
type FSNotifyWatcher struct {
	watcher *fsnotify.Watcher
	log     logrus.FieldLogger
}

// NewFSNotifyWatcher creates a new file watcher.
func NewFSNotifyWatcher(log logrus.FieldLogger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &FSNotifyWatcher{
		watcher: w,
		log:     log.WithField("component", "filewatcher"),
	}, nil
}

// Watch starts monitoring path and emits events. path may be a file or a
// directory; for a file only events on that file are emitted.
func (w *FSNotifyWatcher) Watch(ctx context.Context, path string) (<-chan ports.FileEvent, error) {
	dir, target := path, ""
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir, target = filepath.Dir(path), filepath.Clean(path)
	}

	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if target != "" && filepath.Clean(event.Name) != target {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op&fsnotify.Create == fsnotify.Create:
					op = ports.FileCreated
				case event.Op&fsnotify.Write == fsnotify.Write:
					op = ports.FileModified
				case event.Op&fsnotify.Remove == fsnotify.Remove,
					event.Op&fsnotify.Rename == fsnotify.Rename:
					op = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.WithError(err).Warn("file watcher error")
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}
