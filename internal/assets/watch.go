package assets

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/pointmorph/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor or copy produces
// for one save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to named model files in a directory.
type Watcher struct {
	fs       *fsnotify.Watcher
	names    map[string]bool
	debounce time.Duration
	log      *zap.Logger

	changes   chan string
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher starts watching dir for writes to any of names.
func NewWatcher(dir string, debounce time.Duration, names ...string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		fs:       fsWatch,
		names:    make(map[string]bool, len(names)),
		debounce: debounce,
		log:      logger.Named("watcher"),
		changes:  make(chan string, len(names)),
		done:     make(chan struct{}),
	}
	for _, name := range names {
		w.names[filepath.Base(name)] = true
	}

	go w.run()
	return w, nil
}

// Changes delivers the name of each model that changed, once per burst.
// The channel is closed when the watcher stops.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.changes)

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			name := filepath.Base(e.Name)
			if !w.names[name] || !changed(e) {
				continue
			}
			w.log.Debug("model file changed", zap.String("name", name), zap.Stringer("op", e.Op))
			pending[name] = true
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			for name := range pending {
				select {
				case w.changes <- name:
				case <-w.done:
					return
				}
				delete(pending, name)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

// changed reports whether e may have replaced the file contents. Rename
// covers editors that save through a temporary file.
func changed(e fsnotify.Event) bool {
	return e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)
}
