// Package watch re-runs work when an input file changes. It watches the
// file's directory rather than the file itself, because editors and KiCad
// save by writing a temporary file and renaming it over the original.
// Bursts of events are collapsed into one callback after a quiet period.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to a single file.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	done     chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// New creates a watcher that waits for debounce of silence before firing.
func New(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	return &Watcher{
		fw:       fw,
		debounce: debounce,
		done:     make(chan struct{}),
	}, nil
}

// Watch starts monitoring file. onChange is called with the absolute path
// once per burst of writes, creates or renames that target it.
func (w *Watcher) Watch(file string, onChange func(path string)) error {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	if err := w.fw.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	var (
		tmu   sync.Mutex
		timer *time.Timer
	)
	fire := func() { onChange(absPath) }

	go func() {
		defer func() {
			tmu.Lock()
			if timer != nil {
				timer.Stop()
			}
			tmu.Unlock()
		}()
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				// Trailing-edge debounce: restart the quiet period on every event
				tmu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, fire)
				tmu.Unlock()

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				// Errors are swallowed; fsnotify recovers automatically

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}

// Loop runs fn once and then again after every change to file, until ctx
// is cancelled. Errors from fn are passed to onErr and do not stop the loop.
func Loop(ctx context.Context, file string, debounce time.Duration, fn func() error, onErr func(error)) error {
	w, err := New(debounce)
	if err != nil {
		return err
	}
	defer w.Stop()

	changed := make(chan struct{}, 1)
	if err := w.Watch(file, func(string) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}

	for {
		if err := fn(); err != nil {
			onErr(err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}
