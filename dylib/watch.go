package dylib

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher pushes file-change notifications for a set of handles,
// short-circuiting the mtime poll HasChanged otherwise requires. It
// watches each handle's original path's parent directory (fsnotify
// cannot watch a single file across editors that replace-on-write) and
// forwards only events matching a watched path.
//
// A Watcher is best-effort: platforms or sandboxes without inotify/FSEvents
// cause NewWatcher to return an error, and callers are expected to fall back to
// polling HasChanged rather than treating that as fatal.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]bool // original path -> true

	Changed chan string // original paths with a pending change
	Errors  chan error
}

// NewWatcher starts an fsnotify watcher with empty watch set. Call Add
// for each handle's original path.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:     fsw,
		watched: make(map[string]bool),
		Changed: make(chan string, 16),
		Errors:  make(chan error, 1),
	}
	go w.run()
	return w, nil
}

// Add begins watching h's original path's containing directory.
func (w *Watcher) Add(h *Handle) error {
	dir := filepath.Dir(h.originalPath)
	w.mu.Lock()
	w.watched[h.originalPath] = true
	w.mu.Unlock()
	return w.fsw.Add(dir)
}

// Remove stops forwarding events for h's original path. The containing
// directory watch is left in place; fsnotify has no refcounted Remove,
// and leaving it active is harmless (events for unwatched paths are
// filtered in run).
func (w *Watcher) Remove(h *Handle) {
	w.mu.Lock()
	delete(w.watched, h.originalPath)
	w.mu.Unlock()
}

// Close stops the watcher and releases its OS resources.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			isWatched := w.watched[ev.Name]
			w.mu.Unlock()
			if !isWatched {
				continue
			}
			select {
			case w.Changed <- ev.Name:
			default:
				// Channel full: a poll-based HasChanged check will
				// still catch this on the next sweep.
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}
