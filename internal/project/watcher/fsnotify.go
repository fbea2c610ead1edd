package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyWatcher implements Watcher using fsnotify.
type FSNotifyWatcher struct {
	mu sync.RWMutex

	watcher *fsnotify.Watcher
	config  Config

	// Tracked directories
	paths map[string]bool

	// Output channels
	events chan Event
	errors chan error

	// Lifecycle
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// NewFSNotifyWatcher creates a new fsnotify-based watcher.
func NewFSNotifyWatcher(opts ...WatcherOption) (*FSNotifyWatcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = 100
	}

	w := &FSNotifyWatcher{
		watcher: fsw,
		config:  config,
		paths:   make(map[string]bool),
		events:  make(chan Event, bufSize),
		errors:  make(chan error, bufSize),
		closeCh: make(chan struct{}),
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Watch starts watching a directory.
func (w *FSNotifyWatcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}

	if w.paths[absPath] {
		return ErrAlreadyWatching
	}

	if err := w.watcher.Add(absPath); err != nil {
		return err
	}

	w.paths[absPath] = true
	return nil
}

// WatchRecursive watches a directory and all subdirectories.
func (w *FSNotifyWatcher) WatchRecursive(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	if !info.IsDir() {
		return w.Watch(absPath)
	}

	return filepath.WalkDir(absPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if !d.IsDir() {
			return nil
		}
		if p != absPath && w.shouldSkip(p) {
			return filepath.SkipDir
		}

		switch watchErr := w.Watch(p); {
		case watchErr == nil, errors.Is(watchErr, ErrAlreadyWatching):
		case errors.Is(watchErr, ErrWatcherClosed):
			return watchErr
		default:
			w.sendError(watchErr)
		}
		return nil
	})
}

// Events returns the event channel.
func (w *FSNotifyWatcher) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel.
func (w *FSNotifyWatcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher.
func (w *FSNotifyWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	// Wait for processLoop to finish
	w.closedWg.Wait()

	close(w.events)
	close(w.errors)

	return w.watcher.Close()
}

// WatchedPaths returns all watched paths in sorted order.
func (w *FSNotifyWatcher) WatchedPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// processLoop handles incoming fsnotify events.
func (w *FSNotifyWatcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

// handleFSEvent converts and dispatches an fsnotify event.
func (w *FSNotifyWatcher) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return // Chmod only
	}

	if w.shouldSkip(fsEvent.Name) {
		return
	}

	if op.Gone() {
		w.forget(fsEvent.Name)
	}

	// A directory that exists after the event is reported as created, even
	// when fsnotify names a moved watch by its new path. It is watched before
	// it is reported so files added after the consumer scans it still
	// produce events.
	isDir := false
	if op.Has(OpCreate) || op.Has(OpRename) {
		info, err := os.Stat(fsEvent.Name)
		if err == nil && info.IsDir() {
			isDir = true
			op |= OpCreate
			if err := w.WatchRecursive(fsEvent.Name); err != nil {
				w.sendError(err)
			}
		}
	}

	w.sendEvent(Event{
		Path:      fsEvent.Name,
		Op:        op,
		Dir:       isDir,
		Timestamp: time.Now(),
	})
}

// forget drops a removed or renamed directory and its subdirectories from
// the tracked set. fsnotify removes its own watches when they go away.
func (w *FSNotifyWatcher) forget(path string) {
	prefix := path + string(filepath.Separator)
	w.mu.Lock()
	for p := range w.paths {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(w.paths, p)
		}
	}
	w.mu.Unlock()
}

// convertOp converts fsnotify.Op to watcher.Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}

// shouldSkip checks the base name of path against the skip function.
func (w *FSNotifyWatcher) shouldSkip(path string) bool {
	if w.config.Skip == nil {
		return false
	}
	return w.config.Skip(filepath.Base(path))
}

// sendEvent sends an event to the output channel.
func (w *FSNotifyWatcher) sendEvent(event Event) {
	select {
	case w.events <- event:
	default:
		// Channel full, drop event
		w.sendError(errors.New("event channel full, dropping event"))
	}
}

// sendError sends an error to the output channel.
func (w *FSNotifyWatcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
		// Channel full, drop error
	}
}

// Ensure FSNotifyWatcher implements Watcher.
var _ Watcher = (*FSNotifyWatcher)(nil)
