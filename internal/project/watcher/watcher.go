// Package watcher reports file system changes under a workspace root.
//
// The watcher detects external changes (create, modify, delete, rename) to
// files the editor does not have open, so the keyword index can follow
// checkouts, generated files and edits made by other tools. Events can be
// debounced to coalesce rapid writes to the same file.
package watcher

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrPathNotExist    = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file or directory was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Gone reports whether the path no longer exists under its name.
func (op Op) Gone() bool {
	return op.Has(OpRemove) || op.Has(OpRename)
}

// Event represents a file system change event.
type Event struct {
	// Path is the absolute path of the affected file or directory.
	Path string

	// Op is the operation that occurred.
	Op Op

	// Dir is set when a created path is a directory. Its contents are not
	// reported separately.
	Dir bool

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Watcher monitors file system changes.
type Watcher interface {
	// Watch starts watching a single directory.
	Watch(path string) error

	// WatchRecursive watches a directory and every subdirectory not excluded
	// by the skip function.
	WatchRecursive(path string) error

	// Events returns the channel of file change events.
	// The channel is closed when the watcher is closed.
	Events() <-chan Event

	// Errors returns the channel of watcher errors.
	// The channel is closed when the watcher is closed.
	Errors() <-chan error

	// Close stops the watcher and releases resources.
	Close() error

	// WatchedPaths returns all paths being watched.
	WatchedPaths() []string
}

// SkipFunc reports whether an entry with the given base name is excluded.
type SkipFunc func(name string) bool

// Handler is a function that handles file system events.
type Handler func(event Event)

// ErrorHandler is a function that handles watcher errors.
type ErrorHandler func(err error)

// Config holds watcher configuration options.
type Config struct {
	// DebounceDelay is the delay before delivering events.
	// Default: 100ms
	DebounceDelay time.Duration

	// BufferSize is the size of the event and error channels.
	// Default: 100
	BufferSize int

	// Skip excludes directories from watching and events from delivery.
	Skip SkipFunc
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		BufferSize:    100,
	}
}

// WatcherOption configures a watcher.
type WatcherOption func(*Config)

// WithDebounceDelay sets the debounce delay.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(c *Config) {
		c.DebounceDelay = d
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) WatcherOption {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithSkip sets the skip function.
func WithSkip(skip SkipFunc) WatcherOption {
	return func(c *Config) {
		c.Skip = skip
	}
}

// Run delivers events and errors from w to the handlers until ctx is
// cancelled or w is closed.
func Run(ctx context.Context, w Watcher, onEvent Handler, onError ErrorHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events():
			if !ok {
				return
			}
			onEvent(event)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
