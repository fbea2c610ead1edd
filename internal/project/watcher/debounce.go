package watcher

import (
	"sync"
	"time"
)

// DebouncedWatcher wraps a Watcher with event debouncing.
// Multiple rapid changes to the same file are coalesced into one event.
type DebouncedWatcher struct {
	inner Watcher
	delay time.Duration

	mu       sync.Mutex
	pending  map[string]*pendingEvent
	events   chan Event
	errors   chan error
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// pendingEvent is an event waiting for its quiet period to end.
type pendingEvent struct {
	event Event
	timer *time.Timer
}

// NewDebouncedWatcher creates a debounced watcher wrapper.
// Operations on the same path within the delay window are merged, so a save
// that truncates then writes arrives as one event carrying both ops.
func NewDebouncedWatcher(inner Watcher, delay time.Duration) *DebouncedWatcher {
	if delay <= 0 {
		delay = DefaultConfig().DebounceDelay
	}

	dw := &DebouncedWatcher{
		inner:   inner,
		delay:   delay,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, DefaultConfig().BufferSize),
		errors:  make(chan error, DefaultConfig().BufferSize),
		closeCh: make(chan struct{}),
	}

	dw.closedWg.Add(1)
	go dw.processLoop()

	return dw
}

// Watch starts watching a path.
func (dw *DebouncedWatcher) Watch(path string) error {
	return dw.inner.Watch(path)
}

// WatchRecursive starts watching a directory recursively.
func (dw *DebouncedWatcher) WatchRecursive(path string) error {
	return dw.inner.WatchRecursive(path)
}

// Events returns the debounced event channel.
func (dw *DebouncedWatcher) Events() <-chan Event {
	return dw.events
}

// Errors returns the error channel.
func (dw *DebouncedWatcher) Errors() <-chan error {
	return dw.errors
}

// WatchedPaths returns all watched paths.
func (dw *DebouncedWatcher) WatchedPaths() []string {
	return dw.inner.WatchedPaths()
}

// Close drops pending events and closes the inner watcher.
func (dw *DebouncedWatcher) Close() error {
	dw.mu.Lock()
	if dw.closed {
		dw.mu.Unlock()
		return nil
	}
	dw.closed = true
	close(dw.closeCh)
	for path, p := range dw.pending {
		p.timer.Stop()
		delete(dw.pending, path)
	}
	dw.mu.Unlock()

	dw.closedWg.Wait()

	// Timers that already fired check closed under mu before sending.
	dw.mu.Lock()
	close(dw.events)
	close(dw.errors)
	dw.mu.Unlock()

	return dw.inner.Close()
}

// processLoop handles incoming events from the inner watcher.
func (dw *DebouncedWatcher) processLoop() {
	defer dw.closedWg.Done()

	for {
		select {
		case <-dw.closeCh:
			return

		case event, ok := <-dw.inner.Events():
			if !ok {
				return
			}
			dw.handleEvent(event)

		case err, ok := <-dw.inner.Errors():
			if !ok {
				return
			}
			dw.forwardError(err)
		}
	}
}

// handleEvent starts or extends the quiet period for event.Path.
func (dw *DebouncedWatcher) handleEvent(event Event) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.closed {
		return
	}

	if p, exists := dw.pending[event.Path]; exists {
		p.event.Op |= event.Op
		p.event.Dir = p.event.Dir || event.Dir
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(dw.delay)
		return
	}

	path := event.Path
	dw.pending[path] = &pendingEvent{
		event: event,
		timer: time.AfterFunc(dw.delay, func() { dw.fire(path) }),
	}
}

// fire delivers the pending event for path, if any.
func (dw *DebouncedWatcher) fire(path string) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	p, exists := dw.pending[path]
	if !exists || dw.closed {
		return
	}
	delete(dw.pending, path)

	select {
	case dw.events <- p.event:
	default:
		// Channel full, drop event
	}
}

// forwardError forwards an error from the inner watcher.
func (dw *DebouncedWatcher) forwardError(err error) {
	select {
	case dw.errors <- err:
	default:
		// Channel full, drop error
	}
}

// Ensure DebouncedWatcher implements Watcher.
var _ Watcher = (*DebouncedWatcher)(nil)
