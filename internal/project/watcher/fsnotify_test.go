package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func skipVendored(name string) bool {
	return name == "node_modules" || name == ".git"
}

func isWatching(w *FSNotifyWatcher, path string) bool {
	return slices.Contains(w.WatchedPaths(), path)
}

// waitForDirCreate returns the first directory create event for path.
func waitForDirCreate(t *testing.T, w *FSNotifyWatcher, path string) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Path == path && ev.Op.Has(OpCreate) && ev.Dir {
				return ev
			}
		case <-timeout:
			t.Fatalf("timeout waiting for directory create event for %s", path)
		}
	}
}

func TestFSNotifyWatcher_WatchRecursiveSkips(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"src/pkg", "node_modules/dep", ".git/objects"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewFSNotifyWatcher(WithSkip(skipVendored))
	if err != nil {
		t.Fatalf("NewFSNotifyWatcher error = %v", err)
	}
	defer w.Close()

	if err := w.WatchRecursive(root); err != nil {
		t.Fatalf("WatchRecursive error = %v", err)
	}

	for _, dir := range []string{"", "src", "src/pkg"} {
		if !isWatching(w, filepath.Join(root, dir)) {
			t.Errorf("should be watching %q", dir)
		}
	}
	for _, dir := range []string{"node_modules", "node_modules/dep", ".git", ".git/objects"} {
		if isWatching(w, filepath.Join(root, dir)) {
			t.Errorf("should not be watching %q", dir)
		}
	}
}

func TestFSNotifyWatcher_WatchErrors(t *testing.T) {
	w, err := NewFSNotifyWatcher()
	if err != nil {
		t.Fatalf("NewFSNotifyWatcher error = %v", err)
	}

	dir := t.TempDir()
	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch error = %v", err)
	}
	if err := w.Watch(dir); err != ErrAlreadyWatching {
		t.Errorf("Watch again error = %v, want ErrAlreadyWatching", err)
	}
	if err := w.WatchRecursive(filepath.Join(dir, "missing")); err != ErrPathNotExist {
		t.Errorf("WatchRecursive missing error = %v, want ErrPathNotExist", err)
	}

	w.Close()
	if err := w.Watch(dir); err != ErrWatcherClosed {
		t.Errorf("Watch after Close error = %v, want ErrWatcherClosed", err)
	}
}

func TestFSNotifyWatcher_Events(t *testing.T) {
	root := t.TempDir()
	w, err := NewFSNotifyWatcher(WithSkip(skipVendored))
	if err != nil {
		t.Fatalf("NewFSNotifyWatcher error = %v", err)
	}
	defer w.Close()

	if err := w.WatchRecursive(root); err != nil {
		t.Fatalf("WatchRecursive error = %v", err)
	}

	file := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(file, []byte("TODO\n"), 0644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Path == file && (ev.Op.Has(OpCreate) || ev.Op.Has(OpWrite)) {
				return
			}
		case <-timeout:
			t.Fatal("timeout waiting for create event")
		}
	}
}

func TestFSNotifyWatcher_NewDirectoryIsWatchedAndReported(t *testing.T) {
	root := t.TempDir()
	w, err := NewFSNotifyWatcher(WithSkip(skipVendored))
	if err != nil {
		t.Fatalf("NewFSNotifyWatcher error = %v", err)
	}
	defer w.Close()

	if err := w.WatchRecursive(root); err != nil {
		t.Fatalf("WatchRecursive error = %v", err)
	}

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	waitForDirCreate(t, w, sub)
	if !isWatching(w, sub) {
		t.Error("new directory should be watched before it is reported")
	}
}

func TestFSNotifyWatcher_RenamedDirectory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(filepath.Join(src, "pkg"), 0755); err != nil {
		t.Fatal(err)
	}

	w, err := NewFSNotifyWatcher(WithSkip(skipVendored))
	if err != nil {
		t.Fatalf("NewFSNotifyWatcher error = %v", err)
	}
	defer w.Close()

	if err := w.WatchRecursive(root); err != nil {
		t.Fatalf("WatchRecursive error = %v", err)
	}

	lib := filepath.Join(root, "lib")
	if err := os.Rename(src, lib); err != nil {
		t.Fatal(err)
	}

	waitForDirCreate(t, w, lib)
	for _, dir := range []string{"lib", "lib/pkg"} {
		if !isWatching(w, filepath.Join(root, dir)) {
			t.Errorf("should be watching %q", dir)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for isWatching(w, filepath.Join(src, "pkg")) {
		if time.Now().After(deadline) {
			t.Fatal("renamed subdirectory is still tracked under its old name")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFSNotifyWatcher_RenameOfExistingDirectoryReportsCreate(t *testing.T) {
	root := t.TempDir()
	lib := filepath.Join(root, "lib")
	if err := os.MkdirAll(filepath.Join(lib, "pkg"), 0755); err != nil {
		t.Fatal(err)
	}

	w, err := NewFSNotifyWatcher(WithSkip(skipVendored))
	if err != nil {
		t.Fatalf("NewFSNotifyWatcher error = %v", err)
	}
	defer w.Close()

	// fsnotify names a moved directory watch by its current path.
	w.handleFSEvent(fsnotify.Event{Name: lib, Op: fsnotify.Rename})

	ev := waitForDirCreate(t, w, lib)
	if !ev.Op.Has(OpRename) {
		t.Errorf("Op = %v, want RENAME kept alongside CREATE", ev.Op)
	}
	if !isWatching(w, filepath.Join(lib, "pkg")) {
		t.Error("subdirectories of the directory should be watched")
	}

	gone := filepath.Join(root, "gone")
	w.handleFSEvent(fsnotify.Event{Name: gone, Op: fsnotify.Rename})
	select {
	case ev := <-w.Events():
		if ev.Path != gone || ev.Dir || ev.Op.Has(OpCreate) {
			t.Errorf("event = %+v, want plain rename of %s", ev, gone)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for rename event")
	}
}

func TestRun(t *testing.T) {
	mock := newMockWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	go func() {
		Run(ctx, mock, func(ev Event) {
			mu.Lock()
			got = append(got, ev.Path)
			mu.Unlock()
		}, nil)
		close(done)
	}()

	mock.events <- Event{Path: "/a", Op: OpWrite}
	mock.errors <- os.ErrPermission
	mock.events <- Event{Path: "/b", Op: OpRemove}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("delivered %d events, want 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "/a" || got[1] != "/b" {
		t.Errorf("got %v, want [/a /b]", got)
	}
}

func TestOp(t *testing.T) {
	if (OpCreate | OpWrite).Gone() {
		t.Error("create|write is not gone")
	}
	if !OpRemove.Gone() || !OpRename.Gone() {
		t.Error("remove and rename are gone")
	}
	if OpWrite.String() != "WRITE" {
		t.Errorf("String = %q", OpWrite.String())
	}
}
