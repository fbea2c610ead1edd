package index

import (
	"sort"
	"strings"
)

// State is the workspace index: file path to FileState. Only files with at
// least one match have an entry.
//
// State is not safe for concurrent use; the language server guards it with
// its own lock.
type State struct {
	files map[string]*FileState
}

// NewState creates an empty workspace index.
func NewState() *State {
	return &State{files: make(map[string]*FileState)}
}

// Extend merges other into s. Entries from other win on collision.
func (s *State) Extend(other *State) {
	if other == nil {
		return
	}
	for path, fs := range other.files {
		s.files[path] = fs
	}
}

// Replace sets the entry for path unconditionally. A nil FileState is
// treated as Remove.
func (s *State) Replace(path string, fs *FileState) {
	if fs == nil {
		delete(s.files, path)
		return
	}
	s.files[path] = fs
}

// Remove drops the entry for path. Removing a missing path is a no-op.
func (s *State) Remove(path string) {
	delete(s.files, path)
}

// RemoveUnder drops every entry whose path lies inside dir, as happens when
// a directory is deleted or renamed. It returns the number removed.
func (s *State) RemoveUnder(dir, sep string) int {
	prefix := strings.TrimSuffix(dir, sep) + sep
	n := 0
	for path := range s.files {
		if strings.HasPrefix(path, prefix) {
			delete(s.files, path)
			n++
		}
	}
	return n
}

// Get returns the FileState for path.
func (s *State) Get(path string) (*FileState, bool) {
	fs, ok := s.files[path]
	return fs, ok
}

// Len returns the number of indexed files.
func (s *State) Len() int {
	return len(s.files)
}

// Paths returns the indexed paths in sorted order.
func (s *State) Paths() []string {
	paths := make([]string, 0, len(s.files))
	for path := range s.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
