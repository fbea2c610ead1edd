package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Standard error values for MemFS operations.
// These align with POSIX errors for consistency with OSFS.
var (
	errIsDir  = syscall.EISDIR
	errNotDir = syscall.ENOTDIR
)

// MemFS implements VFS using an in-memory file system.
// It is primarily used for testing.
//
// MemFS is safe for concurrent use.
type MemFS struct {
	mu     sync.RWMutex
	files  map[string]*memFile
	dirs   map[string]bool
	denied map[string]bool
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMemFS creates a new in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files:  make(map[string]*memFile),
		dirs:   map[string]bool{"/": true},
		denied: make(map[string]bool),
	}
}

// Ensure MemFS implements VFS.
var _ VFS = (*MemFS)(nil)

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(filePath string) ([]byte, error) {
	return m.read("read", filePath)
}

func (m *MemFS) read(op, filePath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if m.denied[filePath] {
		return nil, &fs.PathError{Op: op, Path: filePath, Err: fs.ErrPermission}
	}
	f, ok := m.files[filePath]
	if !ok {
		if m.dirs[filePath] {
			return nil, &fs.PathError{Op: op, Path: filePath, Err: errIsDir}
		}
		return nil, &fs.PathError{Op: op, Path: filePath, Err: fs.ErrNotExist}
	}

	// Return a copy to prevent modification
	content := make([]byte, len(f.content))
	copy(content, f.content)
	return content, nil
}

// Stat returns file information.
func (m *MemFS) Stat(filePath string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)

	if f, ok := m.files[filePath]; ok {
		return NewFileInfo(filePath, path.Base(filePath), int64(len(f.content)), f.mode, f.modTime, false), nil
	}
	if m.dirs[filePath] {
		return NewFileInfo(filePath, path.Base(filePath), 0, fs.ModeDir|0755, time.Time{}, true), nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
}

// ReadDir reads a directory and returns its entries.
func (m *MemFS) ReadDir(dirPath string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dirPath = m.cleanPath(dirPath)

	if m.denied[dirPath] {
		return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: fs.ErrPermission}
	}
	if !m.dirs[dirPath] {
		if _, ok := m.files[dirPath]; ok {
			return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: errNotDir}
		}
		return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: fs.ErrNotExist}
	}

	prefix := dirPath
	if prefix != "/" {
		prefix += "/"
	}

	var entries []FileInfo
	for filePath, f := range m.files {
		if rest, ok := directChild(prefix, filePath); ok {
			entries = append(entries, NewFileInfo(filePath, rest, int64(len(f.content)), f.mode, f.modTime, false))
		}
	}
	for d := range m.dirs {
		if rest, ok := directChild(prefix, d); ok {
			entries = append(entries, NewFileInfo(d, rest, 0, fs.ModeDir|0755, time.Time{}, true))
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// directChild reports whether p sits directly under prefix.
func directChild(prefix, p string) (string, bool) {
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(p, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// Abs returns the cleaned, rooted path.
func (m *MemFS) Abs(filePath string) (string, error) {
	return m.cleanPath(filePath), nil
}

// AddFile adds a file, creating parent directories as needed.
func (m *MemFS) AddFile(filePath string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	m.mkdirAll(path.Dir(filePath))
	m.files[filePath] = &memFile{
		content: []byte(content),
		mode:    0644,
		modTime: time.Now(),
	}
}

// MkdirAll creates a directory and all parent directories.
func (m *MemFS) MkdirAll(dirPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(m.cleanPath(dirPath))
}

func (m *MemFS) mkdirAll(dirPath string) {
	current := ""
	for _, part := range strings.Split(strings.Trim(dirPath, "/"), "/") {
		if part == "" {
			continue
		}
		current += "/" + part
		m.dirs[current] = true
	}
}

// Remove removes a file.
func (m *MemFS) Remove(filePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, m.cleanPath(filePath))
}

// Deny makes reads of path fail with a permission error.
func (m *MemFS) Deny(filePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[m.cleanPath(filePath)] = true
}

// cleanPath normalizes a path.
func (m *MemFS) cleanPath(p string) string {
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
