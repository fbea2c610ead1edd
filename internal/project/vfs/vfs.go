// Package vfs provides the file system abstraction the scanner walks.
//
// The VFS interface lets the workspace scan run against the operating system
// or against an in-memory tree in tests.
package vfs

import (
	"io/fs"
	"time"
)

// VFS is the read side of a file system.
type VFS interface {
	// ReadFile reads the entire file content.
	ReadFile(path string) ([]byte, error)

	// Stat returns file information, following symlinks.
	Stat(path string) (FileInfo, error)

	// ReadDir reads a directory and returns its entries sorted by name.
	ReadDir(path string) ([]FileInfo, error)

	// Abs returns the absolute path.
	Abs(path string) (string, error)
}

// FileInfo describes a file or directory.
type FileInfo struct {
	path    string
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

// NewFileInfo creates a FileInfo from the given parameters.
func NewFileInfo(path, name string, size int64, mode fs.FileMode, modTime time.Time, isDir bool) FileInfo {
	return FileInfo{
		path:    path,
		name:    name,
		size:    size,
		mode:    mode,
		modTime: modTime,
		isDir:   isDir,
	}
}

// Path returns the full path.
func (fi FileInfo) Path() string { return fi.path }

// Name returns the base name.
func (fi FileInfo) Name() string { return fi.name }

// Size returns the file size in bytes.
func (fi FileInfo) Size() int64 { return fi.size }

// Mode returns the file mode.
func (fi FileInfo) Mode() fs.FileMode { return fi.mode }

// ModTime returns the modification time.
func (fi FileInfo) ModTime() time.Time { return fi.modTime }

// IsDir returns true if this is a directory.
func (fi FileInfo) IsDir() bool { return fi.isDir }

// IsRegular returns true if this is a regular file.
func (fi FileInfo) IsRegular() bool { return fi.mode.IsRegular() }

// IsSymlink returns true if this is a symbolic link.
func (fi FileInfo) IsSymlink() bool { return fi.mode&fs.ModeSymlink != 0 }
