package vfs

import (
	"os"
	"path/filepath"
)

// OSFS implements VFS using the operating system's file system.
type OSFS struct{}

// NewOSFS creates a new OS file system.
func NewOSFS() *OSFS {
	return &OSFS{}
}

// Ensure OSFS implements VFS.
var _ VFS = (*OSFS)(nil)

// ReadFile reads the entire file content.
func (f *OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file information.
func (f *OSFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return osFileInfoToVFS(path, info), nil
}

// ReadDir reads a directory and returns its entries.
// Links to regular files are resolved to their target. Links to directories
// are reported as symlinks so walkers cannot loop through them.
func (f *OSFS) ReadDir(path string) ([]FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		entryPath := filepath.Join(path, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue // Skip entries we can't stat
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Stat(entryPath)
			if err != nil {
				continue // Dangling link
			}
			if !target.IsDir() {
				info = target
			}
		}
		infos = append(infos, NewFileInfo(entryPath, entry.Name(), info.Size(), info.Mode(), info.ModTime(), info.IsDir()))
	}
	return infos, nil
}

// Abs returns the absolute path.
func (f *OSFS) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

// osFileInfoToVFS converts os.FileInfo to vfs.FileInfo.
func osFileInfoToVFS(path string, info os.FileInfo) FileInfo {
	return NewFileInfo(
		path,
		info.Name(),
		info.Size(),
		info.Mode(),
		info.ModTime(),
		info.IsDir(),
	)
}
