package bckt

import (
	"io"
	"time"
)

// LocalFile is a regular file found in a directory listing.
type LocalFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Resolve returns the absolute form of rawPath and fails if it does not exist.
	Resolve(rawPath string) (string, error)

	// Exists reports whether path exists.
	Exists(path string) bool

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Remove deletes a single file.
	Remove(path string) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string) error

	// ListFiles returns the regular files directly inside dir.
	ListFiles(dir string) ([]LocalFile, error)

	// FileSizeKB returns the size of a single file in KiB.
	FileSizeKB(path string) (int64, error)

	// FreeSpaceKB returns the space available to unprivileged users on the
	// filesystem holding path, in KiB.
	FreeSpaceKB(path string) (int64, error)

	// TreeSizeKB returns the total size of regular files under root, in KiB,
	// without crossing into other filesystems.
	TreeSizeKB(root string) (int64, error)

	// FilesSizeKB returns the combined size of the given files, in KiB.
	FilesSizeKB(paths []string) (int64, error)

	// ModifiedSince returns regular files under root modified after since.
	ModifiedSince(root string, since time.Time) ([]string, error)

	// ExpandExcludes returns the files under root matched by patterns.
	// Matched directories are expanded to every file beneath them.
	ExpandExcludes(root string, patterns []string) ([]string, error)

	// Digest returns the hex checksum of a file.
	Digest(path string) (string, error)

	// TouchMarker creates path if needed and sets its modification time to ts.
	TouchMarker(path string, ts time.Time) error
}
