package fs

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"bckt-go/internal/bckt"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// Tree scans stay on the filesystem of their root and skip unreadable subtrees.
type OSFilesystemManager struct {
	logger bckt.Logger
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager(logger bckt.Logger) *OSFilesystemManager {
	if logger == nil {
		logger = bckt.NewNopLogger()
	}
	return &OSFilesystemManager{logger: logger}
}

// Resolve returns the absolute form of rawPath, which must be a directory or regular file.
func (m *OSFilesystemManager) Resolve(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}

	// Check for special file types we don't support
	mode := info.Mode()
	if mode&os.ModeDevice != 0 {
		return "", fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return "", fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return "", fmt.Errorf("sockets not supported: %s", absPath)
	}

	return absPath, nil
}

func (m *OSFilesystemManager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

func (m *OSFilesystemManager) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// ListFiles returns the regular files directly inside dir.
func (m *OSFilesystemManager) ListFiles(dir string) ([]bckt.LocalFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var files []bckt.LocalFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		files = append(files, bckt.LocalFile{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

func (m *OSFilesystemManager) FileSizeKB(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size() / 1024, nil
}

// FreeSpaceKB measures the nearest existing ancestor when path is not created yet.
func (m *OSFilesystemManager) FreeSpaceKB(path string) (int64, error) {
	for !m.Exists(path) {
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}
	return freeSpaceKB(path)
}

// walkTree calls fn for every regular file under root that lives on root's
// filesystem. rel is the slash-separated path relative to root.
func (m *OSFilesystemManager) walkTree(root string, fn func(path, rel string, info fs.FileInfo) error) error {
	rootInfo, err := os.Stat(root)
	if err != nil {
		return err
	}
	rootDev, haveDev := deviceID(rootInfo)

	if !rootInfo.IsDir() {
		if rootInfo.Mode().IsRegular() {
			return fn(root, filepath.Base(root), rootInfo)
		}
		return nil
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				m.logger.Warn("skipping unreadable path", "path", p, "error", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return err
		}

		if d.IsDir() {
			if p == root || !haveDev {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if dev, ok := deviceID(info); ok && dev != rootDev {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// removed during the walk
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return fn(p, filepath.ToSlash(rel), info)
	})
}

// TreeSizeKB returns the total size of regular files under root, in KiB.
func (m *OSFilesystemManager) TreeSizeKB(root string) (int64, error) {
	var total int64
	err := m.walkTree(root, func(_, _ string, info fs.FileInfo) error {
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sizing %s: %w", root, err)
	}
	return total / 1024, nil
}

// FilesSizeKB sums the sizes of paths, ignoring ones that no longer exist.
func (m *OSFilesystemManager) FilesSizeKB(paths []string) (int64, error) {
	var total int64
	for _, p := range paths {
		info, err := os.Lstat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total / 1024, nil
}

// ModifiedSince returns regular files under root modified after since.
func (m *OSFilesystemManager) ModifiedSince(root string, since time.Time) ([]string, error) {
	var paths []string
	err := m.walkTree(root, func(p, _ string, info fs.FileInfo) error {
		if info.ModTime().After(since) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return paths, nil
}

// ExpandExcludes returns the files under root matched by patterns.
func (m *OSFilesystemManager) ExpandExcludes(root string, patterns []string) ([]string, error) {
	matcher, err := NewExcludeMatcher(patterns)
	if err != nil {
		return nil, err
	}
	if matcher.Empty() {
		return nil, nil
	}

	var paths []string
	err = m.walkTree(root, func(p, rel string, _ fs.FileInfo) error {
		if matcher.Match(rel) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expanding excludes under %s: %w", root, err)
	}
	return paths, nil
}

// Digest returns the hex MD5 of a file, matching the ETag of a single-part upload.
func (m *OSFilesystemManager) Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// TouchMarker creates path if needed and sets its times to ts.
func (m *OSFilesystemManager) TouchMarker(path string, ts time.Time) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chtimes(path, ts, ts)
}

// Compile-time check that OSFilesystemManager implements bckt.FilesystemManager interface
var _ bckt.FilesystemManager = (*OSFilesystemManager)(nil)
