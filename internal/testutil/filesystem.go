package testutil

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"bckt-go/internal/bckt"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	// Size overrides len(Content) when set, so tests can model large files.
	Size        int64
	ModTime     time.Time
	IsDirectory bool
}

func (f *MockFile) size() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Paths are absolute and slash-separated. Safe for concurrent use.
type MockFilesystemManager struct {
	mu     sync.Mutex
	files  map[string]*MockFile
	freeKB int64

	// Removed records every path passed to a successful Remove.
	Removed []string
}

// NewMockFilesystemManager creates a new mock filesystem with 1 TiB free.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:  make(map[string]*MockFile),
		freeKB: 1 << 30,
	}
}

// AddFile adds a file modified now to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.AddFileAt(path, content, time.Now())
}

// AddFileAt adds a file with the given modification time.
func (m *MockFilesystemManager) AddFileAt(path string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{Content: content, ModTime: modTime}
}

// AddSizedFile adds a file that reports size bytes without holding them.
func (m *MockFilesystemManager) AddSizedFile(path string, size int64, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{Size: size, ModTime: modTime}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{ModTime: time.Now(), IsDirectory: true}
}

// SetFreeSpaceKB sets what FreeSpaceKB reports.
func (m *MockFilesystemManager) SetFreeSpaceKB(kb int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freeKB = kb
}

// File returns the entry at path.
func (m *MockFilesystemManager) File(path string) (*MockFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	return f, ok
}

// exists must be called with mu held. Directories exist implicitly when
// anything lives below them.
func (m *MockFilesystemManager) exists(path string) bool {
	if _, ok := m.files[path]; ok {
		return true
	}
	prefix := strings.TrimSuffix(path, "/") + "/"
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// under returns the regular files below root, sorted. Must be called with mu held.
func (m *MockFilesystemManager) under(root string) []string {
	prefix := strings.TrimSuffix(root, "/") + "/"
	var paths []string
	for p, f := range m.files {
		if !f.IsDirectory && strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

func (m *MockFilesystemManager) Resolve(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists(absPath) {
		return "", fmt.Errorf("path not found: %s", absPath)
	}
	return absPath, nil
}

func (m *MockFilesystemManager) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exists(path)
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path)
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	delete(m.files, path)
	m.Removed = append(m.Removed, path)
	return nil
}

func (m *MockFilesystemManager) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.files[path]; ok {
		if !f.IsDirectory {
			return fmt.Errorf("not a directory: %s", path)
		}
		return nil
	}
	m.files[path] = &MockFile{ModTime: time.Now(), IsDirectory: true}
	return nil
}

func (m *MockFilesystemManager) ListFiles(dir string) ([]bckt.LocalFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var files []bckt.LocalFile
	for _, p := range m.under(dir) {
		if filepath.Dir(p) != filepath.Clean(dir) {
			continue
		}
		f := m.files[p]
		files = append(files, bckt.LocalFile{Name: filepath.Base(p), Size: f.size(), ModTime: f.ModTime})
	}
	return files, nil
}

func (m *MockFilesystemManager) FileSizeKB(path string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[path]
	if !ok || f.IsDirectory {
		return 0, fmt.Errorf("file not found: %s", path)
	}
	return f.size() / 1024, nil
}

func (m *MockFilesystemManager) FreeSpaceKB(string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.freeKB, nil
}

func (m *MockFilesystemManager) TreeSizeKB(root string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, p := range m.under(root) {
		total += m.files[p].size()
	}
	return total / 1024, nil
}

func (m *MockFilesystemManager) FilesSizeKB(paths []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, p := range paths {
		if f, ok := m.files[p]; ok && !f.IsDirectory {
			total += f.size()
		}
	}
	return total / 1024, nil
}

func (m *MockFilesystemManager) ModifiedSince(root string, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var paths []string
	for _, p := range m.under(root) {
		if m.files[p].ModTime.After(since) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// ExpandExcludes matches each pattern at any depth below root, the way a
// recursive glob does. A match on a directory component excludes everything beneath it.
func (m *MockFilesystemManager) ExpandExcludes(root string, patterns []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []string
	for _, p := range m.under(root) {
		rel := strings.TrimPrefix(p, strings.TrimSuffix(root, "/")+"/")
		for _, pattern := range patterns {
			hit, err := doublestar.Match("**/"+pattern, rel)
			if err != nil {
				return nil, fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
			}
			if !hit {
				hit, _ = doublestar.Match("**/"+pattern+"/**", rel)
			}
			if hit {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched, nil
}

func (m *MockFilesystemManager) Digest(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[path]
	if !ok || f.IsDirectory {
		return "", fmt.Errorf("file not found: %s", path)
	}
	sum := md5.Sum(f.Content)
	return hex.EncodeToString(sum[:]), nil
}

func (m *MockFilesystemManager) TouchMarker(path string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.files[path]; ok {
		f.ModTime = ts
		return nil
	}
	m.files[path] = &MockFile{ModTime: ts}
	return nil
}

// Compile-time check
var _ bckt.FilesystemManager = (*MockFilesystemManager)(nil)
