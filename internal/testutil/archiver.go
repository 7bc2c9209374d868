package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"bckt-go/internal/bckt"
)

// FakeArchiver writes archive files into a MockFilesystemManager instead of running tar.
type FakeArchiver struct {
	mu   sync.Mutex
	fsmg *MockFilesystemManager

	// SizeBytes is the size of every archive produced.
	SizeBytes int64
	// ExitStatus and Stderr are reported for every Create.
	ExitStatus int
	Stderr     string
	// Err makes Create fail before anything is written.
	Err error
	// Partial leaves a truncated file behind when ExitStatus is nonzero.
	Partial bool

	Requests  []bckt.ArchiveRequest
	Extracted map[string]string
}

// NewFakeArchiver creates a FakeArchiver producing 2 MiB archives.
func NewFakeArchiver(fsmgr *MockFilesystemManager) *FakeArchiver {
	return &FakeArchiver{
		fsmg:      fsmgr,
		SizeBytes: 2 * 1024 * 1024,
		Extracted: make(map[string]string),
	}
}

func (a *FakeArchiver) Create(ctx context.Context, req bckt.ArchiveRequest) (*bckt.ArchiveResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Requests = append(a.Requests, req)
	if a.Err != nil {
		return nil, a.Err
	}

	res := &bckt.ArchiveResult{Path: req.Dest, ExitStatus: a.ExitStatus, Stderr: a.Stderr}
	if a.ExitStatus != 0 && !a.Partial {
		return res, nil
	}

	size := a.SizeBytes
	if a.ExitStatus != 0 {
		size /= 2
	}
	a.fsmg.mu.Lock()
	a.fsmg.files[req.Dest] = &MockFile{
		Content: []byte(fmt.Sprintf("archive of %s", req.SourcePath)),
		Size:    size,
		ModTime: time.Now(),
	}
	a.fsmg.mu.Unlock()

	res.Size = size
	return res, nil
}

func (a *FakeArchiver) Extract(ctx context.Context, archivePath, destDir string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Err != nil {
		return a.Err
	}
	if !a.fsmg.Exists(archivePath) {
		return fmt.Errorf("archive not found: %s", archivePath)
	}
	a.Extracted[archivePath] = destDir
	a.fsmg.AddFile(filepath.Join(destDir, "restored"), []byte(archivePath))
	return nil
}

var _ bckt.Archiver = (*FakeArchiver)(nil)
