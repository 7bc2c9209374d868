package bckt

import "context"

// ArchiveRequest describes one archive to produce.
type ArchiveRequest struct {
	SourcePath string
	Excludes   []string
	Dest       string
}

// ArchiveResult carries the archiver's diagnostics for one attempt.
type ArchiveResult struct {
	Path       string
	Size       int64
	ExitStatus int
	Stderr     string
}

// Archiver produces and unpacks compressed snapshot artifacts.
type Archiver interface {
	// Create writes an archive of req.SourcePath to req.Dest and verifies it.
	// A non-nil error means the archiver could not be run at all; a nonzero
	// ExitStatus with stderr is reported through the result.
	Create(ctx context.Context, req ArchiveRequest) (*ArchiveResult, error)

	// Extract unpacks archivePath into destDir.
	Extract(ctx context.Context, archivePath, destDir string) error
}
