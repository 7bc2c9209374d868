package bckt

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	ErrTargetNotFound      = errors.New("target not found")
	ErrTargetExists        = errors.New("target already exists")
	ErrArchiveNotFound     = errors.New("archive not found")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrInvalidPushStrategy = errors.New("invalid push strategy")
	ErrArchiveNotLocal     = errors.New("archive is not present locally")
	ErrArchiveExists       = errors.New("archive already exists")
)

// DiskFullError is returned when no cleanup tier frees enough space for the
// next archive, or when the archiver itself ran out of space.
type DiskFullError struct {
	Target      string
	NeededKB    int64
	FreeKB      int64
	ReclaimedKB int64
}

func (e *DiskFullError) Error() string {
	if e.NeededKB == 0 {
		return fmt.Sprintf("no space left on device while archiving %s", e.Target)
	}
	return fmt.Sprintf("insufficient space for %s: need %s, free %s, reclaimable %s",
		e.Target,
		humanize.IBytes(uint64(e.NeededKB)*1024),
		humanize.IBytes(uint64(e.FreeKB)*1024),
		humanize.IBytes(uint64(e.ReclaimedKB)*1024))
}

// ArchiverFailure reports a nonzero archiver exit or a failed verification.
type ArchiverFailure struct {
	Target     string
	ExitStatus int
	Stderr     string
	Err        error
}

func (e *ArchiverFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archiving %s: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("archiving %s: exit status %d: %s", e.Target, e.ExitStatus, e.Stderr)
}

func (e *ArchiverFailure) Unwrap() error { return e.Err }

// PushFailure wraps an object store error raised while pushing an archive.
type PushFailure struct {
	Target string
	Key    string
	Err    error
}

func (e *PushFailure) Error() string {
	return fmt.Sprintf("pushing %s to %s: %v", e.Target, e.Key, e.Err)
}

func (e *PushFailure) Unwrap() error { return e.Err }

// ReconciliationGap is an orphaned artifact whose target cannot be resolved.
type ReconciliationGap struct {
	Filename string
	Reason   string
}

func (e *ReconciliationGap) Error() string {
	return fmt.Sprintf("cannot reconcile %s: %s", e.Filename, e.Reason)
}
