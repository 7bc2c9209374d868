package bckt

import (
	"time"

	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"
)

// TargetPolicy is the editable policy portion of a target.
type TargetPolicy struct {
	Excludes     string
	Frequency    model.Frequency
	BudgetMax    float64
	PushStrategy model.PushStrategy
}

// Database provides an interface for the target and archive record store.
// Lookups that find nothing return (nil, nil).
type Database interface {
	// Target operations

	// FindTargetByName returns the target with the given unique name.
	FindTargetByName(name string) (*sqlc.Target, error)

	// FindTargetByID returns the target with the given id.
	FindTargetByID(id int64) (*sqlc.Target, error)

	// ListTargets returns all targets ordered by name.
	ListTargets() ([]*sqlc.Target, error)

	// CreateTarget registers a new active target.
	CreateTarget(name, path string, policy TargetPolicy) (*sqlc.Target, error)

	// UpdateTargetPolicy replaces the policy attributes of a target.
	UpdateTargetPolicy(target *sqlc.Target, policy TargetPolicy) error

	// SetTargetActive pauses or unpauses a target.
	SetTargetActive(target *sqlc.Target, active bool) error

	// SetTargetLastReason records why the latest run did or did not archive.
	SetTargetLastReason(target *sqlc.Target, reason model.Reason) error

	// SetTargetMarkers stores the pre/post timestamps of the latest archive attempt.
	SetTargetMarkers(target *sqlc.Target, pre, post time.Time) error

	// Archive operations

	// FindArchiveByID returns a single archive record.
	FindArchiveByID(id int64) (*sqlc.Archive, error)

	// FindArchiveForPreMarker returns the archive of target captured at exactly ts.
	FindArchiveForPreMarker(target *sqlc.Target, ts time.Time) (*sqlc.Archive, error)

	// FindLastArchive returns the newest archive of target by pre_marker_timestamp.
	FindLastArchive(target *sqlc.Target) (*sqlc.Archive, error)

	// ListArchives returns archives newest-first by pre_marker_timestamp.
	// A nil target lists archives of every target.
	ListArchives(target *sqlc.Target) ([]*sqlc.Archive, error)

	// CreateArchive inserts archive and fills in its ID and CreatedAt.
	CreateArchive(archive *sqlc.Archive) error

	// DeleteArchive removes an archive record.
	DeleteArchive(archive *sqlc.Archive) error

	// SetArchiveRemote updates the remote flag. A zero pushedAt clears remote_push_at.
	SetArchiveRemote(archive *sqlc.Archive, isRemote bool, pushedAt time.Time) error

	// SetArchivePreMarker sets the ordering timestamp of an archive.
	SetArchivePreMarker(archive *sqlc.Archive, ts time.Time) error

	// SetArchiveFilename rewrites the stored filename of an archive.
	SetArchiveFilename(archive *sqlc.Archive, filename string) error

	// Run operations

	// CreateRun records the start of a CLI operation.
	CreateRun(id, command, parameters string, startedAt time.Time) (*sqlc.Run, error)

	// FinishRun records the outcome of a CLI operation.
	FinishRun(id, status, summaryJSON string, finishedAt time.Time) error

	// ListRecentRuns returns the newest runs first.
	ListRecentRuns(limit int) ([]*sqlc.Run, error)

	// Lifecycle

	// Migrate brings the schema to the latest version.
	Migrate() error

	// CheckMigrations returns an error if the schema is not at the latest version.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	// Close releases the underlying connection.
	Close() error
}
