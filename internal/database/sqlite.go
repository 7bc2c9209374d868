package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bckt-go/internal/bckt"
	"bckt-go/internal/database/migrations"
	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives only as long as its connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Target operations

func (s *SQLiteDatabase) FindTargetByName(name string) (*sqlc.Target, error) {
	t, err := s.queries.GetTargetByName(context.Background(), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding target by name: %w", err)
	}
	return &t, nil
}

func (s *SQLiteDatabase) FindTargetByID(id int64) (*sqlc.Target, error) {
	t, err := s.queries.GetTargetByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding target by id: %w", err)
	}
	return &t, nil
}

func (s *SQLiteDatabase) ListTargets() ([]*sqlc.Target, error) {
	targets, err := s.queries.ListTargets(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	result := make([]*sqlc.Target, len(targets))
	for i := range targets {
		result[i] = &targets[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) CreateTarget(name, path string, policy bckt.TargetPolicy) (*sqlc.Target, error) {
	t, err := s.queries.InsertTarget(context.Background(), sqlc.InsertTargetParams{
		Name:         name,
		Path:         path,
		Excludes:     policy.Excludes,
		Frequency:    policy.Frequency,
		BudgetMax:    policy.BudgetMax,
		PushStrategy: policy.PushStrategy,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("inserting target: %w", err)
	}
	return &t, nil
}

func (s *SQLiteDatabase) UpdateTargetPolicy(target *sqlc.Target, policy bckt.TargetPolicy) error {
	err := s.queries.UpdateTargetPolicy(context.Background(), sqlc.UpdateTargetPolicyParams{
		Excludes:     policy.Excludes,
		Frequency:    policy.Frequency,
		BudgetMax:    policy.BudgetMax,
		PushStrategy: policy.PushStrategy,
		ID:           target.ID,
	})
	if err != nil {
		return fmt.Errorf("updating target policy: %w", err)
	}
	target.Excludes = policy.Excludes
	target.Frequency = policy.Frequency
	target.BudgetMax = policy.BudgetMax
	target.PushStrategy = policy.PushStrategy
	return nil
}

func (s *SQLiteDatabase) SetTargetActive(target *sqlc.Target, active bool) error {
	err := s.queries.SetTargetActive(context.Background(), sqlc.SetTargetActiveParams{
		IsActive: active,
		ID:       target.ID,
	})
	if err != nil {
		return fmt.Errorf("setting target active: %w", err)
	}
	target.IsActive = active
	return nil
}

func (s *SQLiteDatabase) SetTargetLastReason(target *sqlc.Target, reason model.Reason) error {
	err := s.queries.SetTargetLastReason(context.Background(), sqlc.SetTargetLastReasonParams{
		LastReason: reason,
		ID:         target.ID,
	})
	if err != nil {
		return fmt.Errorf("setting target last reason: %w", err)
	}
	target.LastReason = reason
	return nil
}

func (s *SQLiteDatabase) SetTargetMarkers(target *sqlc.Target, pre, post time.Time) error {
	err := s.queries.SetTargetMarkers(context.Background(), sqlc.SetTargetMarkersParams{
		PreMarkerAt:  nullTime(pre),
		PostMarkerAt: nullTime(post),
		ID:           target.ID,
	})
	if err != nil {
		return fmt.Errorf("setting target markers: %w", err)
	}
	target.PreMarkerAt = nullTime(pre)
	target.PostMarkerAt = nullTime(post)
	return nil
}

// Archive operations

func (s *SQLiteDatabase) FindArchiveByID(id int64) (*sqlc.Archive, error) {
	a, err := s.queries.GetArchiveByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding archive by id: %w", err)
	}
	return &a, nil
}

func (s *SQLiteDatabase) FindArchiveForPreMarker(target *sqlc.Target, ts time.Time) (*sqlc.Archive, error) {
	a, err := s.queries.GetArchiveByTargetAndPreMarker(context.Background(), sqlc.GetArchiveByTargetAndPreMarkerParams{
		TargetID:           target.ID,
		PreMarkerTimestamp: nullTime(ts),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding archive for pre marker: %w", err)
	}
	return &a, nil
}

func (s *SQLiteDatabase) FindLastArchive(target *sqlc.Target) (*sqlc.Archive, error) {
	a, err := s.queries.GetLastArchiveForTarget(context.Background(), target.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding last archive: %w", err)
	}
	return &a, nil
}

func (s *SQLiteDatabase) ListArchives(target *sqlc.Target) ([]*sqlc.Archive, error) {
	ctx := context.Background()

	var archives []sqlc.Archive
	var err error
	if target == nil {
		archives, err = s.queries.ListArchives(ctx)
	} else {
		archives, err = s.queries.ListArchivesForTarget(ctx, target.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}

	result := make([]*sqlc.Archive, len(archives))
	for i := range archives {
		result[i] = &archives[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) CreateArchive(archive *sqlc.Archive) error {
	created, err := s.queries.InsertArchive(context.Background(), sqlc.InsertArchiveParams{
		TargetID:           archive.TargetID,
		Filename:           archive.Filename,
		SizeKb:             archive.SizeKb,
		UncompressedSizeKb: archive.UncompressedSizeKb,
		PreMarkerTimestamp: archive.PreMarkerTimestamp,
		IsRemote:           archive.IsRemote,
		RemotePushAt:       archive.RemotePushAt,
		Digest:             archive.Digest,
		Returncode:         archive.Returncode,
		Errors:             archive.Errors,
		CreatedAt:          time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("inserting archive: %w", err)
	}
	*archive = created
	return nil
}

func (s *SQLiteDatabase) DeleteArchive(archive *sqlc.Archive) error {
	if err := s.queries.DeleteArchive(context.Background(), archive.ID); err != nil {
		return fmt.Errorf("deleting archive: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetArchiveRemote(archive *sqlc.Archive, isRemote bool, pushedAt time.Time) error {
	err := s.queries.SetArchiveRemote(context.Background(), sqlc.SetArchiveRemoteParams{
		IsRemote:     isRemote,
		RemotePushAt: nullTime(pushedAt),
		ID:           archive.ID,
	})
	if err != nil {
		return fmt.Errorf("setting archive remote: %w", err)
	}
	archive.IsRemote = isRemote
	archive.RemotePushAt = nullTime(pushedAt)
	return nil
}

func (s *SQLiteDatabase) SetArchivePreMarker(archive *sqlc.Archive, ts time.Time) error {
	err := s.queries.SetArchivePreMarker(context.Background(), sqlc.SetArchivePreMarkerParams{
		PreMarkerTimestamp: nullTime(ts),
		ID:                 archive.ID,
	})
	if err != nil {
		return fmt.Errorf("setting archive pre marker: %w", err)
	}
	archive.PreMarkerTimestamp = nullTime(ts)
	return nil
}

func (s *SQLiteDatabase) SetArchiveFilename(archive *sqlc.Archive, filename string) error {
	err := s.queries.SetArchiveFilename(context.Background(), sqlc.SetArchiveFilenameParams{
		Filename: filename,
		ID:       archive.ID,
	})
	if err != nil {
		return fmt.Errorf("setting archive filename: %w", err)
	}
	archive.Filename = filename
	return nil
}

// Run operations

func (s *SQLiteDatabase) CreateRun(id, command, parameters string, startedAt time.Time) (*sqlc.Run, error) {
	run, err := s.queries.InsertRun(context.Background(), sqlc.InsertRunParams{
		ID:         id,
		Command:    command,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  startedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return &run, nil
}

func (s *SQLiteDatabase) FinishRun(id, status, summaryJSON string, finishedAt time.Time) error {
	err := s.queries.FinishRun(context.Background(), sqlc.FinishRunParams{
		Status:      status,
		SummaryJson: summaryJSON,
		FinishedAt:  nullTime(finishedAt),
		ID:          id,
	})
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListRecentRuns(limit int) ([]*sqlc.Run, error) {
	runs, err := s.queries.ListRecentRuns(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	result := make([]*sqlc.Run, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

// Lifecycle

// Migrate runs all pending migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements bckt.Database interface
var _ bckt.Database = (*SQLiteDatabase)(nil)
