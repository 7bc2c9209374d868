package bckt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"
)

// noSpaceMessage is what tar prints when the destination filesystem fills up.
const noSpaceMessage = "No space left on device"

// RunOptions are the per-invocation overrides of `bckt run`.
type RunOptions struct {
	// IgnoreSchedule archives targets even when their frequency says not yet.
	IgnoreSchedule bool
	// ForcePush pushes the latest archive even when the strategy says not due.
	ForcePush bool
	// DryRun logs every decision without archiving, deleting or pushing.
	DryRun bool
}

// TargetResult is the outcome of one target's workflow in a run.
type TargetResult struct {
	Target      string        `json:"target"`
	Outcome     model.Outcome `json:"outcome"`
	Reason      model.Reason  `json:"reason,omitempty"`
	Archive     string        `json:"archive,omitempty"`
	SizeKB      int64         `json:"size_kb,omitempty"`
	Pushed      bool          `json:"pushed"`
	PushMessage string        `json:"push_message,omitempty"`
	AgedDeleted int           `json:"aged_deleted,omitempty"`
	Error       string        `json:"error,omitempty"`
	PushError   string        `json:"push_error,omitempty"`
}

// RunSummary collects the per-target results of one run.
type RunSummary struct {
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Results    []TargetResult        `json:"results"`
	Counts     map[model.Outcome]int `json:"counts"`
	Pushed     int                   `json:"pushed"`
	Failures   int                   `json:"failures"`
}

// Run executes the backup workflow for one target, or every target when
// targetName is empty. A failure in one target is recorded in its result
// and the loop moves on to the next target.
func (s *Service) Run(ctx context.Context, targetName string, opts RunOptions) (*RunSummary, error) {
	targets, err := s.targets(targetName)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		StartedAt: s.clock.Now().UTC(),
		Counts:    make(map[model.Outcome]int),
	}
	s.logger.Info("run started", "targets", len(targets), "dry_run", opts.DryRun,
		"ignore_schedule", opts.IgnoreSchedule, "force_push", opts.ForcePush)

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r := s.runTarget(ctx, t, opts)
		summary.Results = append(summary.Results, r)
		summary.Counts[r.Outcome]++
		if r.Pushed {
			summary.Pushed++
		}
		if r.Error != "" || r.PushError != "" {
			summary.Failures++
		}
	}

	summary.FinishedAt = s.clock.Now().UTC()
	s.logger.Info("run completed", "targets", len(targets), "pushed", summary.Pushed, "failures", summary.Failures,
		"elapsed", summary.FinishedAt.Sub(summary.StartedAt).String())
	return summary, nil
}

func (s *Service) runTarget(ctx context.Context, t *sqlc.Target, opts RunOptions) TargetResult {
	r := TargetResult{Target: t.Name}

	outcome, archive, err := s.archiveStep(ctx, t, opts)
	r.Outcome = outcome
	r.Reason = outcome.Reason()
	if err != nil {
		r.Error = err.Error()
		s.logger.Error("archive step failed", "target", t.Name, "outcome", outcome, "error", err)
	}
	if archive != nil {
		r.Archive = archive.Filename
		r.SizeKB = archive.SizeKb
	}

	// the push step runs whatever the archive step did
	push, err := s.PushLatest(ctx, t, opts.ForcePush, opts.DryRun)
	if err != nil {
		r.PushError = err.Error()
		s.logger.Error("push step failed", "target", t.Name, "error", err)
	} else {
		r.Pushed = push.Pushed
		r.PushMessage = push.Message
		r.AgedDeleted = push.AgedDeleted
		if push.BudgetExhausted && budgetMayOverride(r.Reason) {
			r.Reason = model.ReasonBudget
		}
	}

	if !opts.DryRun && r.Reason != model.ReasonNone {
		if err := s.database.SetTargetLastReason(t, r.Reason); err != nil {
			s.logger.Error("recording last reason", "target", t.Name, "error", err)
		}
	}
	return r
}

// budgetMayOverride reports whether a budget verdict replaces the archive reason.
// Failures and skips keep their own reason.
func budgetMayOverride(r model.Reason) bool {
	return r == model.ReasonOK || r == model.ReasonNothingNew
}

// archiveStep decides whether to archive t and does so.
func (s *Service) archiveStep(ctx context.Context, t *sqlc.Target, opts RunOptions) (model.Outcome, *sqlc.Archive, error) {
	if !t.IsActive {
		s.logger.Info("target paused", "target", t.Name)
		return model.OutcomeNotActive, nil, nil
	}

	scheduled, err := s.IsScheduled(t)
	if err != nil {
		return model.OutcomeOtherFailure, nil, err
	}
	if !scheduled && !opts.IgnoreSchedule {
		s.logger.Info("target not scheduled", "target", t.Name, "frequency", t.Frequency)
		return model.OutcomeNotScheduled, nil, nil
	}

	changes, err := s.HasNewFiles(t)
	if err != nil {
		return model.OutcomeOtherFailure, nil, err
	}
	s.logger.Info("change detection", "target", t.Name, "new", changes.HasNewFiles, "detail", changes.Message)
	if !changes.HasNewFiles {
		return model.OutcomeNoNewFiles, nil, nil
	}

	needed, err := s.uncompressedSizeKB(t)
	if err != nil {
		return model.OutcomeOtherFailure, nil, err
	}
	if err := s.EnsureSpace(ctx, t, needed, opts.DryRun); err != nil {
		if IsDiskFull(err) {
			return model.OutcomeInsufficientSpace, nil, err
		}
		return model.OutcomeOtherFailure, nil, err
	}

	if opts.DryRun {
		s.logger.Info("would create archive", "target", t.Name, "estimated", humanize.IBytes(uint64(needed)*1024))
		return model.OutcomeDryRun, nil, nil
	}

	archive, err := s.CreateArchive(ctx, t, needed)
	if err != nil {
		if IsDiskFull(err) {
			return model.OutcomeInsufficientSpace, nil, err
		}
		return model.OutcomeOtherFailure, nil, err
	}
	return model.OutcomeArchiveCreated, archive, nil
}

// IsScheduled reports whether enough time has passed since the target's last
// archive. A target without archives is always scheduled.
func (s *Service) IsScheduled(t *sqlc.Target) (bool, error) {
	last, err := s.database.FindLastArchive(t)
	if err != nil {
		return false, fmt.Errorf("finding last archive: %w", err)
	}
	if last == nil {
		return true, nil
	}
	since := s.clock.Now().Sub(archiveTime(last)).Minutes()
	return since >= float64(t.Frequency.Minutes()), nil
}

// archiveTime is the pre-marker of an archive, or its creation time for legacy rows.
func archiveTime(a *sqlc.Archive) time.Time {
	if a.PreMarkerTimestamp.Valid {
		return a.PreMarkerTimestamp.Time
	}
	return a.CreatedAt
}

// CreateArchive runs the archiver for t and records the result. The file and
// the record are kept in lockstep: whichever side succeeded is rolled back
// when the other fails. An archive already holding this second's name or
// pre-marker is left alone and ErrArchiveExists is returned.
func (s *Service) CreateArchive(ctx context.Context, t *sqlc.Target, uncompressedKB int64) (*sqlc.Archive, error) {
	if err := s.fsmgr.MkdirAll(s.opts.WorkingFolder); err != nil {
		return nil, fmt.Errorf("creating working folder: %w", err)
	}

	pre := s.clock.Now().UTC().Truncate(time.Second)
	filename := ArchiveFilename(t.Name, pre)
	dest := s.localPath(filename)

	// a second attempt within the same second would reuse the name and pre-marker
	existing, err := s.database.FindArchiveForPreMarker(t, pre)
	if err != nil {
		return nil, fmt.Errorf("checking for an archive at %s: %w", pre.Format(time.RFC3339), err)
	}
	if existing != nil || s.fsmgr.Exists(dest) {
		return nil, fmt.Errorf("%w: %s", ErrArchiveExists, filename)
	}

	s.logger.Info("creating archive", "target", t.Name, "file", dest)
	res, err := s.archiver.Create(ctx, ArchiveRequest{
		SourcePath: t.Path,
		Excludes:   SplitExcludes(t.Excludes),
		Dest:       dest,
	})
	if err != nil {
		s.discard(dest)
		return nil, &ArchiverFailure{Target: t.Name, Err: err}
	}
	if strings.Contains(res.Stderr, noSpaceMessage) {
		s.discard(dest)
		return nil, &DiskFullError{Target: t.Name}
	}
	if res.ExitStatus != 0 {
		s.discard(dest)
		return nil, &ArchiverFailure{Target: t.Name, ExitStatus: res.ExitStatus, Stderr: res.Stderr}
	}

	sizeKB, err := s.fsmgr.FileSizeKB(dest)
	if err != nil {
		s.discard(dest)
		return nil, fmt.Errorf("sizing archive: %w", err)
	}
	digest, err := s.fsmgr.Digest(dest)
	if err != nil {
		s.discard(dest)
		return nil, fmt.Errorf("computing digest: %w", err)
	}

	archive := &sqlc.Archive{
		TargetID:           t.ID,
		Filename:           filename,
		SizeKb:             sizeKB,
		UncompressedSizeKb: sql.NullInt64{Int64: uncompressedKB, Valid: uncompressedKB > 0},
		PreMarkerTimestamp: sql.NullTime{Time: pre, Valid: true},
		Digest:             digest,
		Returncode:         int64(res.ExitStatus),
		Errors:             res.Stderr,
	}
	if err := s.database.CreateArchive(archive); err != nil {
		s.discard(dest)
		return nil, fmt.Errorf("recording archive: %w", err)
	}

	post := s.clock.Now().UTC()
	if err := s.database.SetTargetMarkers(t, pre, post); err != nil {
		if derr := s.database.DeleteArchive(archive); derr != nil {
			err = errors.Join(err, derr)
		}
		s.discard(dest)
		return nil, fmt.Errorf("recording markers: %w", err)
	}

	s.touchMarkers(t, pre, post)
	s.invalidateLocal(t.Name)

	s.logger.Info("archive created", "target", t.Name, "file", filename, "id", archive.ID,
		"size", humanize.IBytes(uint64(sizeKB)*1024))
	return archive, nil
}

// discard removes a partial or orphaned artifact, logging failures.
func (s *Service) discard(p string) {
	if !s.fsmgr.Exists(p) {
		return
	}
	s.logger.Warn("removing archive file", "file", p)
	if err := s.fsmgr.Remove(p); err != nil {
		s.logger.Error("removing archive file", "file", p, "error", err)
	}
}

// touchMarkers refreshes the legacy marker files next to the target path.
func (s *Service) touchMarkers(t *sqlc.Target, pre, post time.Time) {
	for place, ts := range map[string]time.Time{"pre": pre, "post": post} {
		p := MarkerPath(t.Path, t.Name, place)
		if err := s.fsmgr.TouchMarker(p, ts); err != nil {
			s.logger.Warn("updating marker file", "file", p, "error", err)
		}
	}
}
