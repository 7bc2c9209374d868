package bckt

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"bckt-go/internal/database/sqlc"
)

// RepairReport summarizes a reconciliation pass.
type RepairReport struct {
	Checked         int
	RemoteFixed     int
	PreMarkerFixed  int
	FilenameFixed   int
	Created         int
	Gaps            []*ReconciliationGap
	CreatedArchives []*sqlc.Archive
}

// Repair reconciles archive records against the working folder and the
// remote store. Records are corrected in place; orphaned artifacts whose
// target can be resolved from the filename get a new record. Orphans of
// unknown targets are reported as gaps and skipped. With dryRun no record
// is written.
func (s *Service) Repair(ctx context.Context, dryRun bool) (*RepairReport, error) {
	var (
		records []*sqlc.Archive
		objects []RemoteObject
		files   []LocalFile
	)

	// reads only; writes below stay sequential
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.database.ListArchives(nil)
		if err != nil {
			return fmt.Errorf("listing archive records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		objects, err = s.vault.List(gctx, "")
		if err != nil {
			return fmt.Errorf("listing vault %s: %w", s.vault.Name(), err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		files, err = s.fsmgr.ListFiles(s.opts.WorkingFolder)
		if err != nil {
			return fmt.Errorf("listing %s: %w", s.opts.WorkingFolder, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	remote := NewRemoteIndex(objects)
	local := make(map[string]LocalFile, len(files))
	for _, f := range files {
		if IsArchiveFilename(f.Name) {
			local[f.Name] = f
		}
	}

	report := &RepairReport{}
	for _, a := range records {
		report.Checked++
		if err := s.repairRecord(a, remote, dryRun, report); err != nil {
			return report, err
		}
		base := path.Base(a.Filename)
		delete(remote, base)
		delete(local, base)
	}

	if err := s.adoptOrphans(remote, local, dryRun, report); err != nil {
		return report, err
	}

	s.invalidateRemote()
	s.logger.Info("repair complete", "checked", report.Checked, "remote_fixed", report.RemoteFixed,
		"pre_marker_fixed", report.PreMarkerFixed, "filename_fixed", report.FilenameFixed,
		"created", report.Created, "gaps", len(report.Gaps), "dry_run", dryRun)
	return report, nil
}

func (s *Service) repairRecord(a *sqlc.Archive, remote RemoteIndex, dryRun bool, report *RepairReport) error {
	base := path.Base(a.Filename)

	if base != a.Filename {
		s.logger.Info("normalizing filename", "id", a.ID, "from", a.Filename, "to", base)
		report.FilenameFixed++
		if !dryRun {
			if err := s.database.SetArchiveFilename(a, base); err != nil {
				return fmt.Errorf("normalizing filename of archive %d: %w", a.ID, err)
			}
		}
	}

	obj, onRemote := remote.Lookup(base)
	if onRemote != a.IsRemote {
		s.logger.Info("correcting remote flag", "id", a.ID, "file", base, "is_remote", onRemote)
		report.RemoteFixed++
		if !dryRun {
			var pushedAt time.Time
			if onRemote {
				pushedAt = obj.LastModified
			}
			if err := s.database.SetArchiveRemote(a, onRemote, pushedAt); err != nil {
				return fmt.Errorf("updating remote flag of archive %d: %w", a.ID, err)
			}
		}
	}

	if !a.PreMarkerTimestamp.Valid {
		_, ts, ok := ParseArchiveFilename(base)
		if !ok {
			s.logger.Warn("cannot recover pre-marker from filename", "id", a.ID, "file", base)
			return nil
		}
		s.logger.Info("recovering pre-marker", "id", a.ID, "file", base, "pre_marker", ts)
		report.PreMarkerFixed++
		if !dryRun {
			if err := s.database.SetArchivePreMarker(a, ts); err != nil {
				return fmt.Errorf("setting pre-marker of archive %d: %w", a.ID, err)
			}
		}
	}
	return nil
}

// adoptOrphans creates records for artifacts no record claimed.
func (s *Service) adoptOrphans(remote RemoteIndex, local map[string]LocalFile, dryRun bool, report *RepairReport) error {
	names := make(map[string]struct{}, len(remote)+len(local))
	for n := range remote {
		names[n] = struct{}{}
	}
	for n := range local {
		names[n] = struct{}{}
	}
	if len(names) == 0 {
		return nil
	}

	targets, err := s.database.ListTargets()
	if err != nil {
		return fmt.Errorf("listing targets: %w", err)
	}
	bySlug := make(map[string]*sqlc.Target, len(targets))
	for _, t := range targets {
		bySlug[Slug(t.Name)] = t
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		slug, ts, _ := ParseArchiveFilename(name)
		target, ok := bySlug[slug]
		if !ok {
			gap := &ReconciliationGap{Filename: name, Reason: fmt.Sprintf("no target named %q", slug)}
			s.logger.Warn("orphan skipped", "file", name, "error", gap)
			report.Gaps = append(report.Gaps, gap)
			continue
		}

		existing, err := s.database.FindArchiveForPreMarker(target, ts)
		if err != nil {
			return fmt.Errorf("checking pre-marker of %s: %w", name, err)
		}
		if existing != nil {
			gap := &ReconciliationGap{Filename: name, Reason: fmt.Sprintf("archive %d already holds this pre-marker", existing.ID)}
			s.logger.Warn("orphan skipped", "file", name, "error", gap)
			report.Gaps = append(report.Gaps, gap)
			continue
		}

		obj, onRemote := remote[name]
		file, onLocal := local[name]
		remoteState := RemoteAbsent
		if onRemote {
			remoteState = RemotePresent
		}
		loc := ResolveLocation(false, onLocal, remoteState)

		a := &sqlc.Archive{
			TargetID:           target.ID,
			Filename:           name,
			PreMarkerTimestamp: sql.NullTime{Time: ts, Valid: true},
			IsRemote:           loc.HasRemote(),
		}
		if onRemote {
			a.SizeKb = obj.Size / 1024
			a.RemotePushAt = sql.NullTime{Time: obj.LastModified.UTC(), Valid: true}
		}
		if onLocal {
			a.SizeKb = file.Size / 1024
			digest, err := s.fsmgr.Digest(s.localPath(name))
			if err != nil {
				s.logger.Warn("digest failed", "file", name, "error", err)
			} else {
				a.Digest = digest
			}
		}

		s.logger.Info("adopting orphan", "file", name, "target", target.Name, "location", loc)
		report.Created++
		if dryRun {
			continue
		}
		if err := s.database.CreateArchive(a); err != nil {
			return fmt.Errorf("creating record for %s: %w", name, err)
		}
		report.CreatedArchives = append(report.CreatedArchives, a)
	}
	return nil
}

// BackupDatabase writes a consistent copy of the record store to dest. An
// existing file at dest is never overwritten.
func (s *Service) BackupDatabase(dest string) error {
	if s.fsmgr.Exists(dest) {
		return fmt.Errorf("backup destination already exists: %s", dest)
	}
	if err := s.database.BackupTo(dest); err != nil {
		return err
	}
	s.logger.Info("database copied", "dest", dest)
	return nil
}
