package bckt

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"
)

const (
	keepNewest           = 3
	keepNewestAggressive = 1
)

// ReclaimResult is the space freed (or that would be freed) per target name.
type ReclaimResult map[string]int64

// Total returns the freed space summed over all targets, in KiB.
func (r ReclaimResult) Total() int64 {
	var total int64
	for _, kb := range r {
		total += kb
	}
	return total
}

// Reclaim deletes older local archive copies of target, or of every target
// when target is nil.
//
// Archives are visited newest first. In aggressive mode a local copy that is
// already remote is always deleted and does not use a retention slot.
// Otherwise the first N local copies are kept (1 aggressive, 3 normal) and
// the rest deleted. With dryRun nothing is removed.
func (s *Service) Reclaim(ctx context.Context, target *sqlc.Target, aggressive, dryRun bool) (ReclaimResult, error) {
	var targets []*sqlc.Target
	if target != nil {
		targets = []*sqlc.Target{target}
	} else {
		all, err := s.database.ListTargets()
		if err != nil {
			return nil, fmt.Errorf("listing targets: %w", err)
		}
		targets = all
	}

	var idx RemoteIndex
	if aggressive {
		var objects []RemoteObject
		idx, objects = s.remoteIndex(ctx)
		s.logger.Debug("aggressive cleanup remote listing", "available", idx != nil, "objects", len(objects))
	}

	keep := keepNewest
	if aggressive {
		keep = keepNewestAggressive
	}

	result := make(ReclaimResult, len(targets))
	for _, t := range targets {
		archives, err := s.database.ListArchives(t)
		if err != nil {
			return nil, fmt.Errorf("listing archives for %s: %w", t.Name, err)
		}

		freed, err := s.reclaimTarget(t, archives, idx, aggressive, keep, dryRun)
		if err != nil {
			return nil, err
		}
		result[t.Name] = freed
	}
	return result, nil
}

func (s *Service) reclaimTarget(t *sqlc.Target, archives []*sqlc.Archive, idx RemoteIndex, aggressive bool, keep int, dryRun bool) (int64, error) {
	var freed int64
	kept := 0

	for _, a := range archives {
		if !s.hasLocal(a.Filename) {
			continue
		}

		if aggressive && ResolveLocation(true, true, idx.State(a.Filename)) == model.LocationLocalAndRemote {
			if err := s.removeLocal(t, a, "already remote", dryRun); err != nil {
				return freed, err
			}
			freed += a.SizeKb
			continue
		}

		if kept < keep {
			kept++
			s.logger.Debug("keeping newer archive", "target", t.Name, "file", a.Filename, "dry_run", dryRun)
			continue
		}

		if err := s.removeLocal(t, a, "beyond retention", dryRun); err != nil {
			return freed, err
		}
		freed += a.SizeKb
	}

	if freed > 0 {
		s.logger.Info("local cleanup", "target", t.Name, "aggressive", aggressive, "dry_run", dryRun,
			"freed", humanize.IBytes(uint64(freed)*1024))
	}
	return freed, nil
}

func (s *Service) removeLocal(t *sqlc.Target, a *sqlc.Archive, why string, dryRun bool) error {
	p := s.localPath(a.Filename)
	if dryRun {
		s.logger.Info("would delete local archive", "target", t.Name, "file", p, "why", why)
		return nil
	}
	s.logger.Warn("deleting local archive", "target", t.Name, "file", p, "why", why)
	if err := s.fsmgr.Remove(p); err != nil {
		return fmt.Errorf("removing %s: %w", p, err)
	}
	return nil
}

// EnsureSpace makes room for an archive of neededKB in the working folder.
// It estimates the normal cleanup tier, then the aggressive tier, across all
// targets, and only runs the first tier that frees enough. If neither does,
// nothing is deleted and a *DiskFullError is returned.
func (s *Service) EnsureSpace(ctx context.Context, target *sqlc.Target, neededKB int64, dryRun bool) error {
	free, err := s.fsmgr.FreeSpaceKB(s.opts.WorkingFolder)
	if err != nil {
		return fmt.Errorf("checking free space: %w", err)
	}
	if neededKB <= free {
		return nil
	}

	short := neededKB - free
	s.logger.Warn("archive may not fit", "target", target.Name,
		"needed", humanize.IBytes(uint64(neededKB)*1024), "free", humanize.IBytes(uint64(free)*1024))

	var reclaimable int64
	for _, aggressive := range []bool{false, true} {
		estimate, err := s.Reclaim(ctx, nil, aggressive, true)
		if err != nil {
			return fmt.Errorf("estimating cleanup: %w", err)
		}
		reclaimable = estimate.Total()
		if reclaimable < short {
			s.logger.Warn("cleanup tier insufficient", "aggressive", aggressive,
				"reclaimable", humanize.IBytes(uint64(reclaimable)*1024), "short", humanize.IBytes(uint64(short)*1024))
			continue
		}

		s.logger.Info("cleaning up local archives", "aggressive", aggressive,
			"reclaimable", humanize.IBytes(uint64(reclaimable)*1024))
		if _, err := s.Reclaim(ctx, nil, aggressive, dryRun); err != nil {
			return fmt.Errorf("cleaning up: %w", err)
		}
		return nil
	}

	return &DiskFullError{
		Target:      target.Name,
		NeededKB:    neededKB,
		FreeKB:      free,
		ReclaimedKB: reclaimable,
	}
}

// IsDiskFull reports whether err is a DiskFullError.
func IsDiskFull(err error) bool {
	var dfe *DiskFullError
	return errors.As(err, &dfe)
}
