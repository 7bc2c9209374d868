package bckt

import (
	"context"
	"fmt"
	"path"
	"time"

	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"
)

// ArchiveView is one row of an archive listing: either a record or a remote
// object no record claims.
type ArchiveView struct {
	// Archive is nil for remote orphans.
	Archive    *sqlc.Archive
	TargetName string
	Filename   string
	Location   model.Location
	SizeKB     int64
	// CapturedAt is the record's pre-marker, or the object's last-modified time.
	CapturedAt  time.Time
	MonthlyCost float64
}

// ListArchives returns the records of one target (or all targets), newest
// first, followed by remote objects of those targets that have no record.
func (s *Service) ListArchives(ctx context.Context, targetName string) ([]*ArchiveView, error) {
	var (
		target *sqlc.Target
		err    error
	)
	if targetName != "" {
		if target, err = s.target(targetName); err != nil {
			return nil, err
		}
	}

	targets, err := s.database.ListTargets()
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	names := make(map[int64]string, len(targets))
	for _, t := range targets {
		names[t.ID] = t.Name
	}

	records, err := s.database.ListArchives(target)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}

	idx, objects := s.remoteIndex(ctx)
	claimed := make(map[string]struct{}, len(records))

	views := make([]*ArchiveView, 0, len(records))
	for _, a := range records {
		base := path.Base(a.Filename)
		claimed[base] = struct{}{}

		v := &ArchiveView{
			Archive:    a,
			TargetName: names[a.TargetID],
			Filename:   base,
			Location:   s.locate(a, idx).Location,
			SizeKB:     a.SizeKb,
			CapturedAt: archiveTime(a),
		}
		if obj, ok := idx.Lookup(base); ok {
			v.MonthlyCost = s.MonthlyCost(obj.Size)
		}
		views = append(views, v)
	}

	for _, obj := range objects {
		base := path.Base(obj.Key)
		if !IsArchiveFilename(base) {
			continue
		}
		if _, ok := claimed[base]; ok {
			continue
		}
		owner := ownerOf(obj.Key, targets)
		if target != nil && owner != target.Name {
			continue
		}
		claimed[base] = struct{}{}
		views = append(views, &ArchiveView{
			TargetName:  owner,
			Filename:    obj.Key,
			Location:    ResolveLocation(false, s.hasLocal(base), RemotePresent),
			SizeKB:      obj.Size / 1024,
			CapturedAt:  obj.LastModified,
			MonthlyCost: s.MonthlyCost(obj.Size),
		})
	}
	return views, nil
}

// ownerOf returns the name of the target an object key belongs to, or "".
func ownerOf(key string, targets []*sqlc.Target) string {
	for _, t := range targets {
		if ObjectBelongsToTarget(key, t.Name) {
			return t.Name
		}
	}
	return ""
}

// LastArchive returns the newest archive of the target (or of any target)
// that still exists somewhere. It returns nil when there is none.
func (s *Service) LastArchive(ctx context.Context, targetName string) (*ArchiveView, error) {
	views, err := s.ListArchives(ctx, targetName)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		if v.Location != model.LocationDoesNotExist && v.Location != model.LocationUnknown {
			return v, nil
		}
	}
	return nil, nil
}

// Prune runs the space reclaimer for one target, or all when targetName is empty.
func (s *Service) Prune(ctx context.Context, targetName string, aggressive, dryRun bool) (ReclaimResult, error) {
	var target *sqlc.Target
	if targetName != "" {
		t, err := s.target(targetName)
		if err != nil {
			return nil, err
		}
		target = t
	}
	return s.Reclaim(ctx, target, aggressive, dryRun)
}

// RestoreArchive unpacks a locally present archive into the restore folder
// and returns the destination directory.
func (s *Service) RestoreArchive(ctx context.Context, archiveID int64) (string, error) {
	a, err := s.database.FindArchiveByID(archiveID)
	if err != nil {
		return "", fmt.Errorf("finding archive %d: %w", archiveID, err)
	}
	if a == nil {
		return "", fmt.Errorf("%w: %d", ErrArchiveNotFound, archiveID)
	}

	if !s.hasLocal(a.Filename) {
		return "", fmt.Errorf("%w: %s", ErrArchiveNotLocal, a.Filename)
	}

	t, err := s.database.FindTargetByID(a.TargetID)
	if err != nil {
		return "", fmt.Errorf("finding target of archive %d: %w", archiveID, err)
	}
	if t == nil {
		return "", fmt.Errorf("%w: id %d", ErrTargetNotFound, a.TargetID)
	}

	dest := RestoreDir(s.opts.WorkingFolder, t.Name, a.Filename)
	if s.fsmgr.Exists(dest) {
		return "", fmt.Errorf("restore destination already exists: %s", dest)
	}
	if err := s.fsmgr.MkdirAll(dest); err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}

	s.logger.Info("restoring archive", "id", a.ID, "file", a.Filename, "dest", dest)
	if err := s.archiver.Extract(ctx, s.localPath(a.Filename), dest); err != nil {
		return "", fmt.Errorf("extracting %s: %w", a.Filename, err)
	}
	return dest, nil
}
