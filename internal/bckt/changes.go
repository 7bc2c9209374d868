package bckt

import (
	"fmt"
	"strings"
	"time"

	"bckt-go/internal/database/sqlc"
)

// SplitExcludes splits a colon-delimited exclude list, dropping blank entries.
func SplitExcludes(excludes string) []string {
	var patterns []string
	for _, p := range strings.Split(excludes, ":") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// ChangeReport explains a HasNewFiles decision.
type ChangeReport struct {
	HasNewFiles bool
	// Anchor is the pre-marker the scan was measured from; zero when there was none.
	Anchor   time.Time
	Modified int
	Excluded int
	New      int
	Message  string
}

// HasNewFiles reports whether target has content modified since its last
// archive. Without a valid anchor (no pre-marker, or no archive row for it)
// every file counts as new.
func (s *Service) HasNewFiles(target *sqlc.Target) (*ChangeReport, error) {
	if !target.PreMarkerAt.Valid {
		return &ChangeReport{
			HasNewFiles: true,
			Message:     "no pre-marker recorded, all files considered new",
		}, nil
	}

	anchor := target.PreMarkerAt.Time
	archive, err := s.database.FindArchiveForPreMarker(target, anchor)
	if err != nil {
		return nil, fmt.Errorf("finding archive for pre-marker: %w", err)
	}
	if archive == nil {
		return &ChangeReport{
			HasNewFiles: true,
			Anchor:      anchor,
			Message:     "no archive matches the pre-marker, all files considered new",
		}, nil
	}

	modified, err := cached(s.cache, s.logger,
		CacheKey{Context: LocalContext, Kind: StatModifiedFiles, Target: target.Name},
		func() ([]string, error) {
			return s.fsmgr.ModifiedSince(target.Path, anchor)
		})
	if err != nil {
		return nil, fmt.Errorf("scanning %s for modified files: %w", target.Path, err)
	}

	excluded, err := s.excludedFiles(target)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(excluded))
	for _, f := range excluded {
		skip[f] = struct{}{}
	}

	fresh := 0
	for _, f := range modified {
		if _, ok := skip[f]; !ok {
			fresh++
		}
	}

	report := &ChangeReport{
		HasNewFiles: fresh > 0,
		Anchor:      anchor,
		Modified:    len(modified),
		Excluded:    len(modified) - fresh,
		New:         fresh,
		Message:     fmt.Sprintf("%d new files since %s", fresh, anchor.Format(time.RFC3339)),
	}
	s.logger.Debug("change detection", "target", target.Name, "modified", report.Modified, "excluded", report.Excluded, "new", report.New)
	return report, nil
}

// excludedFiles expands the target's exclude patterns, through the stats cache.
func (s *Service) excludedFiles(target *sqlc.Target) ([]string, error) {
	patterns := SplitExcludes(target.Excludes)
	if len(patterns) == 0 {
		return nil, nil
	}

	files, err := cached(s.cache, s.logger,
		CacheKey{Context: LocalContext, Kind: StatExcludedFiles, Target: target.Name},
		func() ([]string, error) {
			return s.fsmgr.ExpandExcludes(target.Path, patterns)
		})
	if err != nil {
		return nil, fmt.Errorf("expanding excludes for %s: %w", target.Name, err)
	}
	return files, nil
}

// uncompressedSizeKB is the target tree size minus excluded files, through the stats cache.
func (s *Service) uncompressedSizeKB(target *sqlc.Target) (int64, error) {
	size, err := cached(s.cache, s.logger,
		CacheKey{Context: LocalContext, Kind: StatTreeSize, Target: target.Name},
		func() (int64, error) {
			total, err := s.fsmgr.TreeSizeKB(target.Path)
			if err != nil {
				return 0, err
			}
			excluded, err := s.excludedFiles(target)
			if err != nil {
				return 0, err
			}
			excludedKB, err := s.fsmgr.FilesSizeKB(excluded)
			if err != nil {
				return 0, err
			}
			if excludedKB > total {
				return 0, nil
			}
			return total - excludedKB, nil
		})
	if err != nil {
		return 0, fmt.Errorf("sizing %s: %w", target.Path, err)
	}
	return size, nil
}
