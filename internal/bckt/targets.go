package bckt

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"
)

// Default policy for new targets.
const (
	DefaultFrequency    = model.FrequencyDaily
	DefaultBudgetMax    = 0.01
	DefaultPushStrategy = model.PushBudgetPriority
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewTarget describes a target to register.
type NewTarget struct {
	Name         string  `validate:"required,max=255"`
	Path         string  `validate:"required"`
	Excludes     string
	Frequency    string
	BudgetMax    float64 `validate:"gte=0"`
	PushStrategy string
}

// TargetEdit holds the fields to change; nil fields are left alone.
type TargetEdit struct {
	Excludes     *string
	Frequency    *string
	BudgetMax    *float64 `validate:"omitnil,gte=0"`
	PushStrategy *string
}

func parsePolicy(freq, strategy string) (model.Frequency, model.PushStrategy, error) {
	f, err := model.ParseFrequency(freq)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidFrequency, err)
	}
	p, err := model.ParsePushStrategy(strategy)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidPushStrategy, err)
	}
	return f, p, nil
}

// AddTarget registers a new active target. The path must exist; an empty
// name is derived from the path and empty policy fields take the defaults.
func (s *Service) AddTarget(nt NewTarget) (*sqlc.Target, error) {
	resolved, err := s.fsmgr.Resolve(nt.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", nt.Path, err)
	}
	nt.Path = resolved

	if nt.Name == "" {
		nt.Name = DefaultTargetName(resolved)
	}
	if nt.Frequency == "" {
		nt.Frequency = string(DefaultFrequency)
	}
	if nt.PushStrategy == "" {
		nt.PushStrategy = string(DefaultPushStrategy)
	}
	if err := validate.Struct(nt); err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}

	freq, strategy, err := parsePolicy(nt.Frequency, nt.PushStrategy)
	if err != nil {
		return nil, err
	}

	existing, err := s.database.FindTargetByName(nt.Name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing target: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetExists, nt.Name)
	}

	t, err := s.database.CreateTarget(nt.Name, nt.Path, TargetPolicy{
		Excludes:     nt.Excludes,
		Frequency:    freq,
		BudgetMax:    nt.BudgetMax,
		PushStrategy: strategy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating target: %w", err)
	}

	s.logger.Info("target added", "name", t.Name, "path", t.Path, "frequency", t.Frequency, "strategy", t.PushStrategy)
	return t, nil
}

// EditTarget changes the given policy fields of a target.
func (s *Service) EditTarget(name string, edit TargetEdit) (*sqlc.Target, error) {
	t, err := s.target(name)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(edit); err != nil {
		return nil, fmt.Errorf("invalid edit: %w", err)
	}

	freq, strategy := string(t.Frequency), string(t.PushStrategy)
	policy := TargetPolicy{Excludes: t.Excludes, BudgetMax: t.BudgetMax}
	if edit.Excludes != nil {
		policy.Excludes = *edit.Excludes
	}
	if edit.Frequency != nil {
		freq = *edit.Frequency
	}
	if edit.BudgetMax != nil {
		policy.BudgetMax = *edit.BudgetMax
	}
	if edit.PushStrategy != nil {
		strategy = *edit.PushStrategy
	}
	policy.Frequency, policy.PushStrategy, err = parsePolicy(freq, strategy)
	if err != nil {
		return nil, err
	}

	if err := s.database.UpdateTargetPolicy(t, policy); err != nil {
		return nil, fmt.Errorf("updating target: %w", err)
	}
	if edit.Excludes != nil {
		s.invalidateLocal(t.Name)
	}

	s.logger.Info("target edited", "name", t.Name, "frequency", t.Frequency, "budget", t.BudgetMax,
		"strategy", t.PushStrategy, "excludes", t.Excludes)
	return t, nil
}

// SetTargetActive pauses (false) or unpauses (true) a target.
func (s *Service) SetTargetActive(name string, active bool) (*sqlc.Target, error) {
	t, err := s.target(name)
	if err != nil {
		return nil, err
	}
	if err := s.database.SetTargetActive(t, active); err != nil {
		return nil, fmt.Errorf("updating target: %w", err)
	}
	s.logger.Info("target active changed", "name", t.Name, "active", active)
	return t, nil
}

// TargetStatus is the status line of a target.
type TargetStatus struct {
	Target       *sqlc.Target
	LastArchive  *sqlc.Archive
	ArchiveCount int
	// SinceLast is minutes since the last archive's pre-marker; -1 without archives.
	SinceLast    float64
	CyclesBehind int
	LocalCount   int
	RemoteCount  int
	MonthlyCost  float64
	// LastPushedAt is the newest remote push time; zero when nothing was pushed.
	LastPushedAt time.Time

	// Filled only by a detailed status.
	Changes        *ChangeReport
	Push           *PushPlan
	WouldPush      bool
	UncompressedKB int64
}

// TargetStatuses returns the status of one target, or of every target
// sorted by path. With detailed set, the change detector and push engine
// are run read-only for active targets.
func (s *Service) TargetStatuses(ctx context.Context, name string, detailed bool) ([]*TargetStatus, error) {
	targets, err := s.targets(name)
	if err != nil {
		return nil, err
	}
	idx, objects := s.remoteIndex(ctx)
	now := s.clock.Now()

	statuses := make([]*TargetStatus, 0, len(targets))
	for _, t := range targets {
		st, err := s.targetStatus(t, idx, objects, now, detailed)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}

	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].Target.Path < statuses[j].Target.Path
	})
	return statuses, nil
}

func (s *Service) targetStatus(t *sqlc.Target, idx RemoteIndex, objects []RemoteObject, now time.Time, detailed bool) (*TargetStatus, error) {
	archives, err := s.database.ListArchives(t)
	if err != nil {
		return nil, fmt.Errorf("listing archives for %s: %w", t.Name, err)
	}

	st := &TargetStatus{Target: t, ArchiveCount: len(archives), SinceLast: -1}
	for _, a := range archives {
		loc := s.locate(a, idx).Location
		if loc.HasLocal() {
			st.LocalCount++
		}
		if a.RemotePushAt.Valid && a.RemotePushAt.Time.After(st.LastPushedAt) {
			st.LastPushedAt = a.RemotePushAt.Time
		}
		if loc.HasRemote() {
			st.RemoteCount++
			st.MonthlyCost += s.MonthlyCost(a.SizeKb * 1024)
		}
	}

	if len(archives) > 0 {
		st.LastArchive = archives[0]
		st.SinceLast = now.Sub(archiveTime(st.LastArchive)).Minutes()
		if freq := t.Frequency.Minutes(); freq != 0 {
			st.CyclesBehind = int(math.Floor(st.SinceLast / float64(freq)))
		}
	}

	if !detailed || !t.IsActive {
		return st, nil
	}

	st.Changes, err = s.HasNewFiles(t)
	if err != nil {
		return nil, err
	}
	if idx != nil {
		st.Push, err = s.PlanPush(t, objects)
		if err != nil {
			return nil, err
		}
		lastPushed := st.LastArchive != nil && st.LastArchive.IsRemote
		st.WouldPush = st.Push.Decision.Due && (!lastPushed || st.Changes.HasNewFiles)
	}
	st.UncompressedKB, err = s.uncompressedSizeKB(t)
	if err != nil {
		s.logger.Warn("sizing target", "target", t.Name, "error", err)
	}
	return st, nil
}

// MonthlyCost is the remote storage price of an object of sizeBytes per month.
func (s *Service) MonthlyCost(sizeBytes int64) float64 {
	return s.opts.StorageCostPerGBMonth * float64(sizeBytes) / (1024 * 1024 * 1024)
}
