package bckt

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"
)

const (
	// RetentionDays is the remote retention horizon; older objects are aged out.
	RetentionDays = 180
	// retentionMonths converts a monthly price to the cost of one retention horizon.
	retentionMonths  = 6
	retentionMinutes = float64(RetentionDays * 24 * 60)
	kbPerGB          = 1024.0 * 1024.0
)

// RemoteStats summarizes a target's remote objects.
type RemoteStats struct {
	// Count is every object of the target.
	Count int
	// CurrentCount is objects younger than RetentionDays.
	CurrentCount int
	// Aged are objects at or past RetentionDays.
	Aged []RemoteObject
	// MaxLastModified is the newest object's time; zero when there are none.
	MaxLastModified time.Time
}

// ComputeRemoteStats builds the stats of targetName from a full listing.
func ComputeRemoteStats(objects []RemoteObject, targetName string, now time.Time) RemoteStats {
	var stats RemoteStats
	for _, obj := range objects {
		if !ObjectBelongsToTarget(obj.Key, targetName) {
			continue
		}
		stats.Count++
		if obj.LastModified.After(stats.MaxLastModified) {
			stats.MaxLastModified = obj.LastModified
		}
		if now.Sub(obj.LastModified) >= RetentionDays*24*time.Hour {
			stats.Aged = append(stats.Aged, obj)
		} else {
			stats.CurrentCount++
		}
	}
	return stats
}

// PushInput is everything the push decision depends on.
type PushInput struct {
	Strategy       model.PushStrategy
	Frequency      model.Frequency
	BudgetMax      float64
	Stats          RemoteStats
	ExpectedSizeKB int64
	CostPerGBMonth float64
	Now            time.Time
}

// PushDecision is the result of EvaluatePush.
type PushDecision struct {
	Due bool
	// BudgetExhausted is set when the budget cannot cover a single object.
	BudgetExhausted bool
	// Misconfigured is set for an unknown strategy.
	Misconfigured   bool
	MaxObjects      int
	IntervalMinutes float64
	SinceMinutes    float64
	Message         string
}

// EvaluatePush decides whether the latest archive is due for upload.
// With no remote objects yet a push is always due.
func EvaluatePush(in PushInput) PushDecision {
	if in.Stats.MaxLastModified.IsZero() {
		return PushDecision{Due: true, Message: "no remote objects found, pushing the first"}
	}

	since := in.Now.Sub(in.Stats.MaxLastModified).Minutes()
	d := PushDecision{SinceMinutes: since}

	switch in.Strategy {
	case model.PushBudgetPriority:
		sizeGB := float64(in.ExpectedSizeKB) / kbPerGB
		lifetimeCost := sizeGB * in.CostPerGBMonth * retentionMonths
		if lifetimeCost <= 0 {
			// an empty archive costs nothing to keep
			d.MaxObjects = math.MaxInt32
		} else {
			d.MaxObjects = int(math.Floor(in.BudgetMax / lifetimeCost))
		}
		if d.MaxObjects == 0 {
			d.BudgetExhausted = true
			d.Message = fmt.Sprintf("one archive of %.2f GB costs $%.4f over %d days, over the $%.2f budget",
				sizeGB, lifetimeCost, RetentionDays, in.BudgetMax)
			return d
		}
		d.IntervalMinutes = retentionMinutes / float64(d.MaxObjects)
		current := in.Stats.Count - len(in.Stats.Aged)
		d.Due = current < d.MaxObjects && since > d.IntervalMinutes
		d.Message = fmt.Sprintf("%.2f GB archives on a $%.2f budget allow %d objects, one every %s; last push %s ago, %d current objects",
			sizeGB, in.BudgetMax, d.MaxObjects, minutesString(d.IntervalMinutes), minutesString(since), current)

	case model.PushSchedulePriority:
		freq := float64(in.Frequency.Minutes())
		d.IntervalMinutes = freq
		d.Due = since >= freq
		d.Message = fmt.Sprintf("push period is %s (%s); last push %s ago", in.Frequency, minutesString(freq), minutesString(since))

	case model.PushContentPriority:
		d.Due = true
		d.Message = "content priority: every new archive is pushed"

	default:
		d.Misconfigured = true
		d.Message = fmt.Sprintf("unknown push strategy %q", in.Strategy)
	}
	return d
}

func minutesString(m float64) string {
	return (time.Duration(m * float64(time.Minute))).Round(time.Minute).String()
}

// ExpectedSizeKB estimates the size of the next remote object: the last
// archive's compressed size, else the average compressed size, else the
// current uncompressed tree size.
func (s *Service) ExpectedSizeKB(target *sqlc.Target, archives []*sqlc.Archive) (int64, error) {
	if len(archives) > 0 && archives[0].SizeKb > 0 {
		return archives[0].SizeKb, nil
	}

	var total, n int64
	for _, a := range archives {
		if a.SizeKb > 0 {
			total += a.SizeKb
			n++
		}
	}
	if n > 0 {
		return total / n, nil
	}

	return s.uncompressedSizeKB(target)
}

// PushPlan is a push decision for a target together with its inputs.
type PushPlan struct {
	Target      *sqlc.Target
	LastArchive *sqlc.Archive
	Stats       RemoteStats
	Decision    PushDecision
}

// PlanPush evaluates the push decision for target against the given listing.
func (s *Service) PlanPush(target *sqlc.Target, objects []RemoteObject) (*PushPlan, error) {
	archives, err := s.database.ListArchives(target)
	if err != nil {
		return nil, fmt.Errorf("listing archives for %s: %w", target.Name, err)
	}

	plan := &PushPlan{
		Target: target,
		Stats:  ComputeRemoteStats(objects, target.Name, s.clock.Now()),
	}
	if len(archives) > 0 {
		plan.LastArchive = archives[0]
	}

	in := PushInput{
		Strategy:       target.PushStrategy,
		Frequency:      target.Frequency,
		BudgetMax:      target.BudgetMax,
		Stats:          plan.Stats,
		CostPerGBMonth: s.opts.StorageCostPerGBMonth,
		Now:            s.clock.Now(),
	}
	if target.PushStrategy == model.PushBudgetPriority && !plan.Stats.MaxLastModified.IsZero() {
		in.ExpectedSizeKB, err = s.ExpectedSizeKB(target, archives)
		if err != nil {
			return nil, err
		}
	}
	plan.Decision = EvaluatePush(in)
	return plan, nil
}

// PushResult reports what the push step did for one target.
type PushResult struct {
	Pushed          bool
	Key             string
	Message         string
	BudgetExhausted bool
	AgedDeleted     int
	AgedFailed      int
}

// PushLatest uploads the target's newest archive if it is not remote yet and
// the push is due (or force is set). Aged remote objects are deleted only
// after a push succeeded. Paused targets are never pushed or cleaned.
func (s *Service) PushLatest(ctx context.Context, target *sqlc.Target, force, dryRun bool) (*PushResult, error) {
	result := &PushResult{}

	if !target.IsActive {
		result.Message = "target is paused"
		return result, nil
	}

	objects, err := s.remoteObjects(ctx)
	if err != nil {
		return nil, &PushFailure{Target: target.Name, Err: err}
	}

	plan, err := s.PlanPush(target, objects)
	if err != nil {
		return nil, err
	}
	last := plan.LastArchive
	result.BudgetExhausted = plan.Decision.BudgetExhausted

	switch {
	case last == nil:
		result.Message = "no archive to push"
		return result, nil
	case last.IsRemote:
		result.Message = "latest archive already remote"
		return result, nil
	}

	if !force && !plan.Decision.Due {
		result.Message = plan.Decision.Message
		if plan.Decision.Misconfigured {
			s.logger.Error("push strategy misconfigured", "target", target.Name, "strategy", target.PushStrategy)
		} else {
			s.logger.Info("push not due", "target", target.Name, "why", plan.Decision.Message)
		}
		return result, nil
	}

	localPath := s.localPath(last.Filename)
	if !s.fsmgr.Exists(localPath) {
		result.Message = "latest archive is missing locally"
		s.logger.Warn("cannot push, local archive missing", "target", target.Name, "file", localPath)
		return result, nil
	}

	key := RemoteKey(target.Name, last.Filename)
	result.Key = key

	if dryRun {
		result.Message = "would push " + key
		s.logger.Info("would push archive", "target", target.Name, "key", key, "forced", force, "why", plan.Decision.Message)
		return result, nil
	}

	s.logger.Info("pushing archive", "target", target.Name, "key", key,
		"size", humanize.IBytes(uint64(last.SizeKb)*1024), "forced", force)
	if err := s.upload(ctx, localPath, key); err != nil {
		return nil, &PushFailure{Target: target.Name, Key: key, Err: err}
	}
	s.invalidateRemote()

	if err := s.database.SetArchiveRemote(last, true, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("marking %s remote: %w", last.Filename, err)
	}
	result.Pushed = true
	result.Message = "pushed " + key

	result.AgedDeleted, result.AgedFailed = s.cleanupAged(ctx, target, plan.Stats)
	return result, nil
}

// upload streams a local file to key, through the encryptor when enabled.
// Recorded sizes are whole KiB, so the byte length is left to the vault.
func (s *Service) upload(ctx context.Context, localPath, key string) error {
	f, err := s.fsmgr.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	if s.encryptor == nil || !s.encryptor.Enabled() {
		return s.vault.Put(ctx, key, f, -1)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.encryptor.Encrypt(f, pw))
	}()
	err = s.vault.Put(ctx, key, pr, -1)
	pr.CloseWithError(err)
	return err
}

// cleanupAged deletes the target's remote objects past the retention horizon.
// It runs only after a successful push, so a current object always remains.
func (s *Service) cleanupAged(ctx context.Context, target *sqlc.Target, stats RemoteStats) (deleted, failed int) {
	if len(stats.Aged) == 0 {
		return 0, 0
	}

	keys := make([]string, 0, len(stats.Aged))
	for _, obj := range stats.Aged {
		keys = append(keys, obj.Key)
	}

	s.logger.Warn("deleting aged remote objects", "target", target.Name, "count", len(keys))
	results, err := s.vault.Delete(ctx, keys)
	if err != nil {
		s.logger.Error("remote cleanup failed", "target", target.Name, "error", err)
		return 0, len(keys)
	}
	s.invalidateRemote()

	for _, r := range results {
		if r.Err != nil {
			failed++
			s.logger.Error("remote delete failed", "key", r.Key, "error", r.Err)
			continue
		}
		deleted++
		s.logger.Info("remote object deleted", "key", r.Key)
	}
	return deleted, failed
}
