package model

import "fmt"

// Frequency is how often a target should produce a new archive.
type Frequency string

const (
	FrequencyNever   Frequency = "never"
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Frequencies lists every valid frequency, shortest interval last.
var Frequencies = []Frequency{FrequencyNever, FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly}

// Minutes returns the fixed interval for the frequency.
// "never" maps to 0. Unknown values also map to 0.
func (f Frequency) Minutes() int {
	switch f {
	case FrequencyHourly:
		return 60
	case FrequencyDaily:
		return 60 * 24
	case FrequencyWeekly:
		return 60 * 24 * 7
	case FrequencyMonthly:
		return 60 * 24 * 30
	default:
		return 0
	}
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFrequency validates a raw frequency string.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("invalid frequency %q (want one of never, hourly, daily, weekly, monthly)", s)
	}
	return f, nil
}

// PushStrategy selects the rule used to decide when the latest archive goes remote.
type PushStrategy string

const (
	PushBudgetPriority   PushStrategy = "budget_priority"
	PushSchedulePriority PushStrategy = "schedule_priority"
	PushContentPriority  PushStrategy = "content_priority"
)

// PushStrategies lists every supported strategy.
var PushStrategies = []PushStrategy{PushBudgetPriority, PushSchedulePriority, PushContentPriority}

// Valid reports whether s is a supported strategy.
func (s PushStrategy) Valid() bool {
	switch s {
	case PushBudgetPriority, PushSchedulePriority, PushContentPriority:
		return true
	default:
		return false
	}
}

// ParsePushStrategy validates a raw strategy string.
func ParsePushStrategy(s string) (PushStrategy, error) {
	p := PushStrategy(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid push strategy %q (want one of budget_priority, schedule_priority, content_priority)", s)
	}
	return p, nil
}

// Reason records why the most recent run did or did not archive a target.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonOK            Reason = "ok"
	ReasonDiskFull      Reason = "disk_full"
	ReasonBudget        Reason = "budget"
	ReasonNothingNew    Reason = "nothing_new"
	ReasonNotActive     Reason = "not_active"
	ReasonNotScheduled  Reason = "not_scheduled"
	ReasonArchiveFailed Reason = "archive_failed"
)

// Location classifies where copies of an archive exist.
type Location string

const (
	LocationUnknown              Location = ""
	LocationLocalAndRemote       Location = "local_and_remote"
	LocationLocalOnly            Location = "local_only"
	LocationRemoteOnly           Location = "remote_only"
	LocationDoesNotExist         Location = "does_not_exist"
	LocationLocalRemoteUnknown   Location = "local_remote_unknown"
	LocationLocalAndRemoteOrphan Location = "local_and_remote_orphan"
	LocationLocalOnlyOrphan      Location = "local_only_orphan"
	LocationRemoteOnlyOrphan     Location = "remote_only_orphan"
)

// HasLocal reports whether a local copy exists.
func (l Location) HasLocal() bool {
	switch l {
	case LocationLocalAndRemote, LocationLocalOnly, LocationLocalRemoteUnknown,
		LocationLocalAndRemoteOrphan, LocationLocalOnlyOrphan:
		return true
	default:
		return false
	}
}

// HasRemote reports whether a remote copy is known to exist.
func (l Location) HasRemote() bool {
	switch l {
	case LocationLocalAndRemote, LocationRemoteOnly,
		LocationLocalAndRemoteOrphan, LocationRemoteOnlyOrphan:
		return true
	default:
		return false
	}
}

// IsOrphan reports whether the artifact has no bookkeeping record.
func (l Location) IsOrphan() bool {
	switch l {
	case LocationLocalAndRemoteOrphan, LocationLocalOnlyOrphan, LocationRemoteOnlyOrphan:
		return true
	default:
		return false
	}
}

// Outcome is the terminal state of the archive step for one target in a run.
type Outcome string

const (
	OutcomeNotActive         Outcome = "not_active"
	OutcomeNotScheduled      Outcome = "not_scheduled"
	OutcomeNoNewFiles        Outcome = "no_new_files"
	OutcomeArchiveCreated    Outcome = "archive_created"
	OutcomeInsufficientSpace Outcome = "insufficient_space"
	OutcomeOtherFailure      Outcome = "other_failure"
	OutcomeDryRun            Outcome = "dry_run"
)

// Outcomes lists outcomes in summary display order.
var Outcomes = []Outcome{
	OutcomeArchiveCreated,
	OutcomeNoNewFiles,
	OutcomeNotScheduled,
	OutcomeNotActive,
	OutcomeInsufficientSpace,
	OutcomeOtherFailure,
	OutcomeDryRun,
}

// Reason maps an archive outcome to the reason recorded on the target.
func (o Outcome) Reason() Reason {
	switch o {
	case OutcomeArchiveCreated:
		return ReasonOK
	case OutcomeNoNewFiles:
		return ReasonNothingNew
	case OutcomeNotScheduled:
		return ReasonNotScheduled
	case OutcomeNotActive:
		return ReasonNotActive
	case OutcomeInsufficientSpace:
		return ReasonDiskFull
	case OutcomeOtherFailure:
		return ReasonArchiveFailed
	default:
		return ReasonNone
	}
}
