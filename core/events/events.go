package events

import "time"

// Stage names used by the planning pipeline.
const (
	StagePredict  = "predict"
	StageSchedule = "schedule"
	StageAllocate = "allocate"
)

// Event is any planning event. All events carry the id of their run.
type Event interface {
	Run() string
}

// StageEvent is emitted when a pipeline stage finishes.
type StageEvent struct {
	RunID    string
	Stage    string
	Items    int
	Duration time.Duration
	Time     time.Time
}

func (e StageEvent) Run() string { return e.RunID }

// SkipEvent lists the units a stage left out for one reason. A stage emits
// at most one per reason, so the event count of a run does not grow with
// the rosters. Reason is "insufficient_data", "unknown_unit" or
// "unallocated".
type SkipEvent struct {
	RunID   string
	Stage   string
	UnitIDs []string
	Reason  string
	Time    time.Time
}

func (e SkipEvent) Run() string { return e.RunID }

// Skip reasons.
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonUnknownUnit      = "unknown_unit"
	ReasonUnallocated      = "unallocated"
)
