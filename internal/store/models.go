package store

import "time"

// Countdown statuses.
const (
	StatusRunning   = "running"
	StatusStopped   = "stopped"
	StatusCompleted = "completed" // reached zero, shutdown requested
	StatusFailed    = "failed"    // reached zero, shutdown request errored
	StatusAbandoned = "abandoned" // process exited mid-run
)

type Countdown struct {
	ID               int64
	RunID            string
	PlannedSeconds   int
	AddedSeconds     int
	AdjustedSeconds  int // net field edits while active
	Pauses           int
	RemainingSeconds int
	Status           string
	ShutdownError    string
	StartedAt        time.Time
	EndedAt          *time.Time
}

// TotalSeconds is the run's length including added time and edits.
func (c Countdown) TotalSeconds() int {
	return c.PlannedSeconds + c.AddedSeconds + c.AdjustedSeconds
}

// CountedSeconds is how much time actually elapsed on the countdown.
func (c Countdown) CountedSeconds() int {
	n := c.TotalSeconds() - c.RemainingSeconds
	if n < 0 {
		return 0
	}
	return n
}

// CountdownFilter is used to filter runs in queries.
type CountdownFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
}

// DailySummary aggregates finished runs per day.
type DailySummary struct {
	Date             string
	Runs             int
	Completed        int
	Stopped          int
	CompletedSeconds int64
	StoppedSeconds   int64
}
