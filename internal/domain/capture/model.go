package capture

import (
	"time"

	"github.com/ganot/sitewatch/internal/domain/website"
)

// Progress is one snapshot from the engine's screenshot-progress stream.
// Delivery is ordered per subscription but duplicates and gaps are
// tolerated; only IsComplete is load-bearing, and it is always the last
// event of a run.
type Progress struct {
	Total          int      `json:"total"`
	Completed      int      `json:"completed"`
	CurrentWebsite string   `json:"current_website"`
	CurrentID      int64    `json:"current_id"`
	IsComplete     bool     `json:"is_complete"`
	Errors         []string `json:"errors"`
}

// JobStatus is the bulk job lifecycle state.
type JobStatus string

const (
	StatusIdle       JobStatus = "idle"
	StatusRunning    JobStatus = "running"
	StatusCancelling JobStatus = "cancelling"
	StatusComplete   JobStatus = "complete"
)

// Job is the coordinator's view of the current (or just-finished) bulk run.
type Job struct {
	RunID         string    `json:"run_id,omitempty"`
	Status        JobStatus `json:"status"`
	Total         int       `json:"total"`
	Completed     int       `json:"completed"`
	CurrentTarget string    `json:"current_target,omitempty"`
	CurrentID     int64     `json:"current_id,omitempty"`
	Errors        []string  `json:"errors,omitempty"`
	StartedAt     time.Time `json:"started_at,omitzero"`
}

// CheckResult is the engine's answer to a single-site health check.
type CheckResult struct {
	Status int               `json:"status"`
	Vitals website.WebVitals `json:"vitals"`
}

// Run outcomes recorded in the bulk-run history.
const (
	OutcomeComplete  = "complete"
	OutcomeDegraded  = "degraded"
	OutcomeCancelled = "cancelled"
)

// Run is one finished bulk operation, persisted for the history view.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Completed  int       `json:"completed"`
	Errors     []string  `json:"errors,omitempty"`
	Outcome    string    `json:"outcome"`
}
