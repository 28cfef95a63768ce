package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Status is the simulated outcome state of a single stage.
type Status string

// Stage status values. A stage that has never been part of a run is unset.
const (
	StatusUnset   Status = ""
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Snapshot maps stage ids to their status at one point of a run.
type Snapshot map[string]Status

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Count returns how many stages currently have the given status.
func (s Snapshot) Count(status Status) int {
	n := 0
	for _, v := range s {
		if v == status {
			n++
		}
	}
	return n
}

// Outcome describes how a run ended.
type Outcome string

// Run outcomes
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeAborted   Outcome = "aborted" // context cancelled before the last stage
)

// Result is the terminal state of one run.
type Result struct {
	ID          uuid.UUID `json:"id"`
	Outcome     Outcome   `json:"outcome"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Statuses    Snapshot  `json:"statuses"`
	Snapshots   int       `json:"snapshots"` // number of snapshot events published
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration returns the wall-clock length of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// EventKind distinguishes runner events.
type EventKind string

// Event kinds
const (
	EventSnapshot EventKind = "snapshot"
	EventFinished EventKind = "finished"
)

// Event is delivered to subscribers. Snapshot events carry the full status
// mapping after a change; the finished event carries the result.
type Event struct {
	Kind     EventKind `json:"kind"`
	RunID    string    `json:"run_id"`
	Seq      int       `json:"seq"`                // 0 for the reset snapshot
	StageID  string    `json:"stage_id,omitempty"` // stage changed by this snapshot
	Statuses Snapshot  `json:"statuses"`
	Running  bool      `json:"running"`
	Result   *Result   `json:"result,omitempty"`
}
