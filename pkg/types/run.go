package types

import "time"

// Run kinds. A run is either a training launch or an inference launch.
const (
	KindTrain = "train"
	KindInfer = "infer"
)

// validKinds is the set of recognized run kinds.
var validKinds = map[string]bool{
	KindTrain: true,
	KindInfer: true,
}

// Run states. A run progresses through these states during its lifecycle.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
	StateCanceled  = "canceled"
)

// validStates is the set of recognized run state values.
var validStates = map[string]bool{
	StatePending:   true,
	StateRunning:   true,
	StateSucceeded: true,
	StateFailed:    true,
	StateCanceled:  true,
}

// terminalStates are states from which no further transition is allowed.
var terminalStates = map[string]bool{
	StateSucceeded: true,
	StateFailed:    true,
	StateCanceled:  true,
}

// Run records a single launch of the external training or inference
// script. A record is created before the process starts and survives
// failed launches, so the registry is a complete history.
type Run struct {
	RunID       string    `json:"run_id"`       // UUID v7, generated on creation.
	Kind        string    `json:"kind"`         // train or infer.
	ExpVersion  string    `json:"exp_version"`  // Experiment version label, e.g. "v3_resnet50".
	State       string    `json:"state"`        // One of the State constants.
	Command     []string  `json:"command"`      // Full argv the script was launched with.
	OutputDir   string    `json:"output_dir"`   // Directory the script writes artifacts to.
	MetricsPath string    `json:"metrics_path"` // Metrics file ingested after completion, if any.
	LogPath     string    `json:"log_path"`     // Captured stdout/stderr of the script.
	ExitCode    int       `json:"exit_code"`    // Script exit code; meaningful in terminal states.
	Notes       string    `json:"notes"`        // Free-form operator notes.
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// ValidKind reports whether kind is a recognized run kind.
func ValidKind(kind string) bool {
	return validKinds[kind]
}

// ValidState reports whether state is a recognized run state.
func ValidState(state string) bool {
	return validStates[state]
}

// Terminal reports whether the run is in a terminal state.
func (r *Run) Terminal() bool {
	return terminalStates[r.State]
}

// Start marks the run as running. Returns ErrInvalidTransition unless the
// current state is pending.
func (r *Run) Start(now time.Time) error {
	if r.State != StatePending {
		return ErrInvalidTransition
	}
	r.State = StateRunning
	r.StartedAt = now
	return nil
}

// Finish marks the run as succeeded or failed based on the script's exit
// code. Returns ErrInvalidTransition unless the current state is running.
func (r *Run) Finish(exitCode int, now time.Time) error {
	if r.State != StateRunning {
		return ErrInvalidTransition
	}
	if exitCode == 0 {
		r.State = StateSucceeded
	} else {
		r.State = StateFailed
	}
	r.ExitCode = exitCode
	r.FinishedAt = now
	return nil
}

// Cancel marks the run as canceled. Allowed from pending and running;
// terminal states are never revived. Idempotent when already canceled.
func (r *Run) Cancel(now time.Time) error {
	if r.State == StateCanceled {
		return nil
	}
	if r.Terminal() {
		return ErrInvalidTransition
	}
	r.State = StateCanceled
	r.FinishedAt = now
	return nil
}

// Duration returns the wall-clock time between start and finish, or zero
// if the run has not both started and finished.
func (r *Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
