package batch

import "fmt"

// Status is the lifecycle state of one batch run.
type Status string

const (
	StatusIdle                Status = "idle"
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusCancelled           Status = "cancelled"
	StatusFailed              Status = "failed"
)

// allowedTransitions enforces batch status transitions.
var allowedTransitions = map[Status][]Status{
	StatusIdle:                {StatusRunning},
	StatusRunning:             {StatusCompleted, StatusCompletedWithErrors, StatusCancelled, StatusFailed},
	StatusCompleted:           {},
	StatusCompletedWithErrors: {},
	StatusCancelled:           {},
	StatusFailed:              {},
}

// CanTransitionTo checks if a status transition is allowed.
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// RowResult reports the outcome of one dataset row.
type RowResult struct {
	Index    int    `json:"index"`
	FileName string `json:"file_name,omitempty"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}

// Result is the outcome of one generate call: the archive (nil when the run
// was cancelled or archive assembly failed), the per-row report, and the
// terminal status. A batch where every row failed still carries a valid,
// empty archive; callers must check Failed.
type Result struct {
	Archive   []byte      `json:"-"`
	Rows      []RowResult `json:"rows"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Status    Status      `json:"status"`
}

// ProgressFunc receives fractional completion in (0,1], monotonically
// non-decreasing, once after each processed row. May be nil.
type ProgressFunc func(fraction float64)

// BatchTooLargeError reports a dataset exceeding the configured row cap. The
// batch is rejected before any row is processed.
type BatchTooLargeError struct {
	Rows    int
	MaxRows int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch: %d rows exceeds the configured maximum of %d", e.Rows, e.MaxRows)
}

// ArchiveError reports that the output archive could not be assembled. This
// is fatal for the whole batch: with a single-archive contract there is no
// way to deliver partial output.
type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("batch: archive assembly failed: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
