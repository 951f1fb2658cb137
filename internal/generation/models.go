package generation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/batch"
)

// ErrJobNotFound is returned when a job id is unknown or belongs to another owner.
var ErrJobNotFound = errors.New("generation: job not found")

// ErrJobNotFinished is returned when an archive is requested before a job completed.
var ErrJobNotFinished = errors.New("generation: job not finished")

// ErrNoArchive is returned when a finished job produced no archive.
var ErrNoArchive = errors.New("generation: job has no archive")

// Job tracks one batch generation run from submission to archive retention.
type Job struct {
	ID          uuid.UUID         `json:"id"`
	OwnerID     string            `json:"owner_id"`
	TemplateID  *uuid.UUID        `json:"template_id,omitempty"`
	Status      batch.Status      `json:"status"`
	Progress    float64           `json:"progress"`
	TotalRows   int               `json:"total_rows"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	RowResults  []batch.RowResult `json:"row_results,omitempty"`
	ArchiveKey  string            `json:"-"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// clone returns a snapshot safe to hand out while the run mutates the original.
func (j *Job) clone() *Job {
	out := *j
	if j.RowResults != nil {
		out.RowResults = make([]batch.RowResult, len(j.RowResults))
		copy(out.RowResults, j.RowResults)
	}
	return &out
}

// ProgressMessage is pushed to WebSocket subscribers as a job advances.
type ProgressMessage struct {
	JobID     uuid.UUID    `json:"job_id"`
	Status    batch.Status `json:"status"`
	Progress  float64      `json:"progress"`
	Timestamp time.Time    `json:"timestamp"`
}
