package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/batch"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/binding"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/layout"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/storage"
)

// Generator runs a batch and returns its result. *batch.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, l *layout.Layout, rows []binding.DataRow, bindings binding.BindingMap, progress batch.ProgressFunc) (*batch.Result, error)
	MaxRows() int
}

// Service owns the job registry. Jobs are held in memory; the archives they
// produce are persisted through the configured storage backend until the
// retention sweep removes them.
type Service struct {
	generator Generator
	store     storage.ArchiveStore
	hub       *Hub
	logger    *zap.Logger
	retention time.Duration

	mu      sync.RWMutex
	jobs    map[uuid.UUID]*Job
	cancels map[uuid.UUID]context.CancelFunc
}

// NewService creates the job service. retention bounds how long finished
// archives stay downloadable.
func NewService(generator Generator, store storage.ArchiveStore, hub *Hub, retention time.Duration, logger *zap.Logger) *Service {
	return &Service{
		generator: generator,
		store:     store,
		hub:       hub,
		logger:    logger,
		retention: retention,
		jobs:      make(map[uuid.UUID]*Job),
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// JobRequest carries everything a run needs. Layout is already resolved by the
// caller, either from a stored template or an inline payload.
type JobRequest struct {
	OwnerID    string
	TemplateID *uuid.UUID
	Layout     *layout.Layout
	Rows       []binding.DataRow
	Bindings   binding.BindingMap
}

// Start registers a job and launches the run in the background. Validation
// failures (bad bindings, dataset over the row cap) surface synchronously so
// the caller gets a 4xx instead of a failed job.
func (s *Service) Start(req JobRequest) (*Job, error) {
	if req.Layout == nil {
		return nil, fmt.Errorf("generation: layout is required")
	}
	if max := s.generator.MaxRows(); len(req.Rows) > max {
		return nil, &batch.BatchTooLargeError{Rows: len(req.Rows), MaxRows: max}
	}
	if err := req.Bindings.Validate(req.Layout); err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}

	job := &Job{
		ID:         uuid.New(),
		OwnerID:    req.OwnerID,
		TemplateID: req.TemplateID,
		Status:     batch.StatusIdle,
		TotalRows:  len(req.Rows),
		CreatedAt:  time.Now().UTC(),
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	s.transition(job.ID, batch.StatusRunning)

	s.logger.Info("generation job started",
		zap.String("job_id", job.ID.String()),
		zap.String("owner_id", req.OwnerID),
		zap.Int("rows", len(req.Rows)))

	go s.run(ctx, job.ID, req)

	return s.snapshot(job.ID)
}

func (s *Service) run(ctx context.Context, jobID uuid.UUID, req JobRequest) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.cancels[jobID]; ok {
			cancel()
			delete(s.cancels, jobID)
		}
		s.mu.Unlock()
	}()

	progress := func(fraction float64) {
		s.mu.Lock()
		job, ok := s.jobs[jobID]
		if ok {
			job.Progress = fraction
		}
		s.mu.Unlock()
		if ok {
			s.hub.Publish(ProgressMessage{
				JobID:     jobID,
				Status:    batch.StatusRunning,
				Progress:  fraction,
				Timestamp: time.Now().UTC(),
			})
		}
	}

	result, err := s.generator.Generate(ctx, req.Layout, req.Rows, req.Bindings, progress)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("generation job failed",
			zap.String("job_id", jobID.String()), zap.Error(err))
	}

	s.finish(jobID, result, err)
}

// finish records the outcome, persists the archive and emits the final
// progress frame.
func (s *Service) finish(jobID uuid.UUID, result *batch.Result, runErr error) {
	status := batch.StatusFailed
	if result != nil {
		status = result.Status
	}

	var archiveKey string
	if result != nil && result.Archive != nil {
		archiveKey = jobID.String() + ".zip"
		if err := s.store.Save(context.Background(), archiveKey, bytes.NewReader(result.Archive)); err != nil {
			s.logger.Error("failed to persist archive",
				zap.String("job_id", jobID.String()), zap.Error(err))
			status = batch.StatusFailed
			archiveKey = ""
			if runErr == nil {
				runErr = err
			}
		}
	}

	now := time.Now().UTC()
	expires := now.Add(s.retention)

	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if ok {
		if job.Status.CanTransitionTo(status) {
			job.Status = status
		}
		job.CompletedAt = &now
		job.ExpiresAt = &expires
		job.ArchiveKey = archiveKey
		if result != nil {
			job.RowResults = result.Rows
			job.Succeeded = result.Succeeded
			job.Failed = result.Failed
		}
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			job.Error = runErr.Error()
		}
		if job.Status == batch.StatusCompleted || job.Status == batch.StatusCompletedWithErrors {
			job.Progress = 1
		}
	}
	s.mu.Unlock()

	if ok {
		final := batch.StatusFailed
		var fraction float64
		if snap, err := s.snapshot(jobID); err == nil {
			final = snap.Status
			fraction = snap.Progress
		}
		s.hub.Publish(ProgressMessage{
			JobID:     jobID,
			Status:    final,
			Progress:  fraction,
			Timestamp: now,
		})
		s.logger.Info("generation job finished",
			zap.String("job_id", jobID.String()),
			zap.String("status", string(final)))
	}
}

// transition applies a status change if the state machine allows it.
func (s *Service) transition(jobID uuid.UUID, to batch.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok && job.Status.CanTransitionTo(to) {
		job.Status = to
	}
}

// Get returns a snapshot of the job for the owner.
func (s *Service) Get(ownerID string, jobID uuid.UUID) (*Job, error) {
	job, err := s.snapshot(jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// List returns snapshots of the owner's jobs, newest first.
func (s *Service) List(ownerID string) []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Job
	for _, job := range s.jobs {
		if job.OwnerID == ownerID {
			out = append(out, job.clone())
		}
	}
	sortJobs(out)
	return out
}

// Cancel requests cooperative cancellation of a running job. The run stops
// between rows and the job settles into the cancelled status.
func (s *Service) Cancel(ownerID string, jobID uuid.UUID) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.OwnerID != ownerID {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	cancel := s.cancels[jobID]
	s.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("generation: job %s is not running", jobID)
	}
	cancel()
	return nil
}

// Archive opens the finished job's archive for streaming.
func (s *Service) Archive(ctx context.Context, ownerID string, jobID uuid.UUID) (io.ReadCloser, error) {
	job, err := s.Get(ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() {
		return nil, ErrJobNotFinished
	}
	if job.ArchiveKey == "" {
		return nil, ErrNoArchive
	}
	return s.store.Open(ctx, job.ArchiveKey)
}

// ArchiveURL returns a direct download URL when the storage backend supports
// presigning, storage.ErrNotSupported otherwise.
func (s *Service) ArchiveURL(ctx context.Context, ownerID string, jobID uuid.UUID, expiry time.Duration) (string, error) {
	job, err := s.Get(ownerID, jobID)
	if err != nil {
		return "", err
	}
	if !job.Status.Terminal() {
		return "", ErrJobNotFinished
	}
	if job.ArchiveKey == "" {
		return "", ErrNoArchive
	}
	return s.store.DownloadURL(ctx, job.ArchiveKey, expiry)
}

// Sweep removes jobs whose retention window has passed, deleting their
// archives from storage. It returns the number of jobs removed.
func (s *Service) Sweep(ctx context.Context) int {
	now := time.Now().UTC()

	s.mu.Lock()
	var expired []*Job
	for id, job := range s.jobs {
		if job.ExpiresAt != nil && now.After(*job.ExpiresAt) {
			expired = append(expired, job)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	for _, job := range expired {
		if job.ArchiveKey != "" {
			if err := s.store.Delete(ctx, job.ArchiveKey); err != nil {
				s.logger.Warn("failed to delete expired archive",
					zap.String("job_id", job.ID.String()), zap.Error(err))
			}
		}
	}

	if len(expired) > 0 {
		s.logger.Info("retention sweep removed expired jobs", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (s *Service) snapshot(jobID uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.clone(), nil
}

func sortJobs(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
