package generation

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs the retention sweep on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	service *Service
	spec    string
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper. spec is a cron expression or a descriptor
// like "@hourly".
func NewSweeper(service *Service, spec string, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		service: service,
		spec:    spec,
		logger:  logger,
	}
}

// Start schedules the sweep and starts the cron runner.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("generation: sweeper already running")
	}

	if _, err := s.cron.AddFunc(s.spec, func() {
		s.service.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("generation: invalid sweep schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("retention sweeper started", zap.String("schedule", s.spec))
	return nil
}

// Stop halts the cron runner and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("retention sweeper stopped")
}
