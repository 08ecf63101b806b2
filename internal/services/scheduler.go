package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
)

// AlertScheduler runs scheduled alert evaluation on a cron spec. A tick that
// fires while the previous run is still going is skipped.
type AlertScheduler struct {
	runner   alert.Runner
	schedule string
	location *time.Location
	timeout  time.Duration
	logger   *logger.Logger

	scheduler    *cron.Cron
	isRunning    bool
	runningMutex sync.RWMutex

	// runCtx is the parent of every run; Stop cancels it
	runCtx     context.Context
	cancelRuns context.CancelFunc
}

// NewAlertScheduler creates a scheduler. timeout bounds a single run; zero
// means unbounded.
func NewAlertScheduler(runner alert.Runner, schedule string, loc *time.Location, timeout time.Duration, log *logger.Logger) *AlertScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &AlertScheduler{
		runner:   runner,
		schedule: schedule,
		location: loc,
		timeout:  timeout,
		logger:   log,
	}
}

// Start starts the cron loop
func (s *AlertScheduler) Start() error {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)
	if _, err := c.AddFunc(s.schedule, s.tick); err != nil {
		return fmt.Errorf("invalid alert schedule %q: %w", s.schedule, err)
	}

	s.runCtx, s.cancelRuns = context.WithCancel(context.Background())
	c.Start()
	s.scheduler = c
	s.isRunning = true

	s.logger.WithFields(map[string]interface{}{
		"schedule": s.schedule,
		"timezone": s.location.String(),
	}).Info("Alert scheduler started")

	return nil
}

// Stop stops the cron loop and waits for a running evaluation. If ctx ends
// first the run is cancelled and Stop waits for it to return its partial
// summary before reporting ctx.Err().
func (s *AlertScheduler) Stop(ctx context.Context) error {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	stopped := s.scheduler.Stop()
	defer s.cancelRuns()

	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.cancelRuns()
		<-stopped.Done()
		s.logger.Warn("Alert scheduler stopped with a run in progress")
		return ctx.Err()
	}

	s.logger.Info("Alert scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *AlertScheduler) IsRunning() bool {
	s.runningMutex.RLock()
	defer s.runningMutex.RUnlock()
	return s.isRunning
}

func (s *AlertScheduler) tick() {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.runner.RunScheduled(ctx); err != nil {
		s.logger.ErrorWithErr(err, "Scheduled alert run failed")
	}
}
