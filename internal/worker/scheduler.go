// Package worker runs the batch jobs on cron schedules. Every job runs
// under one PostgreSQL advisory lock so ingestion, enrichment, metric
// recomputation and training never overlap, even across worker replicas.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/observability"
)

// Locker runs fn while holding a cluster-wide lock. It reports false
// without running fn when the lock is held elsewhere.
type Locker interface {
	TryWithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) (bool, error)
}

// Job is one scheduled batch job.
type Job struct {
	Name string
	// Spec is a standard five-field cron expression or a descriptor such
	// as @daily. An empty Spec leaves the job unscheduled.
	Spec string
	Run  func(ctx context.Context) error
}

// Outcome is the result of one job execution.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped_locked"
)

// Scheduler runs registered jobs on their cron specs.
type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	lockKey int64
	logger  zerolog.Logger

	mu     sync.Mutex
	jobs   map[string]Job
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler whose jobs share the advisory lock key.
func NewScheduler(locker Locker, lockKey int64, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "worker").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		locker:  locker,
		lockKey: lockKey,
		logger:  logger,
		jobs:    make(map[string]Job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job. Jobs with an empty Spec are kept for RunNow but not
// scheduled.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("worker: job needs a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("worker: job %q already registered", job.Name)
	}

	if job.Spec != "" {
		if _, err := s.cron.AddFunc(job.Spec, func() { _, _ = s.Execute(s.ctx, job) }); err != nil {
			return fmt.Errorf("worker: schedule %s %q: %w", job.Name, job.Spec, err)
		}
		s.logger.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("job scheduled")
	}
	s.jobs[job.Name] = job
	return nil
}

// RunNow executes the named job immediately under the lock.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Outcome, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return OutcomeFailed, fmt.Errorf("worker: unknown job %q", name)
	}
	return s.Execute(ctx, job)
}

// Execute runs job under the advisory lock. When another session holds the
// lock the job is skipped, not queued.
func (s *Scheduler) Execute(ctx context.Context, job Job) (Outcome, error) {
	runID := uuid.NewString()
	ctx = observability.WithJobRun(ctx, job.Name, runID)
	logger := s.logger.With().Str("job", job.Name).Str("run_id", runID).Logger()
	start := time.Now()

	acquired, err := s.locker.TryWithAdvisoryLock(ctx, s.lockKey, job.Run)
	switch {
	case err != nil:
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
		return OutcomeFailed, err
	case !acquired:
		logger.Info().Int64("lock_key", s.lockKey).Msg("another job holds the batch lock, skipping")
		return OutcomeSkipped, nil
	}
	logger.Info().Dur("duration", time.Since(start)).Msg("job completed")
	return OutcomeCompleted, nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("entries", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop stops scheduling, cancels running jobs and waits for them to return
// or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
