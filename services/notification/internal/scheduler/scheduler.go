package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/pkg/config"
	"taskflow/pkg/logger"
	"taskflow/services/notification/internal/metrics"
	"taskflow/services/notification/internal/repo/persistent"
	"taskflow/services/notification/internal/usecase"

	"github.com/robfig/cron/v3"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job is already running")
)

type Deps struct {
	Entities      persistent.EntityRepository
	Notifications persistent.NotificationRepository
	Users         persistent.UserRepository
	Outbox        persistent.OutboxRepository
	Dispatcher    usecase.Dispatcher
	// Locker is optional; without it only the in-process overlap guard applies.
	Locker Locker
	Logger *logger.Logger
}

type Config struct {
	DueSoonSchedule string
	OverdueSchedule string
	LookaheadDays   int
	BatchLimit      int
	LockTTL         time.Duration
	Location        *time.Location
	AppBaseURL      string
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		DueSoonSchedule: cfg.DueSoonSchedule,
		OverdueSchedule: cfg.OverdueSchedule,
		LookaheadDays:   cfg.DueSoonLookaheadDays,
		BatchLimit:      cfg.ScanBatchLimit,
		LockTTL:         cfg.JobLockTTL,
		Location:        cfg.Location,
		AppBaseURL:      cfg.AppBaseURL,
	}
}

// Scheduler owns the due-soon and overdue jobs. The job bodies can be
// called directly with a fixed clock.
type Scheduler struct {
	deps   Deps
	cfg    Config
	cron   *cron.Cron
	logger *logger.Logger
	now    func() time.Time
}

func New(deps Deps, cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = 2
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}

	cronLog := cronLogger{logger: deps.Logger}
	return &Scheduler{
		deps:   deps,
		cfg:    cfg,
		logger: deps.Logger,
		now:    time.Now,
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}
}

// Start registers both jobs and starts the cron loop in its own goroutine.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.DueSoonSchedule, func() { s.tick(JobDueSoon) }); err != nil {
		return fmt.Errorf("invalid due-soon schedule %q: %w", s.cfg.DueSoonSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.OverdueSchedule, func() { s.tick(JobOverdue) }); err != nil {
		return fmt.Errorf("invalid overdue schedule %q: %w", s.cfg.OverdueSchedule, err)
	}

	s.cron.Start()
	s.logger.Info("[SCHEDULER] Started: due-soon %q, overdue %q", s.cfg.DueSoonSchedule, s.cfg.OverdueSchedule)
	return nil
}

// Stop halts the cron loop and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("[SCHEDULER] Stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) tick(job string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LockTTL)
	defer cancel()

	if _, err := s.RunJob(ctx, job); err != nil {
		if errors.Is(err, ErrJobRunning) {
			s.logger.Info("[SCHEDULER] %s still running elsewhere, skipping tick", job)
			return
		}
		s.logger.Error("[SCHEDULER] %s failed: %v", job, err)
	}
}

// RunJob runs the named job once under the distributed lock.
func (s *Scheduler) RunJob(ctx context.Context, job string) (*Report, error) {
	var run func(context.Context, time.Time) *Report
	switch job {
	case JobDueSoon:
		run = s.RunDueSoon
	case JobOverdue:
		run = s.RunOverdue
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}

	if s.deps.Locker != nil {
		unlock, ok, err := s.deps.Locker.TryLock(ctx, LockKey(job), s.cfg.LockTTL)
		if err != nil {
			metrics.JobRuns.WithLabelValues(job, "lock_error").Inc()
			return nil, err
		}
		if !ok {
			metrics.JobRuns.WithLabelValues(job, "locked").Inc()
			return nil, ErrJobRunning
		}
		defer func() {
			if err := unlock(); err != nil {
				s.logger.Error("[SCHEDULER] %s: %v", job, err)
				metrics.JobRuns.WithLabelValues(job, "unlock_error").Inc()
			}
		}()
	}

	started := time.Now()
	report := run(ctx, s.now())
	metrics.JobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
	metrics.JobRuns.WithLabelValues(job, "completed").Inc()
	return report, nil
}
