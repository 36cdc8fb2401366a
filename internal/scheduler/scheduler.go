package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
)

// CatalogWarmer is the part of the achievement catalog cache the scheduler refreshes.
type CatalogWarmer interface {
	Warm(ctx context.Context) error
}

// Options configure the housekeeping jobs.
type Options struct {
	Interval time.Duration
	// QuotaRetention and NotificationRetention are in days.
	QuotaRetention        int
	NotificationRetention int
	Location              *time.Location
	// JobTimeout bounds each run of a job.
	JobTimeout time.Duration
}

// Scheduler runs periodic housekeeping for the ladder.
type Scheduler struct {
	cron          gocron.Scheduler
	quota         match.QuotaStore
	notifications notifier.Store
	catalog       CatalogWarmer
	opts          Options
	now           func() time.Time
}

// New creates a Scheduler. Jobs are registered by Start.
func New(quota match.QuotaStore, notifications notifier.Store, catalog CatalogWarmer, opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	cron, err := gocron.NewScheduler(gocron.WithLocation(opts.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		cron:          cron,
		quota:         quota,
		notifications: notifications,
		catalog:       catalog,
		opts:          opts,
		now:           time.Now,
	}, nil
}

// SetClock replaces the time source. Intended for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: "prune-quota", run: s.pruneQuota},
		{name: "prune-notifications", run: s.pruneNotifications},
		{name: "warm-achievement-catalog", run: s.catalog.Warm},
	}
}

// Start registers every housekeeping job and starts the scheduler.
func (s *Scheduler) Start() error {
	for _, j := range s.jobs() {
		_, err := s.cron.NewJob(
			gocron.DurationJob(s.opts.Interval),
			gocron.NewTask(s.runJob, j),
			gocron.WithName(j.name),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", j.name, err)
		}
	}
	s.cron.Start()
	log.Info("Scheduler started", "jobs", len(s.cron.Jobs()), "interval", s.opts.Interval)
	return nil
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	log.Info("Stopping scheduler")
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// RunNow runs every job once, in order, and returns the first failure.
func (s *Scheduler) RunNow(ctx context.Context) error {
	for _, j := range s.jobs() {
		if err := j.run(ctx); err != nil {
			return fmt.Errorf("job %s: %w", j.name, err)
		}
	}
	return nil
}

func (s *Scheduler) runJob(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		log.Error("Housekeeping job failed", "job", j.name, "error", err)
		return
	}
	log.Debug("Housekeeping job finished", "job", j.name, "duration", time.Since(start))
}

func (s *Scheduler) pruneQuota(ctx context.Context) error {
	cutoff := s.now().In(s.opts.Location).AddDate(0, 0, -s.opts.QuotaRetention).Format(time.DateOnly)
	n, err := s.quota.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("Pruned daily quota counters", "before", cutoff, "rows", n)
	}
	return nil
}

func (s *Scheduler) pruneNotifications(ctx context.Context) error {
	cutoff := s.now().AddDate(0, 0, -s.opts.NotificationRetention)
	n, err := s.notifications.PrunePendingBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("Pruned pending notifications", "before", cutoff, "rows", n)
	}
	return nil
}
