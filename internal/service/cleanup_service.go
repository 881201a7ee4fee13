package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/metrics"
	"github.com/user/gunvortv/internal/repository"
)

// Job scheduled unit of work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs background jobs on cron specs (seconds field optional)
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	timeout time.Duration
}

// NewScheduler creates an idle scheduler
func NewScheduler() *Scheduler {
	cronLogger := cron.PrintfLogger(logging.Printf{})
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		jobs:    make(map[string]Job),
		timeout: 10 * time.Minute,
	}
}

// AddJob registers job under spec. An empty spec leaves it unscheduled,
// runnable only through RunNow.
func (s *Scheduler) AddJob(spec string, job Job) error {
	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	if spec == "" {
		logging.Info().Str("job", name).Msg("[Scheduler] job unscheduled, manual runs only")
	} else if _, err := s.cron.AddFunc(spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}
	s.jobs[name] = job
	return nil
}

// RunNow runs a registered job outside its schedule
func (s *Scheduler) RunNow(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job %s not registered", name)
	}
	return s.run(job)
}

func (s *Scheduler) run(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	metrics.RecordJobRun(job.Name(), err)
	if err != nil {
		logging.Error().Err(err).Str("job", job.Name()).Msg("[Scheduler] job failed")
		return err
	}
	logging.Info().Str("job", job.Name()).Dur("took", time.Since(start)).Msg("[Scheduler] job done")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logging.Info().Int("jobs", len(s.jobs)).Msg("[Scheduler] started")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logging.Info().Msg("[Scheduler] stopped")
}

// CatalogWarmJob reloads the catalog ahead of request traffic
type CatalogWarmJob struct {
	catalog *CatalogService
}

func NewCatalogWarmJob(catalog *CatalogService) *CatalogWarmJob {
	return &CatalogWarmJob{catalog: catalog}
}

func (j *CatalogWarmJob) Name() string { return "catalog_warm" }

func (j *CatalogWarmJob) Run(ctx context.Context) error {
	return j.catalog.Refresh(ctx)
}

// ResetTokenCleanupJob purges expired password reset tokens
type ResetTokenCleanupJob struct {
	resets *repository.PasswordResetRepository
}

func NewResetTokenCleanupJob(resets *repository.PasswordResetRepository) *ResetTokenCleanupJob {
	return &ResetTokenCleanupJob{resets: resets}
}

func (j *ResetTokenCleanupJob) Name() string { return "reset_token_cleanup" }

func (j *ResetTokenCleanupJob) Run(ctx context.Context) error {
	n, err := j.resets.DeleteExpired()
	if err != nil {
		return err
	}
	if n > 0 {
		logging.Info().Int64("deleted", n).Msg("[CleanupService] expired reset tokens purged")
	}
	return nil
}
