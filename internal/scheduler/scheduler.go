package scheduler

import (
	"context"
	"fmt"

	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *logging.Logger
}

func NewScheduler(jobs *Jobs) *Scheduler {
	logger := logging.L().Named("cron")
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Logger))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{cron: c, jobs: jobs, logger: logger}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(pendingSweepSchedule string) error {
	if _, err := s.cron.AddFunc(pendingSweepSchedule, s.jobs.SweepStalePending); err != nil {
		return fmt.Errorf("failed to schedule pending sweep %q: %w", pendingSweepSchedule, err)
	}
	s.logger.Info("scheduled pending sweep", zap.String("schedule", pendingSweepSchedule))

	s.cron.Start()
	return nil
}

// Stop stops scheduling and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
