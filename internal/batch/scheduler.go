package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dailyquest/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Schedule struct {
	Deadline   string `yaml:"deadline"`
	Reset      string `yaml:"reset"`
	PerfectDay string `yaml:"perfectDay"`
}

// DefaultSchedule runs the deadline sweep every minute and the daily jobs
// right after the 06:00 reset.
var DefaultSchedule = Schedule{
	Deadline:   "* * * * *",
	Reset:      "0 6 * * *",
	PerfectDay: "10 6 * * *",
}

// Scheduler wraps cron entries for the batch jobs.
type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	timeout time.Duration
}

func NewScheduler(runner *Runner, schedule Schedule, timeout time.Duration) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(runner.loc)),
		runner:  runner,
		timeout: timeout,
	}

	entries := []struct {
		job  string
		spec string
	}{
		{JobDeadline, schedule.Deadline},
		{JobReset, schedule.Reset},
		{JobPerfectDay, schedule.PerfectDay},
	}

	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, s.job(e.job)); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", e.spec, e.job, err)
		}
	}

	return s, nil
}

func (s *Scheduler) job(name string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		err := s.runner.Run(ctx, name)
		if err != nil && !errors.Is(err, ErrJobAlreadyCompleted) {
			logger.Named("batch.scheduler").Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	}
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
