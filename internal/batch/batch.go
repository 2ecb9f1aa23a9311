package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dailyquest/internal/metrics"
	"dailyquest/internal/model"
	"dailyquest/pkg/dateutil"
	"dailyquest/pkg/logger"

	"go.uber.org/zap"
)

const (
	JobDeadline   = "deadline"
	JobReset      = "reset"
	JobPerfectDay = "perfect-day"

	defaultChunkSize = 100
	maxAttempts      = 3
	paramLayout      = time.RFC3339
	dateLayout       = "2006-01-02"
)

var (
	ErrUnknownJob          = errors.New("unknown job")
	ErrJobAlreadyCompleted = errors.New("job already completed with the same parameters")
)

type QuestRepository interface {
	GetDeadLineExceededQuests(ctx context.Context, target time.Time, afterID int64, limit int) ([]*model.Quest, error)
	GetProceedQuestsCreatedBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*model.Quest, error)
	FailQuests(ctx context.Context, quests []*model.Quest, loggedDate time.Time) ([]int64, error)
}

type UserRepository interface {
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	CreditPerfectDay(ctx context.Context, loggedDate time.Time, userIDs []int64) ([]int64, error)
}

type QuestLogRepository interface {
	GetPerfectDayUserIDs(ctx context.Context, loggedDate time.Time, afterID int64, limit int) ([]int64, error)
}

type JobRepository interface {
	CreateJobExecution(ctx context.Context, e *model.JobExecution) error
	UpdateJobExecution(ctx context.Context, e *model.JobExecution) error
	GetLastJobExecutions(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error)
}

type Indexer interface {
	Index(ctx context.Context, quest *model.Quest) error
}

type Notifier interface {
	Notify(ctx context.Context, notifications []*model.Notification) error
}

type AchievementUnlocker interface {
	UnlockAll(ctx context.Context, achievementType model.AchievementType, users []*model.User) ([]*model.Notification, error)
}

type Deps struct {
	Quests       QuestRepository
	Users        UserRepository
	QuestLogs    QuestLogRepository
	Jobs         JobRepository
	Indexer      Indexer
	Notifier     Notifier
	Achievements AchievementUnlocker
}

// Runner executes the batch jobs. Every run is recorded as a job execution.
type Runner struct {
	Deps
	chunkSize  int
	loc        *time.Location
	now        func() time.Time
	retryDelay time.Duration
}

func NewRunner(deps Deps, chunkSize int, loc *time.Location) *Runner {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Runner{
		Deps:       deps,
		chunkSize:  chunkSize,
		loc:        loc,
		now:        time.Now,
		retryDelay: 200 * time.Millisecond,
	}
}

func (r *Runner) clock() time.Time {
	return r.now().In(r.loc)
}

// Run starts a job by name with its default parameters for now.
func (r *Runner) Run(ctx context.Context, name string) error {
	now := r.clock()

	switch name {
	case JobDeadline:
		return r.RunDeadline(ctx, now.Truncate(time.Minute))
	case JobReset:
		return r.RunReset(ctx, now)
	case JobPerfectDay:
		return r.RunPerfectDay(ctx, previousLoggedDate(now))
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

func (r *Runner) LastExecutions(ctx context.Context, name string, limit int) ([]*model.JobExecution, error) {
	switch name {
	case JobDeadline, JobReset, JobPerfectDay:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return r.Jobs.GetLastJobExecutions(ctx, name, limit)
}

func (r *Runner) execute(ctx context.Context, name string, params map[string]string, step func(ctx context.Context, exec *model.JobExecution, log *zap.Logger) error) error {
	log := logger.Named("batch." + name)

	exec := model.NewJobExecution(name, params, r.clock())
	if err := r.Jobs.CreateJobExecution(ctx, exec); err != nil {
		return fmt.Errorf("failed to record job execution: %w", err)
	}

	log.Info("job started", zap.String("execution_id", exec.ID.String()), zap.Any("params", params))

	err := step(ctx, exec, log)
	exec.Finish(err, r.clock())

	if updateErr := r.Jobs.UpdateJobExecution(ctx, exec); updateErr != nil {
		log.Error("failed to update job execution", zap.Error(updateErr))
	}

	metrics.RecordJobRun(name, string(exec.Status), exec.FinishedAt.Sub(exec.StartedAt), exec.WriteCount)

	if err != nil {
		log.Error("job failed",
			zap.String("execution_id", exec.ID.String()),
			zap.Int("read", exec.ReadCount),
			zap.Int("written", exec.WriteCount),
			zap.Error(err))
		return err
	}

	log.Info("job completed",
		zap.String("execution_id", exec.ID.String()),
		zap.Int("read", exec.ReadCount),
		zap.Int("written", exec.WriteCount))
	return nil
}

// completedBefore reports whether a recent run with the same parameters
// finished successfully.
func (r *Runner) completedBefore(ctx context.Context, name string, params map[string]string) (bool, error) {
	executions, err := r.Jobs.GetLastJobExecutions(ctx, name, 20)
	if err != nil {
		return false, err
	}

	for _, e := range executions {
		if e.Status == model.JobStatusCompleted && sameParams(e.Parameters, params) {
			return true, nil
		}
	}
	return false, nil
}

func sameParams(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// retry runs fn up to maxAttempts times with a linear backoff.
func (r *Runner) retry(ctx context.Context, log *zap.Logger, what string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		log.Warn("chunk step failed",
			zap.String("step", what),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, maxAttempts, err)
}

func (r *Runner) reindex(ctx context.Context, log *zap.Logger, quests []*model.Quest) {
	for _, q := range quests {
		if err := r.Indexer.Index(ctx, q); err != nil {
			log.Warn("failed to reindex quest", zap.Int64("quest_id", q.ID), zap.Error(err))
		}
	}
}

// failChunk fails the quests and returns the ones actually moved to FAIL.
func (r *Runner) failChunk(ctx context.Context, log *zap.Logger, quests []*model.Quest, loggedDate time.Time) ([]*model.Quest, error) {
	var ids []int64
	err := r.retry(ctx, log, "fail quests", func() error {
		var err error
		ids, err = r.Quests.FailQuests(ctx, quests, loggedDate)
		return err
	})
	if err != nil {
		return nil, err
	}

	failedSet := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		failedSet[id] = struct{}{}
	}

	failed := make([]*model.Quest, 0, len(ids))
	for _, q := range quests {
		if _, ok := failedSet[q.ID]; ok {
			q.State = model.QuestStateFail
			failed = append(failed, q)
		}
	}
	return failed, nil
}

func previousLoggedDate(now time.Time) time.Time {
	return dateutil.LoggedDate(now).AddDate(0, 0, -1)
}
