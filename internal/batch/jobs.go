package batch

import (
	"context"
	"fmt"
	"time"

	"dailyquest/internal/model"
	"dailyquest/pkg/dateutil"

	"go.uber.org/zap"
)

// RunDeadline fails every in progress quest whose deadline is at or before
// target and notifies the owners.
func (r *Runner) RunDeadline(ctx context.Context, target time.Time) error {
	target = target.In(r.loc)
	params := map[string]string{"target": target.Format(paramLayout)}
	loggedDate := dateutil.LoggedDate(target)

	return r.execute(ctx, JobDeadline, params, func(ctx context.Context, exec *model.JobExecution, log *zap.Logger) error {
		var afterID int64
		for {
			quests, err := r.Quests.GetDeadLineExceededQuests(ctx, target, afterID, r.chunkSize)
			if err != nil {
				return fmt.Errorf("failed to read deadline exceeded quests: %w", err)
			}
			if len(quests) == 0 {
				return nil
			}

			exec.ReadCount += len(quests)
			afterID = quests[len(quests)-1].ID

			failed, err := r.failChunk(ctx, log, quests, loggedDate)
			if err != nil {
				return err
			}

			r.reindex(ctx, log, failed)

			notifications := make([]*model.Notification, len(failed))
			for i, q := range failed {
				notifications[i] = model.NewDeadlineFailNotification(q)
			}
			err = r.retry(ctx, log, "notify deadline fail", func() error {
				return r.Notifier.Notify(ctx, notifications)
			})
			if err != nil {
				return err
			}

			exec.WriteCount += len(failed)
			if len(quests) < r.chunkSize {
				return nil
			}
		}
	})
}

// RunReset fails the quests left in progress when the quest day that
// contains at ended. Their logs belong to the previous day.
func (r *Runner) RunReset(ctx context.Context, at time.Time) error {
	reset := dateutil.LastReset(at.In(r.loc))
	loggedDate := dateutil.LoggedDate(reset.Add(-time.Minute))
	params := map[string]string{"reset": reset.Format(paramLayout)}

	return r.execute(ctx, JobReset, params, func(ctx context.Context, exec *model.JobExecution, log *zap.Logger) error {
		var afterID int64
		for {
			quests, err := r.Quests.GetProceedQuestsCreatedBefore(ctx, reset, afterID, r.chunkSize)
			if err != nil {
				return fmt.Errorf("failed to read unfinished quests: %w", err)
			}
			if len(quests) == 0 {
				return nil
			}

			exec.ReadCount += len(quests)
			afterID = quests[len(quests)-1].ID

			failed, err := r.failChunk(ctx, log, quests, loggedDate)
			if err != nil {
				return err
			}

			r.reindex(ctx, log, failed)

			exec.WriteCount += len(failed)
			if len(quests) < r.chunkSize {
				return nil
			}
		}
	})
}

// RunPerfectDay credits a perfect day to every user who completed all quests
// registered on loggedDate and unlocks the perfect day achievements they now
// meet. A completed date is not run again, and a user is credited at most
// once per date even when a failed run is retried.
func (r *Runner) RunPerfectDay(ctx context.Context, loggedDate time.Time) error {
	loggedDate = dateutil.Date(loggedDate)
	params := map[string]string{"loggedDate": loggedDate.Format(dateLayout)}

	done, err := r.completedBefore(ctx, JobPerfectDay, params)
	if err != nil {
		return fmt.Errorf("failed to read job executions: %w", err)
	}
	if done {
		return fmt.Errorf("%w: %s %s", ErrJobAlreadyCompleted, JobPerfectDay, params["loggedDate"])
	}

	return r.execute(ctx, JobPerfectDay, params, func(ctx context.Context, exec *model.JobExecution, log *zap.Logger) error {
		var afterID int64
		for {
			ids, err := r.QuestLogs.GetPerfectDayUserIDs(ctx, loggedDate, afterID, r.chunkSize)
			if err != nil {
				return fmt.Errorf("failed to read perfect day users: %w", err)
			}
			if len(ids) == 0 {
				return nil
			}

			exec.ReadCount += len(ids)
			afterID = ids[len(ids)-1]

			var credited []int64
			err = r.retry(ctx, log, "credit perfect day", func() error {
				var err error
				credited, err = r.Users.CreditPerfectDay(ctx, loggedDate, ids)
				return err
			})
			if err != nil {
				return err
			}

			// Users credited by an earlier failed run still get their
			// achievements checked.

			users, err := r.Users.GetUsersByIDs(ctx, ids)
			if err != nil {
				return fmt.Errorf("failed to read perfect day users: %w", err)
			}

			var notifications []*model.Notification
			err = r.retry(ctx, log, "unlock perfect day achievements", func() error {
				var err error
				notifications, err = r.Achievements.UnlockAll(ctx, model.AchievementPerfectDay, users)
				return err
			})
			if err != nil {
				return err
			}

			err = r.retry(ctx, log, "notify achievements", func() error {
				return r.Notifier.Notify(ctx, notifications)
			})
			if err != nil {
				return err
			}

			exec.WriteCount += len(credited)
			if len(ids) < r.chunkSize {
				return nil
			}
		}
	})
}
