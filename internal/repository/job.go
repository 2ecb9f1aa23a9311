package repository

import (
	"context"
	"fmt"
	"time"

	"dailyquest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type JobExecution struct {
	ID         uuid.UUID  `db:"id"`
	JobName    string     `db:"job_name"`
	Parameters []byte     `db:"parameters"`
	Status     string     `db:"status"`
	ReadCount  int        `db:"read_count"`
	WriteCount int        `db:"write_count"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Error      string     `db:"error"`
}

func (r *Repository) CreateJobExecution(ctx context.Context, e *model.JobExecution) error {
	params, err := json.Marshal(e.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode job parameters: %w", err)
	}

	query, args, err := squirrel.
		Insert("job_executions").
		SetMap(map[string]interface{}{
			"id":         e.ID,
			"job_name":   e.JobName,
			"parameters": string(params),
			"status":     string(e.Status),
			"started_at": e.StartedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build job execution insert query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert job execution: %w", err)
	}
	return nil
}

func (r *Repository) UpdateJobExecution(ctx context.Context, e *model.JobExecution) error {
	query, args, err := squirrel.
		Update("job_executions").
		SetMap(map[string]interface{}{
			"status":      string(e.Status),
			"read_count":  e.ReadCount,
			"write_count": e.WriteCount,
			"finished_at": e.FinishedAt,
			"error":       e.Error,
		}).
		Where(squirrel.Eq{"id": e.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLastJobExecutions lists the most recent runs of a job, newest first.
func (r *Repository) GetLastJobExecutions(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error) {
	query, args, err := squirrel.
		Select("id", "job_name", "parameters", "status", "read_count", "write_count", "started_at", "finished_at", "error").
		From("job_executions").
		Where(squirrel.Eq{"job_name": jobName}).
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []JobExecution
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get job executions: %w", err)
	}

	executions := make([]*model.JobExecution, len(rows))
	for i, row := range rows {
		params := map[string]string{}
		if len(row.Parameters) > 0 {
			if err = json.Unmarshal(row.Parameters, &params); err != nil {
				return nil, fmt.Errorf("failed to decode job parameters: %w", err)
			}
		}

		executions[i] = &model.JobExecution{
			ID:         row.ID,
			JobName:    row.JobName,
			Parameters: params,
			Status:     model.JobStatus(row.Status),
			ReadCount:  row.ReadCount,
			WriteCount: row.WriteCount,
			StartedAt:  row.StartedAt,
			FinishedAt: row.FinishedAt,
			Error:      row.Error,
		}
	}
	return executions, nil
}
