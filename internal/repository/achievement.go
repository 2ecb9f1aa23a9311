package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dailyquest/internal/model"

	"github.com/Masterminds/squirrel"
)

type Achievement struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Type        string    `db:"type"`
	TargetValue int64     `db:"target_value"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

type achievedAchievement struct {
	Achievement
	AchievedAt time.Time `db:"achieved_at"`
}

var achievementColumns = []string{
	"a.id", "a.title", "a.description", "a.type", "a.target_value", "a.is_active", "a.created_at",
}

func (a *Achievement) toModel() *model.Achievement {
	return &model.Achievement{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Type:        model.AchievementType(a.Type),
		TargetValue: a.TargetValue,
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
	}
}

func (r *Repository) CreateAchievement(ctx context.Context, a *model.Achievement) error {
	query, args, err := squirrel.
		Insert("achievements").
		SetMap(map[string]interface{}{
			"title":        a.Title,
			"description":  a.Description,
			"type":         string(a.Type),
			"target_value": a.TargetValue,
			"is_active":    a.IsActive,
		}).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build achievement insert query: %w", err)
	}

	err = r.db.QueryRowxContext(ctx, query, args...).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert achievement: %w", err)
	}
	return nil
}

func (r *Repository) GetAchievement(ctx context.Context, id int64) (*model.Achievement, error) {
	var row Achievement
	query, args, err := squirrel.
		Select(achievementColumns...).
		From("achievements a").
		Where(squirrel.Eq{"a.id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *Repository) UpdateAchievement(ctx context.Context, a *model.Achievement) error {
	query, args, err := squirrel.
		Update("achievements").
		SetMap(map[string]interface{}{
			"title":       a.Title,
			"description": a.Description,
			"is_active":   a.IsActive,
		}).
		Where(squirrel.Eq{"id": a.ID}).
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

func (r *Repository) selectAchievements(ctx context.Context, builder squirrel.SelectBuilder) ([]*model.Achievement, error) {
	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Achievement
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	achievements := make([]*model.Achievement, len(rows))
	for i := range rows {
		achievements[i] = rows[i].toModel()
	}
	return achievements, nil
}

func (r *Repository) count(ctx context.Context, builder squirrel.SelectBuilder) (int64, error) {
	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return 0, err
	}

	var total int64
	if err = r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *Repository) ListAchievements(ctx context.Context, page model.PageRequest) (model.Page[*model.Achievement], error) {
	result := model.Page[*model.Achievement]{Page: page.Page, Size: page.Size}

	total, err := r.count(ctx, squirrel.Select("COUNT(*)").From("achievements a"))
	if err != nil {
		return result, fmt.Errorf("failed to count achievements: %w", err)
	}
	result.Total = total

	result.Items, err = r.selectAchievements(ctx, squirrel.
		Select(achievementColumns...).
		From("achievements a").
		OrderBy("a.type", "a.target_value").
		Limit(uint64(page.Size)).
		Offset(page.Offset()))
	if err != nil {
		return result, fmt.Errorf("failed to list achievements: %w", err)
	}
	return result, nil
}

func notAchievedBy(userID int64) squirrel.Sqlizer {
	return squirrel.Expr(
		"NOT EXISTS (SELECT 1 FROM achievement_achieve_logs l WHERE l.achievement_id = a.id AND l.user_id = ?)",
		userID,
	)
}

// GetNotAchievedAchievement returns the active achievement of the type with
// the smallest target the user has not unlocked yet.
func (r *Repository) GetNotAchievedAchievement(ctx context.Context, achievementType model.AchievementType, userID int64) (*model.Achievement, error) {
	achievements, err := r.selectAchievements(ctx, squirrel.
		Select(achievementColumns...).
		From("achievements a").
		Where(squirrel.Eq{"a.type": string(achievementType), "a.is_active": true}).
		Where(notAchievedBy(userID)).
		OrderBy("a.target_value").
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(achievements) == 0 {
		return nil, ErrNotFound
	}
	return achievements[0], nil
}

// GetAchievableAchievements returns every active achievement of the type the
// user has not unlocked and whose target is at most value.
func (r *Repository) GetAchievableAchievements(ctx context.Context, achievementType model.AchievementType, userID, value int64) ([]*model.Achievement, error) {
	return r.selectAchievements(ctx, squirrel.
		Select(achievementColumns...).
		From("achievements a").
		Where(squirrel.Eq{"a.type": string(achievementType), "a.is_active": true}).
		Where(squirrel.LtOrEq{"a.target_value": value}).
		Where(notAchievedBy(userID)).
		OrderBy("a.target_value"))
}

func (r *Repository) GetAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.AchievedAchievement], error) {
	result := model.Page[*model.AchievedAchievement]{Page: page.Page, Size: page.Size}

	total, err := r.count(ctx, squirrel.
		Select("COUNT(*)").
		From("achievement_achieve_logs").
		Where(squirrel.Eq{"user_id": userID}))
	if err != nil {
		return result, fmt.Errorf("failed to count achieved achievements: %w", err)
	}
	result.Total = total

	query, args, err := squirrel.
		Select(append(achievementColumns, "l.achieved_at")...).
		From("achievements a").
		Join("achievement_achieve_logs l ON l.achievement_id = a.id").
		Where(squirrel.Eq{"l.user_id": userID}).
		OrderBy("l.achieved_at DESC", "a.id").
		Limit(uint64(page.Size)).
		Offset(page.Offset()).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return result, err
	}

	var rows []achievedAchievement
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return result, fmt.Errorf("failed to get achieved achievements: %w", err)
	}

	result.Items = make([]*model.AchievedAchievement, len(rows))
	for i := range rows {
		result.Items[i] = &model.AchievedAchievement{
			Achievement: *rows[i].toModel(),
			AchievedAt:  rows[i].AchievedAt,
		}
	}
	return result, nil
}

func (r *Repository) GetNotAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.Achievement], error) {
	result := model.Page[*model.Achievement]{Page: page.Page, Size: page.Size}

	total, err := r.count(ctx, squirrel.
		Select("COUNT(*)").
		From("achievements a").
		Where(squirrel.Eq{"a.is_active": true}).
		Where(notAchievedBy(userID)))
	if err != nil {
		return result, fmt.Errorf("failed to count achievements: %w", err)
	}
	result.Total = total

	result.Items, err = r.selectAchievements(ctx, squirrel.
		Select(achievementColumns...).
		From("achievements a").
		Where(squirrel.Eq{"a.is_active": true}).
		Where(notAchievedBy(userID)).
		OrderBy("a.type", "a.target_value").
		Limit(uint64(page.Size)).
		Offset(page.Offset()))
	if err != nil {
		return result, fmt.Errorf("failed to get not achieved achievements: %w", err)
	}
	return result, nil
}

// SaveAchieveLogs stores unlock records, ignoring ones that already exist.
// It returns the logs that were actually written.
func (r *Repository) SaveAchieveLogs(ctx context.Context, logs []*model.AchievementAchieveLog) ([]*model.AchievementAchieveLog, error) {
	if len(logs) == 0 {
		return []*model.AchievementAchieveLog{}, nil
	}

	builder := squirrel.
		Insert("achievement_achieve_logs").
		Columns("achievement_id", "user_id", "achieved_at")
	for _, l := range logs {
		builder = builder.Values(l.AchievementID, l.UserID, l.AchievedAt)
	}

	query, args, err := builder.
		Suffix("ON CONFLICT (achievement_id, user_id) DO NOTHING RETURNING id, achievement_id, user_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build achieve log insert query: %w", err)
	}

	var rows []struct {
		ID            int64 `db:"id"`
		AchievementID int64 `db:"achievement_id"`
		UserID        int64 `db:"user_id"`
	}
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert achieve logs: %w", err)
	}

	type key struct{ achievementID, userID int64 }
	written := make(map[key]int64, len(rows))
	for _, row := range rows {
		written[key{row.AchievementID, row.UserID}] = row.ID
	}

	saved := make([]*model.AchievementAchieveLog, 0, len(rows))
	for _, l := range logs {
		if id, ok := written[key{l.AchievementID, l.UserID}]; ok {
			l.ID = id
			saved = append(saved, l)
		}
	}
	return saved, nil
}
