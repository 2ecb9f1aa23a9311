package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dailyquest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
)

type PreferenceQuest struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	Title        string     `db:"title"`
	Description  string     `db:"description"`
	DetailQuests []byte     `db:"detail_quests"`
	UsedCount    int64      `db:"used_count"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

var preferenceQuestColumns = []string{
	"p.id", "p.user_id", "p.title", "p.description", "p.detail_quests",
	"(SELECT COUNT(*) FROM quests q WHERE q.preference_quest_id = p.id) AS used_count",
	"p.created_at", "p.updated_at", "p.deleted_at",
}

func (p *PreferenceQuest) toModel() (*model.PreferenceQuest, error) {
	details := []model.PreferenceDetailQuest{}
	if len(p.DetailQuests) > 0 {
		if err := json.Unmarshal(p.DetailQuests, &details); err != nil {
			return nil, fmt.Errorf("failed to decode preference detail quests: %w", err)
		}
	}

	return &model.PreferenceQuest{
		ID:           p.ID,
		UserID:       p.UserID,
		Title:        p.Title,
		Description:  p.Description,
		DetailQuests: details,
		UsedCount:    p.UsedCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		DeletedAt:    p.DeletedAt,
	}, nil
}

func encodePreferenceDetails(details []model.PreferenceDetailQuest) ([]byte, error) {
	if details == nil {
		details = []model.PreferenceDetailQuest{}
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preference detail quests: %w", err)
	}
	return data, nil
}

func (r *Repository) CreatePreferenceQuest(ctx context.Context, p *model.PreferenceQuest) error {
	details, err := encodePreferenceDetails(p.DetailQuests)
	if err != nil {
		return err
	}

	query, args, err := squirrel.
		Insert("preference_quests").
		SetMap(map[string]interface{}{
			"user_id":       p.UserID,
			"title":         p.Title,
			"description":   p.Description,
			"detail_quests": details,
		}).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build preference quest insert query: %w", err)
	}

	err = r.db.QueryRowxContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert preference quest: %w", err)
	}
	return nil
}

func activePreferenceQuests(userID int64) squirrel.SelectBuilder {
	return squirrel.
		Select(preferenceQuestColumns...).
		From("preference_quests p").
		Where(squirrel.Eq{"p.user_id": userID, "p.deleted_at": nil})
}

// GetPreferenceQuest returns ErrNotFound for templates of other users and for
// deleted ones.
func (r *Repository) GetPreferenceQuest(ctx context.Context, userID, id int64) (*model.PreferenceQuest, error) {
	query, args, err := activePreferenceQuests(userID).
		Where(squirrel.Eq{"p.id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row PreferenceQuest
	if err = r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preference quest: %w", err)
	}
	return row.toModel()
}

func (r *Repository) GetActivePreferenceQuests(ctx context.Context, userID int64) ([]*model.PreferenceQuest, error) {
	query, args, err := activePreferenceQuests(userID).
		OrderBy("p.id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []PreferenceQuest
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list preference quests: %w", err)
	}

	result := make([]*model.PreferenceQuest, len(rows))
	for i := range rows {
		if result[i], err = rows[i].toModel(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *Repository) UpdatePreferenceQuest(ctx context.Context, p *model.PreferenceQuest) error {
	details, err := encodePreferenceDetails(p.DetailQuests)
	if err != nil {
		return err
	}

	query, args, err := squirrel.
		Update("preference_quests").
		SetMap(map[string]interface{}{
			"title":         p.Title,
			"description":   p.Description,
			"detail_quests": details,
			"updated_at":    squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": p.ID, "user_id": p.UserID, "deleted_at": nil}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build preference quest update query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update preference quest: %w", err)
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

// DeletePreferenceQuest soft deletes the template. Quests registered from it
// keep their reference.
func (r *Repository) DeletePreferenceQuest(ctx context.Context, userID, id int64, now time.Time) error {
	query, args, err := squirrel.
		Update("preference_quests").
		Set("deleted_at", now).
		Where(squirrel.Eq{"id": id, "user_id": userID, "deleted_at": nil}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete preference quest: %w", err)
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
