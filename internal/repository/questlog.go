package repository

import (
	"context"
	"fmt"
	"time"

	"dailyquest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type questLogCount struct {
	LoggedDate time.Time `db:"logged_date"`
	State      string    `db:"state"`
	Type       string    `db:"type"`
	Count      int64     `db:"count"`
}

func insertQuestLog(ctx context.Context, tx *sqlx.Tx, log *model.QuestLog) error {
	query, args, err := squirrel.
		Insert("quest_logs").
		SetMap(map[string]interface{}{
			"quest_id":    log.QuestID,
			"user_id":     log.UserID,
			"state":       string(log.State),
			"type":        string(log.Type),
			"logged_date": log.LoggedDate,
		}).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest log insert query: %w", err)
	}

	if err = tx.QueryRowxContext(ctx, query, args...).Scan(&log.ID, &log.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert quest log: %w", err)
	}
	return nil
}

// GetQuestLogCounts groups the user's quest logs between from and to, both
// inclusive, by logged date, state and type.
func (r *Repository) GetQuestLogCounts(ctx context.Context, userID int64, from, to time.Time) ([]model.QuestLogCount, error) {
	query, args, err := squirrel.
		Select("logged_date", "state", "type", "COUNT(*) AS count").
		From("quest_logs").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"logged_date": from}).
		Where(squirrel.LtOrEq{"logged_date": to}).
		GroupBy("logged_date", "state", "type").
		OrderBy("logged_date").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []questLogCount
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count quest logs: %w", err)
	}

	counts := make([]model.QuestLogCount, len(rows))
	for i, row := range rows {
		counts[i] = model.QuestLogCount{
			LoggedDate: row.LoggedDate,
			State:      model.QuestState(row.State),
			Type:       model.QuestType(row.Type),
			Count:      row.Count,
		}
	}
	return counts, nil
}

// GetPerfectDayUserIDs pages through users who registered at least one quest
// on the logged date and completed as many quests as they registered.
func (r *Repository) GetPerfectDayUserIDs(ctx context.Context, loggedDate time.Time, afterID int64, limit int) ([]int64, error) {
	query, args, err := squirrel.
		Select("user_id").
		From("quest_logs").
		Where(squirrel.Eq{"logged_date": loggedDate}).
		Where(squirrel.Gt{"user_id": afterID}).
		GroupBy("user_id").
		Having("COUNT(*) FILTER (WHERE state = ?) > 0", string(model.QuestStateProceed)).
		Having("COUNT(*) FILTER (WHERE state = ?) = COUNT(*) FILTER (WHERE state = ?)",
			string(model.QuestStateProceed), string(model.QuestStateComplete)).
		OrderBy("user_id").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var ids []int64
	if err = r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get perfect day users: %w", err)
	}
	return ids, nil
}
