package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dailyquest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Quest struct {
	ID                int64      `db:"id"`
	UserID            int64      `db:"user_id"`
	Seq               int64      `db:"seq"`
	Title             string     `db:"title"`
	Description       string     `db:"description"`
	State             string     `db:"state"`
	Type              string     `db:"type"`
	DeadLine          *time.Time `db:"dead_line"`
	PreferenceQuestID *int64     `db:"preference_quest_id"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

type DetailQuest struct {
	ID          int64  `db:"id"`
	QuestID     int64  `db:"quest_id"`
	Title       string `db:"title"`
	Type        string `db:"type"`
	State       string `db:"state"`
	TargetCount int    `db:"target_count"`
	Count       int    `db:"count"`
}

var questColumns = []string{
	"id", "user_id", "seq", "title", "description", "state", "type", "dead_line", "preference_quest_id",
	"created_at", "updated_at",
}

var detailQuestColumns = []string{
	"id", "quest_id", "title", "type", "state", "target_count", "count",
}

func (q *Quest) toModel() *model.Quest {
	return &model.Quest{
		ID:                q.ID,
		UserID:            q.UserID,
		Seq:               q.Seq,
		Title:             q.Title,
		Description:       q.Description,
		State:             model.QuestState(q.State),
		Type:              model.QuestType(q.Type),
		DeadLine:          q.DeadLine,
		DetailQuests:      []*model.DetailQuest{},
		PreferenceQuestID: q.PreferenceQuestID,
		CreatedAt:         q.CreatedAt,
		UpdatedAt:         q.UpdatedAt,
	}
}

func (d *DetailQuest) toModel() *model.DetailQuest {
	return &model.DetailQuest{
		ID:          d.ID,
		QuestID:     d.QuestID,
		Title:       d.Title,
		Type:        model.DetailQuestType(d.Type),
		State:       model.DetailQuestState(d.State),
		TargetCount: d.TargetCount,
		Count:       d.Count,
	}
}

// RegisterQuest stores a new quest with its detail quests and its PROCEED
// log, then applies progress to the owner. The owner row stays locked for the
// whole transaction.
func (r *Repository) RegisterQuest(ctx context.Context, quest *model.Quest, loggedDate time.Time, progress func(user *model.User)) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		user, err := lockUser(ctx, tx, quest.UserID)
		if err != nil {
			return err
		}

		if err = insertQuest(ctx, tx, quest); err != nil {
			return err
		}
		if err = insertDetailQuests(ctx, tx, quest.ID, quest.DetailQuests); err != nil {
			return err
		}
		if err = insertQuestLog(ctx, tx, model.NewQuestLog(quest, loggedDate)); err != nil {
			return err
		}

		progress(user)
		return updateUserProgress(ctx, tx, user)
	})
}

// insertQuest assigns the next per user sequence number.
func insertQuest(ctx context.Context, tx *sqlx.Tx, quest *model.Quest) error {
	seqQuery, seqArgs, err := squirrel.
		Select("COALESCE(MAX(seq), 0) + 1").
		From("quests").
		Where(squirrel.Eq{"user_id": quest.UserID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest seq query: %w", err)
	}

	if err = tx.GetContext(ctx, &quest.Seq, seqQuery, seqArgs...); err != nil {
		return fmt.Errorf("failed to get next quest seq: %w", err)
	}

	query, args, err := squirrel.
		Insert("quests").
		SetMap(map[string]interface{}{
			"user_id":             quest.UserID,
			"seq":                 quest.Seq,
			"title":               quest.Title,
			"description":         quest.Description,
			"state":               string(quest.State),
			"type":                string(quest.Type),
			"dead_line":           quest.DeadLine,
			"preference_quest_id": quest.PreferenceQuestID,
		}).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest insert query: %w", err)
	}

	err = tx.QueryRowxContext(ctx, query, args...).Scan(&quest.ID, &quest.CreatedAt, &quest.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert quest: %w", err)
	}
	return nil
}

func insertDetailQuests(ctx context.Context, tx *sqlx.Tx, questID int64, details []*model.DetailQuest) error {
	for _, d := range details {
		d.QuestID = questID

		query, args, err := squirrel.
			Insert("detail_quests").
			SetMap(map[string]interface{}{
				"quest_id":     d.QuestID,
				"title":        d.Title,
				"type":         string(d.Type),
				"state":        string(d.State),
				"target_count": d.TargetCount,
				"count":        d.Count,
			}).
			Suffix("RETURNING id").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build detail quest insert query: %w", err)
		}

		if err = tx.QueryRowxContext(ctx, query, args...).Scan(&d.ID); err != nil {
			return fmt.Errorf("failed to insert detail quest: %w", err)
		}
	}
	return nil
}

func (r *Repository) GetQuest(ctx context.Context, id int64) (*model.Quest, error) {
	var row Quest
	query, args, err := squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"id": id}).
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

	quests := []*model.Quest{row.toModel()}
	if err = r.attachDetailQuests(ctx, quests); err != nil {
		return nil, err
	}

	return quests[0], nil
}

func (r *Repository) attachDetailQuests(ctx context.Context, quests []*model.Quest) error {
	if len(quests) == 0 {
		return nil
	}

	byID := make(map[int64]*model.Quest, len(quests))
	ids := make([]int64, 0, len(quests))
	for _, q := range quests {
		byID[q.ID] = q
		ids = append(ids, q.ID)
	}

	query, args, err := squirrel.
		Select(detailQuestColumns...).
		From("detail_quests").
		Where("quest_id = ANY(?)", pq.Array(ids)).
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	var rows []DetailQuest
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("failed to get detail quests: %w", err)
	}

	for i := range rows {
		if q, ok := byID[rows[i].QuestID]; ok {
			q.DetailQuests = append(q.DetailQuests, rows[i].toModel())
		}
	}
	return nil
}

func (r *Repository) selectQuests(ctx context.Context, builder squirrel.SelectBuilder) ([]*model.Quest, error) {
	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Quest
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	quests := make([]*model.Quest, len(rows))
	for i := range rows {
		quests[i] = rows[i].toModel()
	}

	if err = r.attachDetailQuests(ctx, quests); err != nil {
		return nil, err
	}
	return quests, nil
}

// GetCurrentQuests returns the user's in progress quests created since the
// given reset.
func (r *Repository) GetCurrentQuests(ctx context.Context, userID int64, since time.Time) ([]*model.Quest, error) {
	return r.selectQuests(ctx, squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"user_id": userID, "state": string(model.QuestStateProceed)}).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("id"))
}

func (r *Repository) SearchQuests(ctx context.Context, cond model.QuestSearchCondition, page model.PageRequest) (model.Page[*model.Quest], error) {
	result := model.Page[*model.Quest]{Items: []*model.Quest{}, Page: page.Page, Size: page.Size}

	where := squirrel.And{squirrel.Eq{"user_id": cond.UserID}}
	if cond.State != nil {
		where = append(where, squirrel.Eq{"state": string(*cond.State)})
	} else {
		where = append(where, squirrel.NotEq{"state": string(model.QuestStateDelete)})
	}
	if cond.CreatedFrom != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *cond.CreatedFrom})
	}
	if cond.CreatedTo != nil {
		where = append(where, squirrel.Lt{"created_at": *cond.CreatedTo})
	}
	if cond.IDs != nil {
		if len(cond.IDs) == 0 {
			return result, nil
		}
		where = append(where, squirrel.Expr("id = ANY(?)", pq.Array(cond.IDs)))
	}

	countQuery, countArgs, err := squirrel.
		Select("COUNT(*)").
		From("quests").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return result, err
	}
	if err = r.db.GetContext(ctx, &result.Total, countQuery, countArgs...); err != nil {
		return result, fmt.Errorf("failed to count quests: %w", err)
	}
	if result.Total == 0 {
		return result, nil
	}

	quests, err := r.selectQuests(ctx, squirrel.
		Select(questColumns...).
		From("quests").
		Where(where).
		OrderBy("id DESC").
		Limit(uint64(page.Size)).
		Offset(page.Offset()))
	if err != nil {
		return result, fmt.Errorf("failed to search quests: %w", err)
	}

	result.Items = quests
	return result, nil
}

// TransitionQuest moves an in progress quest to its new state, writes the
// matching quest log and, when progress is given, applies it to the owner
// under a row lock. A quest that already left PROCEED is reported as
// model.ErrQuestNotProceed and nothing is written.
func (r *Repository) TransitionQuest(ctx context.Context, quest *model.Quest, loggedDate time.Time, progress func(user *model.User)) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		err := updateQuest(ctx, tx, quest, squirrel.Eq{"state": string(model.QuestStateProceed)}, model.ErrQuestNotProceed)
		if err != nil {
			return err
		}

		if err = insertQuestLog(ctx, tx, model.NewQuestLog(quest, loggedDate)); err != nil {
			return err
		}

		if progress == nil {
			return nil
		}

		user, err := lockUser(ctx, tx, quest.UserID)
		if err != nil {
			return err
		}

		progress(user)
		return updateUserProgress(ctx, tx, user)
	})
}

// DeleteQuest marks the quest deleted unless it already is.
func (r *Repository) DeleteQuest(ctx context.Context, quest *model.Quest) error {
	return updateQuest(ctx, r.db, quest, squirrel.NotEq{"state": string(model.QuestStateDelete)}, model.ErrQuestDeleted)
}

// UpdateQuestWithDetails writes an in progress quest and syncs its detail
// quests: details with an id are updated in place, details without one are
// inserted and the rest are removed.
func (r *Repository) UpdateQuestWithDetails(ctx context.Context, quest *model.Quest) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		err := updateQuest(ctx, tx, quest, squirrel.Eq{"state": string(model.QuestStateProceed)}, model.ErrQuestNotProceed)
		if err != nil {
			return err
		}

		kept := make([]int64, 0, len(quest.DetailQuests))
		var added []*model.DetailQuest
		for _, d := range quest.DetailQuests {
			if d.ID == 0 {
				added = append(added, d)
				continue
			}
			kept = append(kept, d.ID)
		}

		query, args, err := squirrel.
			Delete("detail_quests").
			Where(squirrel.Eq{"quest_id": quest.ID}).
			Where("NOT (id = ANY(?))", pq.Array(kept)).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build detail quest delete query: %w", err)
		}

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete detail quests: %w", err)
		}

		for _, d := range quest.DetailQuests {
			if d.ID == 0 {
				continue
			}
			if err = updateDetailQuest(ctx, tx, d); err != nil {
				return err
			}
		}

		return insertDetailQuests(ctx, tx, quest.ID, added)
	})
}

// updateQuest writes the quest row when it still matches from. No matching
// row is reported as conflict.
func updateQuest(ctx context.Context, tx sqlx.ExecerContext, quest *model.Quest, from squirrel.Sqlizer, conflict error) error {
	query, args, err := squirrel.
		Update("quests").
		SetMap(map[string]interface{}{
			"title":       quest.Title,
			"description": quest.Description,
			"state":       string(quest.State),
			"type":        string(quest.Type),
			"dead_line":   quest.DeadLine,
			"updated_at":  squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": quest.ID}).
		Where(from).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest update query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return conflict
	}
	return nil
}

func (r *Repository) UpdateDetailQuest(ctx context.Context, detail *model.DetailQuest) error {
	return updateDetailQuest(ctx, r.db, detail)
}

func updateDetailQuest(ctx context.Context, tx sqlx.ExecerContext, detail *model.DetailQuest) error {
	query, args, err := squirrel.
		Update("detail_quests").
		SetMap(map[string]interface{}{
			"title":        detail.Title,
			"type":         string(detail.Type),
			"state":        string(detail.State),
			"target_count": detail.TargetCount,
			"count":        detail.Count,
		}).
		Where(squirrel.Eq{"id": detail.ID, "quest_id": detail.QuestID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update detail quest: %w", err)
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

// GetDeadLineExceededQuests pages through in progress quests whose deadline
// is at or before target, keyed on id.
func (r *Repository) GetDeadLineExceededQuests(ctx context.Context, target time.Time, afterID int64, limit int) ([]*model.Quest, error) {
	return r.selectQuests(ctx, squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"state": string(model.QuestStateProceed)}).
		Where(squirrel.LtOrEq{"dead_line": target}).
		Where(squirrel.Gt{"id": afterID}).
		OrderBy("id").
		Limit(uint64(limit)))
}

// GetProceedQuestsCreatedBefore pages through in progress quests created
// before the given reset, keyed on id.
func (r *Repository) GetProceedQuestsCreatedBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*model.Quest, error) {
	return r.selectQuests(ctx, squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"state": string(model.QuestStateProceed)}).
		Where(squirrel.Lt{"created_at": before}).
		Where(squirrel.Gt{"id": afterID}).
		OrderBy("id").
		Limit(uint64(limit)))
}

// FailQuests moves the quests to FAIL and writes their quest logs in one
// transaction. Quests no longer in progress are skipped; the ids actually
// failed are returned.
func (r *Repository) FailQuests(ctx context.Context, quests []*model.Quest, loggedDate time.Time) ([]int64, error) {
	if len(quests) == 0 {
		return []int64{}, nil
	}

	ids := make([]int64, len(quests))
	for i, q := range quests {
		ids[i] = q.ID
	}

	var failed []int64
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("quests").
			Set("state", string(model.QuestStateFail)).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where("id = ANY(?)", pq.Array(ids)).
			Where(squirrel.Eq{"state": string(model.QuestStateProceed)}).
			Suffix("RETURNING id").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest fail query: %w", err)
		}

		if err = tx.SelectContext(ctx, &failed, query, args...); err != nil {
			return fmt.Errorf("failed to fail quests: %w", err)
		}
		if len(failed) == 0 {
			return nil
		}

		failedSet := make(map[int64]struct{}, len(failed))
		for _, id := range failed {
			failedSet[id] = struct{}{}
		}

		builder := squirrel.
			Insert("quest_logs").
			Columns("quest_id", "user_id", "state", "type", "logged_date")
		for _, q := range quests {
			if _, ok := failedSet[q.ID]; !ok {
				continue
			}
			builder = builder.Values(q.ID, q.UserID, string(model.QuestStateFail), string(q.Type), loggedDate)
		}

		logQuery, logArgs, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest log insert query: %w", err)
		}

		if _, err = tx.ExecContext(ctx, logQuery, logArgs...); err != nil {
			return fmt.Errorf("failed to insert quest logs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return failed, nil
}
