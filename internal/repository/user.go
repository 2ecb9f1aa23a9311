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

type User struct {
	ID                      int64      `db:"id"`
	OAuth2ID                string     `db:"oauth2_id"`
	Provider                string     `db:"provider"`
	Nickname                string     `db:"nickname"`
	Role                    string     `db:"role"`
	CoreTime                int        `db:"core_time"`
	CoreTimeLastModifiedAt  *time.Time `db:"core_time_last_modified_at"`
	Exp                     int64      `db:"exp"`
	Gold                    int64      `db:"gold"`
	GoldEarnAmount          int64      `db:"gold_earn_amount"`
	QuestRegistrationCount  int64      `db:"quest_registration_count"`
	QuestCompletionCount    int64      `db:"quest_completion_count"`
	CurrentRegistrationDays int64      `db:"current_registration_days"`
	CurrentCompletionDays   int64      `db:"current_completion_days"`
	MaxRegistrationDays     int64      `db:"max_registration_days"`
	MaxCompletionDays       int64      `db:"max_completion_days"`
	LastRegistrationDate    *time.Time `db:"last_registration_date"`
	LastCompletionDate      *time.Time `db:"last_completion_date"`
	PerfectDayCount         int64      `db:"perfect_day_count"`
	CreatedAt               time.Time  `db:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at"`
}

var userColumns = []string{
	"id", "oauth2_id", "provider", "nickname", "role", "core_time", "core_time_last_modified_at",
	"exp", "gold", "gold_earn_amount", "quest_registration_count", "quest_completion_count",
	"current_registration_days", "current_completion_days", "max_registration_days", "max_completion_days",
	"last_registration_date", "last_completion_date", "perfect_day_count", "created_at", "updated_at",
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:                      u.ID,
		OAuth2ID:                u.OAuth2ID,
		Provider:                model.ProviderType(u.Provider),
		Nickname:                u.Nickname,
		Role:                    model.Role(u.Role),
		CoreTime:                u.CoreTime,
		CoreTimeLastModifiedAt:  u.CoreTimeLastModifiedAt,
		Exp:                     u.Exp,
		Gold:                    u.Gold,
		GoldEarnAmount:          u.GoldEarnAmount,
		QuestRegistrationCount:  u.QuestRegistrationCount,
		QuestCompletionCount:    u.QuestCompletionCount,
		CurrentRegistrationDays: u.CurrentRegistrationDays,
		CurrentCompletionDays:   u.CurrentCompletionDays,
		MaxRegistrationDays:     u.MaxRegistrationDays,
		MaxCompletionDays:       u.MaxCompletionDays,
		LastRegistrationDate:    u.LastRegistrationDate,
		LastCompletionDate:      u.LastCompletionDate,
		PerfectDayCount:         u.PerfectDayCount,
		CreatedAt:               u.CreatedAt,
		UpdatedAt:               u.UpdatedAt,
	}
}

func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"oauth2_id": user.OAuth2ID,
			"provider":  string(user.Provider),
			"nickname":  user.Nickname,
			"role":      string(user.Role),
			"core_time": user.CoreTime,
		}).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	err = r.db.QueryRowxContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *Repository) getUser(ctx context.Context, where squirrel.Sqlizer) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"id": id})
}

func (r *Repository) GetUserByOAuth2ID(ctx context.Context, provider model.ProviderType, oauth2ID string) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"provider": string(provider), "oauth2_id": oauth2ID})
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where("id = ANY(?)", pq.Array(ids)).
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []User
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	users := make([]*model.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toModel()
	}
	return users, nil
}

func (r *Repository) ExistsNickname(ctx context.Context, nickname string) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		Prefix("SELECT EXISTS (").
		From("users").
		Where(squirrel.Eq{"nickname": nickname}).
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var exists bool
	if err = r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateUser writes the profile columns of the user. Progress columns are
// only written by quest transitions and the perfect day credit.
func (r *Repository) UpdateUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"nickname":                   user.Nickname,
			"role":                       string(user.Role),
			"core_time":                  user.CoreTime,
			"core_time_last_modified_at": user.CoreTimeLastModifiedAt,
			"updated_at":                 squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": user.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
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

// lockUser reads the user and holds its row until tx ends.
func lockUser(ctx context.Context, tx *sqlx.Tx, id int64) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR NO KEY UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	return user.toModel(), nil
}

func updateUserProgress(ctx context.Context, tx *sqlx.Tx, user *model.User) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"exp":                       user.Exp,
			"gold":                      user.Gold,
			"gold_earn_amount":          user.GoldEarnAmount,
			"quest_registration_count":  user.QuestRegistrationCount,
			"quest_completion_count":    user.QuestCompletionCount,
			"current_registration_days": user.CurrentRegistrationDays,
			"current_completion_days":   user.CurrentCompletionDays,
			"max_registration_days":     user.MaxRegistrationDays,
			"max_completion_days":       user.MaxCompletionDays,
			"last_registration_date":    user.LastRegistrationDate,
			"last_completion_date":      user.LastCompletionDate,
			"updated_at":                squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": user.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user progress query: %w", err)
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update user progress: %w", err)
	}
	return nil
}

// CreditPerfectDay increases the perfect day count of every user not yet
// credited for loggedDate and returns the ids credited by this call.
func (r *Repository) CreditPerfectDay(ctx context.Context, loggedDate time.Time, userIDs []int64) ([]int64, error) {
	credited := []int64{}
	if len(userIDs) == 0 {
		return credited, nil
	}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		builder := squirrel.
			Insert("perfect_day_logs").
			Columns("user_id", "logged_date")
		for _, id := range userIDs {
			builder = builder.Values(id, loggedDate)
		}

		logQuery, logArgs, err := builder.
			Suffix("ON CONFLICT (user_id, logged_date) DO NOTHING RETURNING user_id").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build perfect day log query: %w", err)
		}

		if err = tx.SelectContext(ctx, &credited, logQuery, logArgs...); err != nil {
			return fmt.Errorf("failed to insert perfect day logs: %w", err)
		}
		if len(credited) == 0 {
			return nil
		}

		query, args, err := squirrel.
			Update("users").
			Set("perfect_day_count", squirrel.Expr("perfect_day_count + 1")).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where("id = ANY(?)", pq.Array(credited)).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build perfect day update query: %w", err)
		}

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to increase perfect day count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return credited, nil
}
