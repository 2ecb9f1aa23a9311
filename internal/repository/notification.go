package repository

import (
	"context"
	"fmt"
	"time"

	"dailyquest/internal/model"

	"github.com/Masterminds/squirrel"
)

type Notification struct {
	ID          int64      `db:"id"`
	UserID      int64      `db:"user_id"`
	Type        string     `db:"type"`
	Title       string     `db:"title"`
	Content     string     `db:"content"`
	Metadata    string     `db:"metadata"`
	ConfirmedAt *time.Time `db:"confirmed_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

var notificationColumns = []string{
	"id", "user_id", "type", "title", "content", "metadata", "confirmed_at", "deleted_at", "created_at",
}

func (n *Notification) toModel() *model.Notification {
	return &model.Notification{
		ID:          n.ID,
		UserID:      n.UserID,
		Type:        model.NotificationType(n.Type),
		Title:       n.Title,
		Content:     n.Content,
		Metadata:    n.Metadata,
		ConfirmedAt: n.ConfirmedAt,
		DeletedAt:   n.DeletedAt,
		CreatedAt:   n.CreatedAt,
	}
}

// CreateNotifications stores the notifications and fills in their ids.
func (r *Repository) CreateNotifications(ctx context.Context, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	builder := squirrel.
		Insert("notifications").
		Columns("user_id", "type", "title", "content", "metadata")
	for _, n := range notifications {
		builder = builder.Values(n.UserID, string(n.Type), n.Title, n.Content, n.Metadata)
	}

	query, args, err := builder.
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build notification insert query: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert notifications: %w", err)
	}
	defer rows.Close()

	for i := 0; rows.Next() && i < len(notifications); i++ {
		if err = rows.Scan(&notifications[i].ID, &notifications[i].CreatedAt); err != nil {
			return fmt.Errorf("failed to scan notification: %w", err)
		}
	}
	return rows.Err()
}

func notificationFilter(userID int64, cond model.NotificationCondition) squirrel.And {
	where := squirrel.And{
		squirrel.Eq{"user_id": userID, "deleted_at": nil},
	}
	if cond.Type != nil {
		where = append(where, squirrel.Eq{"type": string(*cond.Type)})
	}
	if cond.Unconfirmed {
		where = append(where, squirrel.Eq{"confirmed_at": nil})
	}
	return where
}

func (r *Repository) ListNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, page model.PageRequest) (model.Page[*model.Notification], error) {
	result := model.Page[*model.Notification]{Page: page.Page, Size: page.Size}
	where := notificationFilter(userID, cond)

	total, err := r.count(ctx, squirrel.Select("COUNT(*)").From("notifications").Where(where))
	if err != nil {
		return result, fmt.Errorf("failed to count notifications: %w", err)
	}
	result.Total = total

	query, args, err := squirrel.
		Select(notificationColumns...).
		From("notifications").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Size)).
		Offset(page.Offset()).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return result, err
	}

	var rows []Notification
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return result, fmt.Errorf("failed to list notifications: %w", err)
	}

	result.Items = make([]*model.Notification, len(rows))
	for i := range rows {
		result.Items[i] = rows[i].toModel()
	}
	return result, nil
}

func (r *Repository) markNotifications(ctx context.Context, column string, where squirrel.Sqlizer, now time.Time) (int64, error) {
	query, args, err := squirrel.
		Update("notifications").
		Set(column, now).
		Where(where).
		Where(squirrel.Eq{column: nil}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ConfirmNotification returns ErrNotFound when the notification does not
// exist, belongs to another user or was deleted. Confirming twice is a no-op.
func (r *Repository) ConfirmNotification(ctx context.Context, userID, id int64, now time.Time) error {
	exists, err := r.notificationExists(ctx, userID, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	where := squirrel.Eq{"id": id, "user_id": userID, "deleted_at": nil}
	_, err = r.markNotifications(ctx, "confirmed_at", where, now)
	return err
}

func (r *Repository) ConfirmAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, now time.Time) (int64, error) {
	return r.markNotifications(ctx, "confirmed_at", notificationFilter(userID, cond), now)
}

func (r *Repository) DeleteNotification(ctx context.Context, userID, id int64, now time.Time) error {
	affected, err := r.markNotifications(ctx, "deleted_at", squirrel.Eq{"id": id, "user_id": userID}, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, now time.Time) (int64, error) {
	return r.markNotifications(ctx, "deleted_at", notificationFilter(userID, cond), now)
}

func (r *Repository) notificationExists(ctx context.Context, userID, id int64) (bool, error) {
	total, err := r.count(ctx, squirrel.
		Select("COUNT(*)").
		From("notifications").
		Where(squirrel.Eq{"id": id, "user_id": userID, "deleted_at": nil}))
	if err != nil {
		return false, err
	}
	return total > 0, nil
}
