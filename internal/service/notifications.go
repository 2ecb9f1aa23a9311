package service

import (
	"context"
	"errors"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/pkg/logger"

	"go.uber.org/zap"
)

type NotificationService struct {
	repo   NotificationRepository
	users  UserRepository
	pusher Pusher
	now    func() time.Time
}

func NewNotificationService(repo NotificationRepository, users UserRepository, pusher Pusher) *NotificationService {
	return &NotificationService{
		repo:   repo,
		users:  users,
		pusher: pusher,
		now:    time.Now,
	}
}

// Notify stores the notifications and pushes them to their owners. Push
// failures are logged and do not fail the call.
func (s *NotificationService) Notify(ctx context.Context, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	if err := s.repo.CreateNotifications(ctx, notifications); err != nil {
		return err
	}

	if s.pusher == nil {
		return nil
	}

	ids := make([]int64, 0, len(notifications))
	seen := make(map[int64]struct{}, len(notifications))
	for _, n := range notifications {
		if _, ok := seen[n.UserID]; !ok {
			seen[n.UserID] = struct{}{}
			ids = append(ids, n.UserID)
		}
	}

	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		logger.Logger().Error("failed to load notification receivers", zap.Error(err))
		return nil
	}

	byID := make(map[int64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for _, n := range notifications {
		user, ok := byID[n.UserID]
		if !ok {
			continue
		}
		if err := s.pusher.Push(ctx, user, n); err != nil {
			logger.Logger().Warn("failed to push notification",
				zap.Int64("user_id", n.UserID),
				zap.Int64("notification_id", n.ID),
				zap.Error(err))
		}
	}

	return nil
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, page model.PageRequest) (model.Page[*model.Notification], error) {
	if cond.Type != nil && !cond.Type.Valid() {
		return model.Page[*model.Notification]{}, invalid("unknown notification type %q", *cond.Type)
	}
	return s.repo.ListNotifications(ctx, userID, cond, normalizePage(page))
}

func (s *NotificationService) ConfirmNotification(ctx context.Context, userID, id int64) error {
	err := s.repo.ConfirmNotification(ctx, userID, id, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationMissing
	}
	return err
}

func (s *NotificationService) ConfirmAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition) error {
	_, err := s.repo.ConfirmAllNotifications(ctx, userID, cond, s.now())
	return err
}

func (s *NotificationService) DeleteNotification(ctx context.Context, userID, id int64) error {
	err := s.repo.DeleteNotification(ctx, userID, id, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationMissing
	}
	return err
}

func (s *NotificationService) DeleteAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition) error {
	_, err := s.repo.DeleteAllNotifications(ctx, userID, cond, s.now())
	return err
}
