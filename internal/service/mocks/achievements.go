package mocks

import (
	"context"
	"time"

	"dailyquest/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockAchievementRepository struct {
	mock.Mock
}

func (m *MockAchievementRepository) CreateAchievement(ctx context.Context, a *model.Achievement) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAchievementRepository) GetAchievement(ctx context.Context, id int64) (*model.Achievement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Achievement), args.Error(1)
}

func (m *MockAchievementRepository) UpdateAchievement(ctx context.Context, a *model.Achievement) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAchievementRepository) ListAchievements(ctx context.Context, page model.PageRequest) (model.Page[*model.Achievement], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(model.Page[*model.Achievement]), args.Error(1)
}

func (m *MockAchievementRepository) GetNotAchievedAchievement(ctx context.Context, achievementType model.AchievementType, userID int64) (*model.Achievement, error) {
	args := m.Called(ctx, achievementType, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Achievement), args.Error(1)
}

func (m *MockAchievementRepository) GetAchievableAchievements(ctx context.Context, achievementType model.AchievementType, userID, value int64) ([]*model.Achievement, error) {
	args := m.Called(ctx, achievementType, userID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Achievement), args.Error(1)
}

func (m *MockAchievementRepository) GetAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.AchievedAchievement], error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).(model.Page[*model.AchievedAchievement]), args.Error(1)
}

func (m *MockAchievementRepository) GetNotAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.Achievement], error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).(model.Page[*model.Achievement]), args.Error(1)
}

func (m *MockAchievementRepository) SaveAchieveLogs(ctx context.Context, logs []*model.AchievementAchieveLog) ([]*model.AchievementAchieveLog, error) {
	args := m.Called(ctx, logs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AchievementAchieveLog), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) CreateNotifications(ctx context.Context, notifications []*model.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, page model.PageRequest) (model.Page[*model.Notification], error) {
	args := m.Called(ctx, userID, cond, page)
	return args.Get(0).(model.Page[*model.Notification]), args.Error(1)
}

func (m *MockNotificationRepository) ConfirmNotification(ctx context.Context, userID, id int64, now time.Time) error {
	args := m.Called(ctx, userID, id, now)
	return args.Error(0)
}

func (m *MockNotificationRepository) ConfirmAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, now time.Time) (int64, error) {
	args := m.Called(ctx, userID, cond, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) DeleteNotification(ctx context.Context, userID, id int64, now time.Time) error {
	args := m.Called(ctx, userID, id, now)
	return args.Error(0)
}

func (m *MockNotificationRepository) DeleteAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, now time.Time) (int64, error) {
	args := m.Called(ctx, userID, cond, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) Push(ctx context.Context, user *model.User, notification *model.Notification) error {
	args := m.Called(ctx, user, notification)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notifications []*model.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}
