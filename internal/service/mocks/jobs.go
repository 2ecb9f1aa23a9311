package mocks

import (
	"context"

	"dailyquest/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) CreateJobExecution(ctx context.Context, e *model.JobExecution) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockJobRepository) UpdateJobExecution(ctx context.Context, e *model.JobExecution) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockJobRepository) GetLastJobExecutions(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error) {
	args := m.Called(ctx, jobName, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.JobExecution), args.Error(1)
}

type MockAchievementUnlocker struct {
	mock.Mock
}

func (m *MockAchievementUnlocker) UnlockAll(ctx context.Context, achievementType model.AchievementType, users []*model.User) ([]*model.Notification, error) {
	args := m.Called(ctx, achievementType, users)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Notification), args.Error(1)
}
