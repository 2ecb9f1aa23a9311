package mocks

import (
	"context"
	"time"

	"dailyquest/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockPreferenceQuestRepository struct {
	mock.Mock
}

func (m *MockPreferenceQuestRepository) CreatePreferenceQuest(ctx context.Context, p *model.PreferenceQuest) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPreferenceQuestRepository) GetPreferenceQuest(ctx context.Context, userID, id int64) (*model.PreferenceQuest, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreferenceQuest), args.Error(1)
}

func (m *MockPreferenceQuestRepository) GetActivePreferenceQuests(ctx context.Context, userID int64) ([]*model.PreferenceQuest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PreferenceQuest), args.Error(1)
}

func (m *MockPreferenceQuestRepository) UpdatePreferenceQuest(ctx context.Context, p *model.PreferenceQuest) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPreferenceQuestRepository) DeletePreferenceQuest(ctx context.Context, userID, id int64, now time.Time) error {
	args := m.Called(ctx, userID, id, now)
	return args.Error(0)
}
