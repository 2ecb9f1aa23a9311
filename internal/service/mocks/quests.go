package mocks

import (
	"context"
	"time"

	"dailyquest/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) RegisterQuest(ctx context.Context, quest *model.Quest, loggedDate time.Time, progress func(user *model.User)) error {
	args := m.Called(ctx, quest, loggedDate, progress)
	return args.Error(0)
}

func (m *MockQuestRepository) GetQuest(ctx context.Context, id int64) (*model.Quest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetCurrentQuests(ctx context.Context, userID int64, since time.Time) ([]*model.Quest, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) SearchQuests(ctx context.Context, cond model.QuestSearchCondition, page model.PageRequest) (model.Page[*model.Quest], error) {
	args := m.Called(ctx, cond, page)
	return args.Get(0).(model.Page[*model.Quest]), args.Error(1)
}

func (m *MockQuestRepository) TransitionQuest(ctx context.Context, quest *model.Quest, loggedDate time.Time, progress func(user *model.User)) error {
	args := m.Called(ctx, quest, loggedDate, progress)
	return args.Error(0)
}

func (m *MockQuestRepository) DeleteQuest(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestRepository) UpdateQuestWithDetails(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestRepository) UpdateDetailQuest(ctx context.Context, detail *model.DetailQuest) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

type MockQuestLogRepository struct {
	mock.Mock
}

func (m *MockQuestLogRepository) GetQuestLogCounts(ctx context.Context, userID int64, from, to time.Time) ([]model.QuestLogCount, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QuestLogCount), args.Error(1)
}

type MockQuestIndexer struct {
	mock.Mock
}

func (m *MockQuestIndexer) Index(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestIndexer) Search(ctx context.Context, userID int64, keyword string, state *model.QuestState) ([]int64, error) {
	args := m.Called(ctx, userID, keyword, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) SaveQuestDocument(ctx context.Context, doc *model.QuestDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) DeleteQuestDocument(ctx context.Context, userID, questID int64) error {
	args := m.Called(ctx, userID, questID)
	return args.Error(0)
}

func (m *MockDocumentStore) GetQuestDocuments(ctx context.Context, userID int64) ([]*model.QuestDocument, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestDocument), args.Error(1)
}

func (m *MockDocumentStore) GetQuestDocumentsVersion(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAchievementChecker struct {
	mock.Mock
}

func (m *MockAchievementChecker) RequestCheck(userID int64, types ...model.AchievementType) {
	m.Called(userID, types)
}

func (m *MockQuestRepository) GetDeadLineExceededQuests(ctx context.Context, target time.Time, afterID int64, limit int) ([]*model.Quest, error) {
	args := m.Called(ctx, target, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetProceedQuestsCreatedBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*model.Quest, error) {
	args := m.Called(ctx, before, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) FailQuests(ctx context.Context, quests []*model.Quest, loggedDate time.Time) ([]int64, error) {
	args := m.Called(ctx, quests, loggedDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockQuestLogRepository) GetPerfectDayUserIDs(ctx context.Context, loggedDate time.Time, afterID int64, limit int) ([]int64, error) {
	args := m.Called(ctx, loggedDate, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}
