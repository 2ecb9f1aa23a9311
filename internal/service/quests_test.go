package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type questFixture struct {
	repo    *mocks.MockQuestRepository
	users   *mocks.MockUserRepository
	store   *mocks.MockSettingsStore
	indexer *mocks.MockQuestIndexer
	checker *mocks.MockAchievementChecker
	service *QuestService
	now     time.Time

	registered *model.User
}

func newQuestFixture(now time.Time) *questFixture {
	f := &questFixture{
		repo:    &mocks.MockQuestRepository{},
		users:   &mocks.MockUserRepository{},
		store:   &mocks.MockSettingsStore{},
		indexer: &mocks.MockQuestIndexer{},
		checker: &mocks.MockAchievementChecker{},
		now:     now,
	}

	settings := NewSettingsService(f.store, model.SystemSettings{QuestClearExp: 10, QuestClearGold: 5}, model.ExpTable{1: 10})
	f.service = NewQuestService(f.repo, f.users, settings, f.indexer, f.checker, time.UTC)
	f.service.now = func() time.Time { return now }
	return f
}

func (f *questFixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.store.AssertExpectations(t)
	f.indexer.AssertExpectations(t)
	f.checker.AssertExpectations(t)
}

func TestQuestService_CreateQuest(t *testing.T) {
	coreTimeNow := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	otherNow := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	tooLate := time.Date(2024, 5, 11, 5, 58, 0, 0, time.UTC)

	tests := []struct {
		name          string
		now           time.Time
		req           QuestRequest
		mockSetup     func(f *questFixture)
		expectedType  model.QuestType
		expectedError error
	}{
		{
			name: "registered during core time becomes a main quest",
			now:  coreTimeNow,
			req: QuestRequest{
				Title:   "  Read a book  ",
				Details: []DetailQuestRequest{{Title: "chapter", Type: model.DetailQuestTypeCount, TargetCount: 3}},
			},
			mockSetup: func(f *questFixture) {
				f.users.On("GetUserByID", mock.Anything, int64(1)).
					Return(&model.User{ID: 1, CoreTime: 8}, nil)
				f.repo.On("RegisterQuest", mock.Anything, mock.AnythingOfType("*model.Quest"),
					time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), mock.Anything).
					Run(func(args mock.Arguments) {
						args.Get(1).(*model.Quest).ID = 10
						owner := &model.User{ID: 1}
						args.Get(3).(func(*model.User))(owner)
						f.registered = owner
					}).
					Return(nil)
				f.indexer.On("Index", mock.Anything, mock.AnythingOfType("*model.Quest")).Return(nil)
				f.checker.On("RequestCheck", int64(1), mock.Anything).Return()
			},
			expectedType: model.QuestTypeMain,
		},
		{
			name: "registered outside core time becomes a sub quest",
			now:  otherNow,
			req:  QuestRequest{Title: "Walk"},
			mockSetup: func(f *questFixture) {
				f.users.On("GetUserByID", mock.Anything, int64(1)).
					Return(&model.User{ID: 1, CoreTime: 8}, nil)
				f.repo.On("RegisterQuest", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
				f.indexer.On("Index", mock.Anything, mock.Anything).Return(errors.New("index down"))
				f.checker.On("RequestCheck", int64(1), mock.Anything).Return()
			},
			expectedType: model.QuestTypeSub,
		},
		{
			name:          "blank title",
			now:           otherNow,
			req:           QuestRequest{Title: "   "},
			mockSetup:     func(f *questFixture) {},
			expectedError: ErrInvalidRequest,
		},
		{
			name: "too many detail quests",
			now:  otherNow,
			req: QuestRequest{Title: "t", Details: []DetailQuestRequest{
				{Title: "a", Type: model.DetailQuestTypeCheck},
				{Title: "b", Type: model.DetailQuestTypeCheck},
				{Title: "c", Type: model.DetailQuestTypeCheck},
				{Title: "d", Type: model.DetailQuestTypeCheck},
				{Title: "e", Type: model.DetailQuestTypeCheck},
				{Title: "f", Type: model.DetailQuestTypeCheck},
			}},
			mockSetup:     func(f *questFixture) {},
			expectedError: ErrInvalidRequest,
		},
		{
			name:          "deadline too close to the next reset",
			now:           otherNow,
			req:           QuestRequest{Title: "t", DeadLine: &tooLate},
			mockSetup:     func(f *questFixture) {},
			expectedError: ErrInvalidRequest,
		},
		{
			name: "unknown user",
			now:  otherNow,
			req:  QuestRequest{Title: "t"},
			mockSetup: func(f *questFixture) {
				f.users.On("GetUserByID", mock.Anything, int64(1)).Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name: "user removed before the registration commits",
			now:  otherNow,
			req:  QuestRequest{Title: "t"},
			mockSetup: func(f *questFixture) {
				f.users.On("GetUserByID", mock.Anything, int64(1)).
					Return(&model.User{ID: 1, CoreTime: 8}, nil)
				f.repo.On("RegisterQuest", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuestFixture(tt.now)
			tt.mockSetup(f)

			quest, err := f.service.CreateQuest(context.Background(), 1, tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, quest)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedType, quest.Type)
				assert.Equal(t, model.QuestStateProceed, quest.State)
				assert.Equal(t, strings.TrimSpace(tt.req.Title), quest.Title)
			}
			if f.registered != nil {
				assert.Equal(t, int64(1), f.registered.QuestRegistrationCount)
				assert.Equal(t, int64(1), f.registered.CurrentRegistrationDays)
			}

			f.assertExpectations(t)
		})
	}
}

func TestQuestService_CompleteQuest(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	loggedDate := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	errConn := errors.New("connection reset")

	tests := []struct {
		name          string
		quest         *model.Quest
		questErr      error
		mockSetup     func(f *questFixture, owner *model.User)
		expectedError error
		checkUser     func(t *testing.T, u *model.User)
	}{
		{
			name:  "main quest earns configured rewards",
			quest: &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, Type: model.QuestTypeMain},
			mockSetup: func(f *questFixture, owner *model.User) {
				f.store.On("GetSettings", mock.Anything).
					Return(&model.SystemSettings{QuestClearExp: 20, QuestClearGold: 7}, nil)
				f.repo.On("TransitionQuest", mock.Anything, mock.MatchedBy(func(q *model.Quest) bool {
					return q.State == model.QuestStateComplete
				}), loggedDate, mock.Anything).
					Run(func(args mock.Arguments) { args.Get(3).(func(*model.User))(owner) }).
					Return(nil)
				f.indexer.On("Index", mock.Anything, mock.Anything).Return(nil)
				f.checker.On("RequestCheck", int64(1), mock.Anything).Return()
			},
			checkUser: func(t *testing.T, u *model.User) {
				assert.Equal(t, int64(20), u.Exp)
				assert.Equal(t, int64(7), u.Gold)
				assert.Equal(t, int64(7), u.GoldEarnAmount)
				assert.Equal(t, int64(1), u.QuestCompletionCount)
			},
		},
		{
			name:  "sub quest earns nothing",
			quest: &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, Type: model.QuestTypeSub},
			mockSetup: func(f *questFixture, owner *model.User) {
				f.repo.On("TransitionQuest", mock.Anything, mock.Anything, loggedDate, mock.Anything).
					Run(func(args mock.Arguments) { args.Get(3).(func(*model.User))(owner) }).
					Return(nil)
				f.indexer.On("Index", mock.Anything, mock.Anything).Return(nil)
				f.checker.On("RequestCheck", int64(1), mock.Anything).Return()
			},
			checkUser: func(t *testing.T, u *model.User) {
				assert.Zero(t, u.Exp)
				assert.Equal(t, int64(1), u.CurrentCompletionDays)
			},
		},
		{
			name:  "completed concurrently by another request",
			quest: &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, Type: model.QuestTypeMain},
			mockSetup: func(f *questFixture, owner *model.User) {
				f.store.On("GetSettings", mock.Anything).
					Return(&model.SystemSettings{QuestClearExp: 20, QuestClearGold: 7}, nil)
				f.repo.On("TransitionQuest", mock.Anything, mock.Anything, loggedDate, mock.Anything).
					Return(model.ErrQuestNotProceed)
			},
			expectedError: model.ErrQuestNotProceed,
		},
		{
			name:  "repository failure skips indexing",
			quest: &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, Type: model.QuestTypeSub},
			mockSetup: func(f *questFixture, owner *model.User) {
				f.repo.On("TransitionQuest", mock.Anything, mock.Anything, loggedDate, mock.Anything).
					Return(errConn)
			},
			expectedError: errConn,
		},
		{
			name: "incomplete detail quests",
			quest: &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, DetailQuests: []*model.DetailQuest{
				{ID: 1, State: model.DetailQuestStateProceed, TargetCount: 2},
			}},
			mockSetup:     func(f *questFixture, owner *model.User) {},
			expectedError: model.ErrDetailQuestsIncomplete,
		},
		{
			name:          "quest of another user",
			quest:         &model.Quest{ID: 5, UserID: 2, State: model.QuestStateProceed},
			mockSetup:     func(f *questFixture, owner *model.User) {},
			expectedError: ErrForbidden,
		},
		{
			name:          "missing quest",
			questErr:      repository.ErrNotFound,
			mockSetup:     func(f *questFixture, owner *model.User) {},
			expectedError: ErrQuestNotFound,
		},
		{
			name:          "already discarded",
			quest:         &model.Quest{ID: 5, UserID: 1, State: model.QuestStateDiscard},
			mockSetup:     func(f *questFixture, owner *model.User) {},
			expectedError: model.ErrQuestNotProceed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuestFixture(now)
			owner := &model.User{ID: 1, CoreTime: 8}

			f.repo.On("GetQuest", mock.Anything, int64(5)).Return(tt.quest, tt.questErr)
			tt.mockSetup(f, owner)

			err := f.service.CompleteQuest(context.Background(), 1, 5)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Zero(t, owner.Exp)
				assert.Zero(t, owner.QuestCompletionCount)
			} else {
				require.NoError(t, err)
				assert.Equal(t, model.QuestStateComplete, tt.quest.State)
				tt.checkUser(t, owner)
			}

			f.assertExpectations(t)
		})
	}
}

func TestQuestService_DeleteQuest(t *testing.T) {
	f := newQuestFixture(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	quest := &model.Quest{ID: 5, UserID: 1, State: model.QuestStateComplete}

	f.repo.On("GetQuest", mock.Anything, int64(5)).Return(quest, nil)
	f.repo.On("DeleteQuest", mock.Anything, quest).Return(nil)
	f.indexer.On("Index", mock.Anything, quest).Return(nil)

	err := f.service.DeleteQuest(context.Background(), 1, 5)

	require.NoError(t, err)
	assert.Equal(t, model.QuestStateDelete, quest.State)
	f.assertExpectations(t)
}

func TestQuestService_DiscardQuest(t *testing.T) {
	f := newQuestFixture(time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC))
	quest := &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, Type: model.QuestTypeSub}

	f.repo.On("GetQuest", mock.Anything, int64(5)).Return(quest, nil)
	f.repo.On("TransitionQuest", mock.Anything, quest, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), mock.Anything).
		Run(func(args mock.Arguments) {
			assert.Nil(t, args.Get(3).(func(*model.User)))
		}).
		Return(nil)
	f.indexer.On("Index", mock.Anything, quest).Return(nil)

	err := f.service.DiscardQuest(context.Background(), 1, 5)

	require.NoError(t, err)
	assert.Equal(t, model.QuestStateDiscard, quest.State)
	f.assertExpectations(t)
}

func TestQuestService_UpdateQuest(t *testing.T) {
	f := newQuestFixture(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	quest := &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, Type: model.QuestTypeMain, Title: "old"}

	f.repo.On("GetQuest", mock.Anything, int64(5)).Return(quest, nil)
	f.repo.On("UpdateQuestWithDetails", mock.Anything, quest).Return(nil)
	f.indexer.On("Index", mock.Anything, quest).Return(nil)

	updated, err := f.service.UpdateQuest(context.Background(), 1, 5, QuestRequest{
		Title:   "new",
		Details: []DetailQuestRequest{{Title: "step", Type: model.DetailQuestTypeCheck}},
	})

	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, model.QuestTypeMain, updated.Type)
	require.Len(t, updated.DetailQuests, 1)
	assert.Equal(t, int64(5), updated.DetailQuests[0].QuestID)
	assert.Equal(t, 1, updated.DetailQuests[0].TargetCount)
	f.assertExpectations(t)
}

func TestQuestService_UpdateQuestKeepsDetailProgress(t *testing.T) {
	f := newQuestFixture(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	quest := &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, Title: "run", DetailQuests: []*model.DetailQuest{
		{ID: 7, QuestID: 5, Title: "laps", Type: model.DetailQuestTypeCount, State: model.DetailQuestStateProceed, TargetCount: 10, Count: 4},
		{ID: 8, QuestID: 5, Title: "stretch", Type: model.DetailQuestTypeCheck, State: model.DetailQuestStateComplete, TargetCount: 1, Count: 1},
	}}

	f.repo.On("GetQuest", mock.Anything, int64(5)).Return(quest, nil)
	f.repo.On("UpdateQuestWithDetails", mock.Anything, quest).Return(nil)
	f.indexer.On("Index", mock.Anything, quest).Return(nil)

	updated, err := f.service.UpdateQuest(context.Background(), 1, 5, QuestRequest{
		Title: "run",
		Details: []DetailQuestRequest{
			{ID: 7, Title: "laps", Type: model.DetailQuestTypeCount, TargetCount: 12},
			{ID: 8, Title: "stretch", Type: model.DetailQuestTypeCount, TargetCount: 3},
			{Title: "cool down", Type: model.DetailQuestTypeCheck},
		},
	})

	require.NoError(t, err)
	require.Len(t, updated.DetailQuests, 3)

	assert.Equal(t, int64(7), updated.DetailQuests[0].ID)
	assert.Equal(t, 4, updated.DetailQuests[0].Count)
	assert.Equal(t, 12, updated.DetailQuests[0].TargetCount)

	assert.Zero(t, updated.DetailQuests[1].ID)
	assert.Zero(t, updated.DetailQuests[1].Count)

	assert.Zero(t, updated.DetailQuests[2].ID)
	assert.Equal(t, model.DetailQuestStateProceed, updated.DetailQuests[2].State)
	f.assertExpectations(t)
}

func TestQuestService_SearchQuests(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	t.Run("keyword narrows by indexed ids", func(t *testing.T) {
		f := newQuestFixture(now)
		f.indexer.On("Search", mock.Anything, int64(1), "book", (*model.QuestState)(nil)).
			Return([]int64{3, 1}, nil)
		f.repo.On("SearchQuests", mock.Anything, mock.MatchedBy(func(c model.QuestSearchCondition) bool {
			return c.UserID == 1 && assert.ObjectsAreEqual([]int64{3, 1}, c.IDs) &&
				c.CreatedFrom.Equal(time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)) &&
				c.CreatedTo.Equal(time.Date(2024, 5, 4, 6, 0, 0, 0, time.UTC))
		}), model.PageRequest{Page: 0, Size: 10}).
			Return(model.Page[*model.Quest]{Size: 10, Total: 2}, nil)

		page, err := f.service.SearchQuests(context.Background(), 1, QuestSearchRequest{
			Keyword:   " book ",
			StartDate: &start,
			EndDate:   &end,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		f.assertExpectations(t)
	})

	t.Run("no keyword match yields an empty restriction", func(t *testing.T) {
		f := newQuestFixture(now)
		f.indexer.On("Search", mock.Anything, int64(1), "zzz", (*model.QuestState)(nil)).Return(nil, nil)
		f.repo.On("SearchQuests", mock.Anything, mock.MatchedBy(func(c model.QuestSearchCondition) bool {
			return c.IDs != nil && len(c.IDs) == 0
		}), mock.Anything).Return(model.Page[*model.Quest]{}, nil)

		_, err := f.service.SearchQuests(context.Background(), 1, QuestSearchRequest{Keyword: "zzz"})

		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("end before start", func(t *testing.T) {
		f := newQuestFixture(now)

		_, err := f.service.SearchQuests(context.Background(), 1, QuestSearchRequest{StartDate: &end, EndDate: &start})

		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestQuestService_InteractWithDetailQuest(t *testing.T) {
	f := newQuestFixture(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	quest := &model.Quest{ID: 5, UserID: 1, State: model.QuestStateProceed, DetailQuests: []*model.DetailQuest{
		{ID: 7, QuestID: 5, Type: model.DetailQuestTypeCount, State: model.DetailQuestStateProceed, TargetCount: 3, Count: 2},
	}}

	f.repo.On("GetQuest", mock.Anything, int64(5)).Return(quest, nil)
	f.repo.On("UpdateDetailQuest", mock.Anything, quest.DetailQuests[0]).Return(nil)

	detail, err := f.service.InteractWithDetailQuest(context.Background(), 1, 5, 7, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, detail.Count)
	assert.True(t, detail.IsCompleted())

	_, err = f.service.InteractWithDetailQuest(context.Background(), 1, 5, 99, nil)
	assert.ErrorIs(t, err, model.ErrDetailQuestNotFound)

	f.assertExpectations(t)
}

func TestQuestService_CreateQuestFromPreferenceQuest(t *testing.T) {
	f := newQuestFixture(time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC))
	templateID := int64(4)

	f.users.On("GetUserByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, CoreTime: 8}, nil)
	f.repo.On("RegisterQuest", mock.Anything, mock.MatchedBy(func(q *model.Quest) bool {
		return q.PreferenceQuestID != nil && *q.PreferenceQuestID == templateID
	}), mock.Anything, mock.Anything).Return(nil)
	f.indexer.On("Index", mock.Anything, mock.Anything).Return(nil)
	f.checker.On("RequestCheck", int64(1), mock.Anything).Return()

	quest, err := f.service.CreateQuest(context.Background(), 1, QuestRequest{Title: "Morning run", PreferenceQuestID: &templateID})

	require.NoError(t, err)
	assert.Equal(t, &templateID, quest.PreferenceQuestID)
	f.assertExpectations(t)
}
