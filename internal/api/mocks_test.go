package api

import (
	"context"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/service"
	"dailyquest/pkg/auth"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
)

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetOrRegister(ctx context.Context, provider model.ProviderType, oauth2ID string) (*model.User, error) {
	args := m.Called(ctx, provider, oauth2ID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserService) GetPrincipal(ctx context.Context, userID int64) (*service.UserPrincipal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserPrincipal), args.Error(1)
}

func (m *mockUserService) UpdateUser(ctx context.Context, userID int64, req service.UserUpdateRequest) error {
	args := m.Called(ctx, userID, req)
	return args.Error(0)
}

func (m *mockUserService) IsNicknameDuplicated(ctx context.Context, nickname string) (bool, error) {
	args := m.Called(ctx, nickname)
	return args.Bool(0), args.Error(1)
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(ctx context.Context, provider model.ProviderType, oauth2ID string) (*auth.TokenPair, *model.User, error) {
	args := m.Called(ctx, provider, oauth2ID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*auth.TokenPair), args.Get(1).(*model.User), args.Error(2)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenPair), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

type mockQuestService struct {
	mock.Mock
}

func (m *mockQuestService) CreateQuest(ctx context.Context, userID int64, req service.QuestRequest) (*model.Quest, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *mockQuestService) GetQuest(ctx context.Context, userID, questID int64) (*model.Quest, error) {
	args := m.Called(ctx, userID, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *mockQuestService) GetCurrentQuests(ctx context.Context, userID int64) ([]*model.Quest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *mockQuestService) SearchQuests(ctx context.Context, userID int64, req service.QuestSearchRequest) (model.Page[*model.Quest], error) {
	args := m.Called(ctx, userID, req)
	return args.Get(0).(model.Page[*model.Quest]), args.Error(1)
}

func (m *mockQuestService) UpdateQuest(ctx context.Context, userID, questID int64, req service.QuestRequest) (*model.Quest, error) {
	args := m.Called(ctx, userID, questID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *mockQuestService) DeleteQuest(ctx context.Context, userID, questID int64) error {
	args := m.Called(ctx, userID, questID)
	return args.Error(0)
}

func (m *mockQuestService) CompleteQuest(ctx context.Context, userID, questID int64) error {
	args := m.Called(ctx, userID, questID)
	return args.Error(0)
}

func (m *mockQuestService) DiscardQuest(ctx context.Context, userID, questID int64) error {
	args := m.Called(ctx, userID, questID)
	return args.Error(0)
}

func (m *mockQuestService) InteractWithDetailQuest(ctx context.Context, userID, questID, detailID int64, count *int) (*model.DetailQuest, error) {
	args := m.Called(ctx, userID, questID, detailID, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DetailQuest), args.Error(1)
}

type mockQuestLogService struct {
	mock.Mock
}

func (m *mockQuestLogService) GetStatistics(ctx context.Context, userID int64, date time.Time, period model.StatisticsPeriod) ([]*model.QuestStatistics, error) {
	args := m.Called(ctx, userID, date, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestStatistics), args.Error(1)
}

type mockAchievementService struct {
	mock.Mock
}

func (m *mockAchievementService) CreateAchievement(ctx context.Context, req service.AchievementRequest) (*model.Achievement, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Achievement), args.Error(1)
}

func (m *mockAchievementService) UpdateAchievement(ctx context.Context, id int64, req service.AchievementUpdateRequest) (*model.Achievement, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Achievement), args.Error(1)
}

func (m *mockAchievementService) SetAchievementActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockAchievementService) ListAchievements(ctx context.Context, page model.PageRequest) (model.Page[*model.Achievement], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(model.Page[*model.Achievement]), args.Error(1)
}

func (m *mockAchievementService) GetAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.AchievedAchievement], error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).(model.Page[*model.AchievedAchievement]), args.Error(1)
}

func (m *mockAchievementService) GetNotAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.Achievement], error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).(model.Page[*model.Achievement]), args.Error(1)
}

type mockNotificationService struct {
	mock.Mock
}

func (m *mockNotificationService) ListNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, page model.PageRequest) (model.Page[*model.Notification], error) {
	args := m.Called(ctx, userID, cond, page)
	return args.Get(0).(model.Page[*model.Notification]), args.Error(1)
}

func (m *mockNotificationService) ConfirmNotification(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockNotificationService) ConfirmAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition) error {
	args := m.Called(ctx, userID, cond)
	return args.Error(0)
}

func (m *mockNotificationService) DeleteNotification(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockNotificationService) DeleteAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition) error {
	args := m.Called(ctx, userID, cond)
	return args.Error(0)
}

type mockSettingsService struct {
	mock.Mock
}

func (m *mockSettingsService) GetSettings(ctx context.Context) (*model.SystemSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SystemSettings), args.Error(1)
}

func (m *mockSettingsService) UpdateSettings(ctx context.Context, settings *model.SystemSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *mockSettingsService) GetExpTable(ctx context.Context) (model.ExpTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.ExpTable), args.Error(1)
}

func (m *mockSettingsService) UpdateExpTable(ctx context.Context, table model.ExpTable) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

type mockJobRunner struct {
	mock.Mock
}

func (m *mockJobRunner) Run(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *mockJobRunner) LastExecutions(ctx context.Context, name string, limit int) ([]*model.JobExecution, error) {
	args := m.Called(ctx, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.JobExecution), args.Error(1)
}

type mockPreferenceQuestService struct {
	mock.Mock
}

func (m *mockPreferenceQuestService) GetActivePreferenceQuests(ctx context.Context, userID int64) ([]*model.PreferenceQuest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PreferenceQuest), args.Error(1)
}

func (m *mockPreferenceQuestService) GetPreferenceQuest(ctx context.Context, userID, id int64) (*model.PreferenceQuest, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreferenceQuest), args.Error(1)
}

func (m *mockPreferenceQuestService) CreatePreferenceQuest(ctx context.Context, userID int64, req service.PreferenceQuestRequest) (*model.PreferenceQuest, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreferenceQuest), args.Error(1)
}

func (m *mockPreferenceQuestService) UpdatePreferenceQuest(ctx context.Context, userID, id int64, req service.PreferenceQuestRequest) (*model.PreferenceQuest, error) {
	args := m.Called(ctx, userID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreferenceQuest), args.Error(1)
}

func (m *mockPreferenceQuestService) DeletePreferenceQuest(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockPreferenceQuestService) RegisterQuest(ctx context.Context, userID, id int64) (*model.Quest, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

// echoStream greets the connection with the user id and closes it.
type echoStream struct{}

func (echoStream) Serve(userID int64, conn *websocket.Conn) {
	defer conn.Close()
	_ = conn.WriteJSON(map[string]int64{"user_id": userID})
}
