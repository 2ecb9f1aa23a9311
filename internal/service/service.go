package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dailyquest/internal/model"
	"dailyquest/pkg/auth"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrNicknameDuplicated  = errors.New("nickname already in use")
	ErrCoreTimeNotAllowed  = errors.New("core time can be changed once a day")
	ErrQuestNotFound       = errors.New("quest not found")
	ErrForbidden           = errors.New("access to the resource is not allowed")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrAchievementExists   = errors.New("achievement with the same type and target already exists")
	ErrNotificationMissing = errors.New("notification not found")

	ErrPreferenceQuestNotFound = errors.New("preference quest not found")
)

// CoreTimeError carries the moment the next core time change is allowed.
type CoreTimeError struct {
	AvailableAt time.Time
}

func (e *CoreTimeError) Error() string {
	return fmt.Sprintf("%s, next change available at %s", ErrCoreTimeNotAllowed, e.AvailableAt.Format(time.RFC3339))
}

func (e *CoreTimeError) Is(target error) bool {
	return target == ErrCoreTimeNotAllowed
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

type UserServiceI interface {
	GetOrRegister(ctx context.Context, provider model.ProviderType, oauth2ID string) (*model.User, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	GetPrincipal(ctx context.Context, userID int64) (*UserPrincipal, error)
	UpdateUser(ctx context.Context, userID int64, req UserUpdateRequest) error
	IsNicknameDuplicated(ctx context.Context, nickname string) (bool, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByOAuth2ID(ctx context.Context, provider model.ProviderType, oauth2ID string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	ExistsNickname(ctx context.Context, nickname string) (bool, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type AuthServiceI interface {
	Login(ctx context.Context, provider model.ProviderType, oauth2ID string) (*auth.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// TokenStore keeps the ids of live refresh tokens.
type TokenStore interface {
	SaveRefreshToken(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	ConsumeRefreshToken(ctx context.Context, tokenID string) (int64, error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
}

type SettingsServiceI interface {
	GetSettings(ctx context.Context) (*model.SystemSettings, error)
	UpdateSettings(ctx context.Context, settings *model.SystemSettings) error
	GetExpTable(ctx context.Context) (model.ExpTable, error)
	UpdateExpTable(ctx context.Context, table model.ExpTable) error
}

type SettingsStore interface {
	GetSettings(ctx context.Context) (*model.SystemSettings, error)
	SaveSettings(ctx context.Context, settings *model.SystemSettings) error
	GetExpTable(ctx context.Context) (model.ExpTable, error)
	SaveExpTable(ctx context.Context, table model.ExpTable) error
}

type QuestServiceI interface {
	CreateQuest(ctx context.Context, userID int64, req QuestRequest) (*model.Quest, error)
	GetQuest(ctx context.Context, userID, questID int64) (*model.Quest, error)
	GetCurrentQuests(ctx context.Context, userID int64) ([]*model.Quest, error)
	SearchQuests(ctx context.Context, userID int64, req QuestSearchRequest) (model.Page[*model.Quest], error)
	UpdateQuest(ctx context.Context, userID, questID int64, req QuestRequest) (*model.Quest, error)
	DeleteQuest(ctx context.Context, userID, questID int64) error
	CompleteQuest(ctx context.Context, userID, questID int64) error
	DiscardQuest(ctx context.Context, userID, questID int64) error
	InteractWithDetailQuest(ctx context.Context, userID, questID, detailID int64, count *int) (*model.DetailQuest, error)
}

// QuestRepository writes every quest transition together with its quest log
// and the owner's progress in one transaction.
type QuestRepository interface {
	RegisterQuest(ctx context.Context, quest *model.Quest, loggedDate time.Time, progress func(user *model.User)) error
	GetQuest(ctx context.Context, id int64) (*model.Quest, error)
	GetCurrentQuests(ctx context.Context, userID int64, since time.Time) ([]*model.Quest, error)
	SearchQuests(ctx context.Context, cond model.QuestSearchCondition, page model.PageRequest) (model.Page[*model.Quest], error)
	TransitionQuest(ctx context.Context, quest *model.Quest, loggedDate time.Time, progress func(user *model.User)) error
	DeleteQuest(ctx context.Context, quest *model.Quest) error
	UpdateQuestWithDetails(ctx context.Context, quest *model.Quest) error
	UpdateDetailQuest(ctx context.Context, detail *model.DetailQuest) error
}

type QuestLogServiceI interface {
	GetStatistics(ctx context.Context, userID int64, date time.Time, period model.StatisticsPeriod) ([]*model.QuestStatistics, error)
}

type QuestLogRepository interface {
	GetQuestLogCounts(ctx context.Context, userID int64, from, to time.Time) ([]model.QuestLogCount, error)
}

type AchievementServiceI interface {
	CreateAchievement(ctx context.Context, req AchievementRequest) (*model.Achievement, error)
	UpdateAchievement(ctx context.Context, id int64, req AchievementUpdateRequest) (*model.Achievement, error)
	SetAchievementActive(ctx context.Context, id int64, active bool) error
	ListAchievements(ctx context.Context, page model.PageRequest) (model.Page[*model.Achievement], error)
	GetAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.AchievedAchievement], error)
	GetNotAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.Achievement], error)
}

type AchievementRepository interface {
	CreateAchievement(ctx context.Context, a *model.Achievement) error
	GetAchievement(ctx context.Context, id int64) (*model.Achievement, error)
	UpdateAchievement(ctx context.Context, a *model.Achievement) error
	ListAchievements(ctx context.Context, page model.PageRequest) (model.Page[*model.Achievement], error)
	GetNotAchievedAchievement(ctx context.Context, achievementType model.AchievementType, userID int64) (*model.Achievement, error)
	GetAchievableAchievements(ctx context.Context, achievementType model.AchievementType, userID, value int64) ([]*model.Achievement, error)
	GetAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.AchievedAchievement], error)
	GetNotAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.Achievement], error)
	SaveAchieveLogs(ctx context.Context, logs []*model.AchievementAchieveLog) ([]*model.AchievementAchieveLog, error)
}

// AchievementChecker schedules asynchronous achievement checks.
type AchievementChecker interface {
	RequestCheck(userID int64, types ...model.AchievementType)
}

type NotificationServiceI interface {
	ListNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, page model.PageRequest) (model.Page[*model.Notification], error)
	ConfirmNotification(ctx context.Context, userID, id int64) error
	ConfirmAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition) error
	DeleteNotification(ctx context.Context, userID, id int64) error
	DeleteAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition) error
}

type NotificationRepository interface {
	CreateNotifications(ctx context.Context, notifications []*model.Notification) error
	ListNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, page model.PageRequest) (model.Page[*model.Notification], error)
	ConfirmNotification(ctx context.Context, userID, id int64, now time.Time) error
	ConfirmAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, now time.Time) (int64, error)
	DeleteNotification(ctx context.Context, userID, id int64, now time.Time) error
	DeleteAllNotifications(ctx context.Context, userID int64, cond model.NotificationCondition, now time.Time) (int64, error)
}

// Pusher delivers a stored notification to a connected user.
type Pusher interface {
	Push(ctx context.Context, user *model.User, notification *model.Notification) error
}

// QuestIndexer keeps the quest search index in sync.
type QuestIndexer interface {
	Index(ctx context.Context, quest *model.Quest) error
	Search(ctx context.Context, userID int64, keyword string, state *model.QuestState) ([]int64, error)
}

// DocumentStore keeps quest documents per user. Every write bumps the user's
// document version.
type DocumentStore interface {
	SaveQuestDocument(ctx context.Context, doc *model.QuestDocument) error
	DeleteQuestDocument(ctx context.Context, userID, questID int64) error
	GetQuestDocuments(ctx context.Context, userID int64) ([]*model.QuestDocument, error)
	GetQuestDocumentsVersion(ctx context.Context, userID int64) (int64, error)
}

type PreferenceQuestServiceI interface {
	GetActivePreferenceQuests(ctx context.Context, userID int64) ([]*model.PreferenceQuest, error)
	GetPreferenceQuest(ctx context.Context, userID, id int64) (*model.PreferenceQuest, error)
	CreatePreferenceQuest(ctx context.Context, userID int64, req PreferenceQuestRequest) (*model.PreferenceQuest, error)
	UpdatePreferenceQuest(ctx context.Context, userID, id int64, req PreferenceQuestRequest) (*model.PreferenceQuest, error)
	DeletePreferenceQuest(ctx context.Context, userID, id int64) error
	RegisterQuest(ctx context.Context, userID, id int64) (*model.Quest, error)
}

type PreferenceQuestRepository interface {
	CreatePreferenceQuest(ctx context.Context, p *model.PreferenceQuest) error
	GetPreferenceQuest(ctx context.Context, userID, id int64) (*model.PreferenceQuest, error)
	GetActivePreferenceQuests(ctx context.Context, userID int64) ([]*model.PreferenceQuest, error)
	UpdatePreferenceQuest(ctx context.Context, p *model.PreferenceQuest) error
	DeletePreferenceQuest(ctx context.Context, userID, id int64, now time.Time) error
}

// QuestCreator registers quests on behalf of other services.
type QuestCreator interface {
	CreateQuest(ctx context.Context, userID int64, req QuestRequest) (*model.Quest, error)
}
