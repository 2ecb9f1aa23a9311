package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/pkg/dateutil"
	"dailyquest/pkg/logger"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type DetailQuestRequest struct {
	// ID refers to an existing detail quest on update. Its progress is kept
	// when the type does not change.
	ID          int64
	Title       string
	Type        model.DetailQuestType
	TargetCount int
}

type QuestRequest struct {
	Title             string
	Description       string
	DeadLine          *time.Time
	Details           []DetailQuestRequest
	PreferenceQuestID *int64
}

func (r QuestRequest) validate() error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return invalid("title must not be blank")
	}
	if utf8.RuneCountInString(r.Title) > model.MaxQuestTitleLength {
		return invalid("title must be at most %d characters", model.MaxQuestTitleLength)
	}
	if utf8.RuneCountInString(r.Description) > model.MaxQuestDescriptionLength {
		return invalid("description must be at most %d characters", model.MaxQuestDescriptionLength)
	}
	if len(r.Details) > model.MaxDetailQuests {
		return invalid("at most %d detail quests are allowed", model.MaxDetailQuests)
	}

	for i, d := range r.Details {
		if strings.TrimSpace(d.Title) == "" {
			return invalid("detail quest %d title must not be blank", i+1)
		}
		if utf8.RuneCountInString(d.Title) > model.MaxDetailTitleLength {
			return invalid("detail quest %d title must be at most %d characters", i+1, model.MaxDetailTitleLength)
		}
		switch d.Type {
		case model.DetailQuestTypeCheck:
		case model.DetailQuestTypeCount:
			if d.TargetCount < model.MinTargetCount || d.TargetCount > model.MaxTargetCount {
				return invalid("detail quest %d target count must be between %d and %d", i+1, model.MinTargetCount, model.MaxTargetCount)
			}
		default:
			return invalid("detail quest %d has unknown type %q", i+1, d.Type)
		}
	}

	return nil
}

func (r QuestRequest) detailQuests() []*model.DetailQuest {
	details := make([]*model.DetailQuest, len(r.Details))
	for i, d := range r.Details {
		details[i] = model.NewDetailQuest(strings.TrimSpace(d.Title), d.Type, d.TargetCount)
		details[i].ID = d.ID
	}
	return details
}

type QuestSearchRequest struct {
	State     *model.QuestState
	StartDate *time.Time
	EndDate   *time.Time
	Keyword   string
	Page      model.PageRequest
}

func normalizePage(p model.PageRequest) model.PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

type QuestService struct {
	repo     QuestRepository
	users    UserRepository
	settings *SettingsService
	indexer  QuestIndexer
	checker  AchievementChecker
	loc      *time.Location
	now      func() time.Time
}

func NewQuestService(
	repo QuestRepository,
	users UserRepository,
	settings *SettingsService,
	indexer QuestIndexer,
	checker AchievementChecker,
	loc *time.Location,
) *QuestService {
	if loc == nil {
		loc = time.UTC
	}
	return &QuestService{
		repo:     repo,
		users:    users,
		settings: settings,
		indexer:  indexer,
		checker:  checker,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *QuestService) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *QuestService) checkDeadLine(deadLine *time.Time, now time.Time) error {
	if deadLine == nil {
		return nil
	}

	from, to := model.DeadLineRange(now, dateutil.NextReset(now))
	if !deadLine.After(from) || !deadLine.Before(to) {
		return invalid("deadline must be between %s and %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return nil
}

func (s *QuestService) getUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *QuestService) getOwnedQuest(ctx context.Context, userID, questID int64) (*model.Quest, error) {
	quest, err := s.repo.GetQuest(ctx, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}

	if !quest.IsOwnedBy(userID) {
		return nil, ErrForbidden
	}
	return quest, nil
}

func (s *QuestService) index(ctx context.Context, quest *model.Quest) {
	if err := s.indexer.Index(ctx, quest); err != nil {
		logger.Logger().Error("failed to index quest",
			zap.Int64("quest_id", quest.ID),
			zap.Error(err))
	}
}

func (s *QuestService) mapUserErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *QuestService) CreateQuest(ctx context.Context, userID int64, req QuestRequest) (*model.Quest, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	if err := s.checkDeadLine(req.DeadLine, now); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	questType := model.QuestTypeSub
	if user.IsCoreTime(now) {
		questType = model.QuestTypeMain
	}

	quest := model.NewQuest(userID, 0, strings.TrimSpace(req.Title), req.Description, questType, req.DeadLine)
	quest.DetailQuests = req.detailQuests()
	quest.PreferenceQuestID = req.PreferenceQuestID

	loggedDate := dateutil.LoggedDate(now)
	err = s.repo.RegisterQuest(ctx, quest, loggedDate, func(owner *model.User) {
		owner.RecordRegistration(loggedDate)
	})
	if err != nil {
		return nil, s.mapUserErr(err)
	}

	s.index(ctx, quest)
	s.checker.RequestCheck(userID,
		model.AchievementQuestRegistration,
		model.AchievementQuestContinuousRegistrationDays,
	)

	return quest, nil
}

func (s *QuestService) GetQuest(ctx context.Context, userID, questID int64) (*model.Quest, error) {
	return s.getOwnedQuest(ctx, userID, questID)
}

func (s *QuestService) GetCurrentQuests(ctx context.Context, userID int64) ([]*model.Quest, error) {
	return s.repo.GetCurrentQuests(ctx, userID, dateutil.LastReset(s.clock()))
}

func (s *QuestService) SearchQuests(ctx context.Context, userID int64, req QuestSearchRequest) (model.Page[*model.Quest], error) {
	page := normalizePage(req.Page)
	cond := model.QuestSearchCondition{
		UserID:  userID,
		State:   req.State,
		Keyword: strings.TrimSpace(req.Keyword),
	}

	if req.State != nil && !req.State.Valid() {
		return model.Page[*model.Quest]{}, invalid("unknown quest state %q", *req.State)
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return model.Page[*model.Quest]{}, invalid("end date is before start date")
	}
	if req.StartDate != nil {
		from := dateutil.ResetOf(*req.StartDate, s.loc)
		cond.CreatedFrom = &from
	}
	if req.EndDate != nil {
		to := dateutil.ResetOf(req.EndDate.AddDate(0, 0, 1), s.loc)
		cond.CreatedTo = &to
	}

	if cond.Keyword != "" {
		ids, err := s.indexer.Search(ctx, userID, cond.Keyword, req.State)
		if err != nil {
			return model.Page[*model.Quest]{}, err
		}
		if ids == nil {
			ids = []int64{}
		}
		cond.IDs = ids
	}

	return s.repo.SearchQuests(ctx, cond, page)
}

func (s *QuestService) UpdateQuest(ctx context.Context, userID, questID int64, req QuestRequest) (*model.Quest, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := s.checkDeadLine(req.DeadLine, s.clock()); err != nil {
		return nil, err
	}

	quest, err := s.getOwnedQuest(ctx, userID, questID)
	if err != nil {
		return nil, err
	}

	err = quest.Update(strings.TrimSpace(req.Title), req.Description, req.DeadLine, req.detailQuests())
	if err != nil {
		return nil, err
	}

	if err = s.repo.UpdateQuestWithDetails(ctx, quest); err != nil {
		return nil, err
	}

	s.index(ctx, quest)
	return quest, nil
}

func (s *QuestService) DeleteQuest(ctx context.Context, userID, questID int64) error {
	quest, err := s.getOwnedQuest(ctx, userID, questID)
	if err != nil {
		return err
	}

	if err = quest.Delete(); err != nil {
		return err
	}

	if err = s.repo.DeleteQuest(ctx, quest); err != nil {
		return err
	}

	s.index(ctx, quest)
	return nil
}

func (s *QuestService) CompleteQuest(ctx context.Context, userID, questID int64) error {
	quest, err := s.getOwnedQuest(ctx, userID, questID)
	if err != nil {
		return err
	}

	if err = quest.Complete(); err != nil {
		return err
	}

	var reward *model.SystemSettings
	if quest.IsMain() {
		if reward, err = s.settings.GetSettings(ctx); err != nil {
			return err
		}
	}

	loggedDate := dateutil.LoggedDate(s.clock())
	err = s.repo.TransitionQuest(ctx, quest, loggedDate, func(owner *model.User) {
		if reward != nil {
			owner.AddExpAndGold(reward.QuestClearExp, reward.QuestClearGold)
		}
		owner.RecordCompletion(loggedDate)
	})
	if err != nil {
		return s.mapUserErr(err)
	}

	s.index(ctx, quest)
	s.checker.RequestCheck(userID,
		model.AchievementQuestCompletion,
		model.AchievementQuestContinuousCompletion,
		model.AchievementUserLevel,
		model.AchievementGoldEarn,
	)

	return nil
}

func (s *QuestService) DiscardQuest(ctx context.Context, userID, questID int64) error {
	quest, err := s.getOwnedQuest(ctx, userID, questID)
	if err != nil {
		return err
	}

	if err = quest.Discard(); err != nil {
		return err
	}

	if err = s.repo.TransitionQuest(ctx, quest, dateutil.LoggedDate(s.clock()), nil); err != nil {
		return err
	}

	s.index(ctx, quest)
	return nil
}

func (s *QuestService) InteractWithDetailQuest(ctx context.Context, userID, questID, detailID int64, count *int) (*model.DetailQuest, error) {
	quest, err := s.getOwnedQuest(ctx, userID, questID)
	if err != nil {
		return nil, err
	}

	detail, err := quest.InteractWithDetail(detailID, count)
	if err != nil {
		return nil, err
	}

	if err = s.repo.UpdateDetailQuest(ctx, detail); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrDetailQuestNotFound
		}
		return nil, err
	}

	return detail, nil
}
