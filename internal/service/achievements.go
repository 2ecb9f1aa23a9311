package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"dailyquest/internal/metrics"
	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/pkg/logger"

	"go.uber.org/zap"
)

const (
	maxAchievementTitleLength       = 50
	maxAchievementDescriptionLength = 150
	checkTimeout                    = 10 * time.Second
)

type AchievementRequest struct {
	Title       string
	Description string
	Type        model.AchievementType
	TargetValue int64
}

type AchievementUpdateRequest struct {
	Title       string
	Description string
}

func validateAchievementText(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title must not be blank")
	}
	if utf8.RuneCountInString(title) > maxAchievementTitleLength {
		return invalid("title must be at most %d characters", maxAchievementTitleLength)
	}
	if utf8.RuneCountInString(description) > maxAchievementDescriptionLength {
		return invalid("description must be at most %d characters", maxAchievementDescriptionLength)
	}
	return nil
}

// Notifier stores and delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notifications []*model.Notification) error
}

type checkRequest struct {
	userID          int64
	achievementType model.AchievementType
}

type AchievementService struct {
	repo     AchievementRepository
	users    UserRepository
	settings *SettingsService
	notifier Notifier
	now      func() time.Time

	workers int
	queue   chan checkRequest
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewAchievementService(
	repo AchievementRepository,
	users UserRepository,
	settings *SettingsService,
	notifier Notifier,
	workers, queueSize int,
) *AchievementService {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	return &AchievementService{
		repo:     repo,
		users:    users,
		settings: settings,
		notifier: notifier,
		now:      time.Now,
		workers:  workers,
		queue:    make(chan checkRequest, queueSize),
	}
}

// Start runs the check workers until Stop is called.
func (s *AchievementService) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.work()
	}
}

// Stop stops accepting checks and waits for queued ones to finish.
func (s *AchievementService) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *AchievementService) work() {
	defer s.wg.Done()

	for req := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		if err := s.CheckAndAchieve(ctx, req.userID, req.achievementType); err != nil {
			logger.Logger().Error("achievement check failed",
				zap.Int64("user_id", req.userID),
				zap.String("type", string(req.achievementType)),
				zap.Error(err))
		}
		cancel()
	}
}

// RequestCheck queues checks without blocking. Requests are dropped when the
// queue is full or the service is stopped.
func (s *AchievementService) RequestCheck(userID int64, types ...model.AchievementType) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	for _, t := range types {
		select {
		case s.queue <- checkRequest{userID: userID, achievementType: t}:
		default:
			logger.Logger().Warn("achievement check queue is full",
				zap.Int64("user_id", userID),
				zap.String("type", string(t)))
		}
	}
}

func (s *AchievementService) currentValue(ctx context.Context, user *model.User, achievementType model.AchievementType) (int64, error) {
	level := 0
	if achievementType == model.AchievementUserLevel {
		table, err := s.settings.GetExpTable(ctx)
		if err != nil {
			return 0, err
		}
		level = table.LevelOf(user.Exp).Level
	}
	return achievementType.CurrentValue(user, level), nil
}

// CheckAndAchieve unlocks the user's next achievement of the type when its
// target is reached.
func (s *AchievementService) CheckAndAchieve(ctx context.Context, userID int64, achievementType model.AchievementType) error {
	achievement, err := s.repo.GetNotAchievedAchievement(ctx, achievementType, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	value, err := s.currentValue(ctx, user, achievementType)
	if err != nil {
		return err
	}
	if !achievement.CanAchieve(value) {
		return nil
	}

	saved, err := s.repo.SaveAchieveLogs(ctx, []*model.AchievementAchieveLog{{
		AchievementID: achievement.ID,
		UserID:        userID,
		AchievedAt:    s.now(),
	}})
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		return nil
	}

	metrics.RecordAchievementUnlocked(string(achievementType))
	logger.Logger().Info("achievement unlocked",
		zap.Int64("user_id", userID),
		zap.Int64("achievement_id", achievement.ID))

	return s.notifier.Notify(ctx, []*model.Notification{model.NewAchieveNotification(userID, achievement)})
}

// UnlockAll writes achieve logs for every achievement of the type each user
// now meets and returns the matching notifications, unsaved.
func (s *AchievementService) UnlockAll(ctx context.Context, achievementType model.AchievementType, users []*model.User) ([]*model.Notification, error) {
	var logs []*model.AchievementAchieveLog
	achievements := make(map[int64]*model.Achievement)
	now := s.now()

	for _, user := range users {
		value, err := s.currentValue(ctx, user, achievementType)
		if err != nil {
			return nil, err
		}

		achievable, err := s.repo.GetAchievableAchievements(ctx, achievementType, user.ID, value)
		if err != nil {
			return nil, err
		}

		for _, a := range achievable {
			achievements[a.ID] = a
			logs = append(logs, &model.AchievementAchieveLog{
				AchievementID: a.ID,
				UserID:        user.ID,
				AchievedAt:    now,
			})
		}
	}

	saved, err := s.repo.SaveAchieveLogs(ctx, logs)
	if err != nil {
		return nil, err
	}

	notifications := make([]*model.Notification, 0, len(saved))
	for _, l := range saved {
		metrics.RecordAchievementUnlocked(string(achievementType))
		notifications = append(notifications, model.NewAchieveNotification(l.UserID, achievements[l.AchievementID]))
	}
	return notifications, nil
}

func (s *AchievementService) CreateAchievement(ctx context.Context, req AchievementRequest) (*model.Achievement, error) {
	if err := validateAchievementText(req.Title, req.Description); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, invalid("unknown achievement type %q", req.Type)
	}
	if req.TargetValue <= 0 {
		return nil, invalid("target value must be positive")
	}

	achievement := &model.Achievement{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        req.Type,
		TargetValue: req.TargetValue,
		IsActive:    true,
	}

	if err := s.repo.CreateAchievement(ctx, achievement); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrAchievementExists
		}
		return nil, err
	}
	return achievement, nil
}

func (s *AchievementService) getAchievement(ctx context.Context, id int64) (*model.Achievement, error) {
	achievement, err := s.repo.GetAchievement(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAchievementNotFound
		}
		return nil, err
	}
	return achievement, nil
}

func (s *AchievementService) UpdateAchievement(ctx context.Context, id int64, req AchievementUpdateRequest) (*model.Achievement, error) {
	if err := validateAchievementText(req.Title, req.Description); err != nil {
		return nil, err
	}

	achievement, err := s.getAchievement(ctx, id)
	if err != nil {
		return nil, err
	}

	achievement.Title = strings.TrimSpace(req.Title)
	achievement.Description = req.Description

	if err = s.repo.UpdateAchievement(ctx, achievement); err != nil {
		return nil, err
	}
	return achievement, nil
}

func (s *AchievementService) SetAchievementActive(ctx context.Context, id int64, active bool) error {
	achievement, err := s.getAchievement(ctx, id)
	if err != nil {
		return err
	}

	achievement.IsActive = active
	return s.repo.UpdateAchievement(ctx, achievement)
}

func (s *AchievementService) ListAchievements(ctx context.Context, page model.PageRequest) (model.Page[*model.Achievement], error) {
	return s.repo.ListAchievements(ctx, normalizePage(page))
}

func (s *AchievementService) GetAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.AchievedAchievement], error) {
	return s.repo.GetAchievedAchievements(ctx, userID, normalizePage(page))
}

func (s *AchievementService) GetNotAchievedAchievements(ctx context.Context, userID int64, page model.PageRequest) (model.Page[*model.Achievement], error) {
	return s.repo.GetNotAchievedAchievements(ctx, userID, normalizePage(page))
}
