package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/pkg/logger"

	"go.uber.org/zap"
)

const nicknameAttempts = 5

var (
	nicknameAdjectives = []string{"brave", "calm", "eager", "swift", "bold", "quiet", "lucky", "merry", "noble", "wise"}
	nicknameNouns      = []string{"fox", "owl", "bear", "wolf", "hawk", "lynx", "otter", "crane", "tiger", "deer"}
)

type UserPrincipal struct {
	User        *model.User
	Level       model.Level
	AvailableAt *time.Time
}

type UserUpdateRequest struct {
	Nickname *string
	CoreTime *int
}

type UserService struct {
	repo     UserRepository
	settings *SettingsService
	now      func() time.Time
}

func NewUserService(repo UserRepository, settings *SettingsService) *UserService {
	return &UserService{
		repo:     repo,
		settings: settings,
		now:      time.Now,
	}
}

func (s *UserService) GetOrRegister(ctx context.Context, provider model.ProviderType, oauth2ID string) (*model.User, error) {
	user, err := s.repo.GetUserByOAuth2ID(ctx, provider, oauth2ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	for i := 0; i < nicknameAttempts; i++ {
		user = model.NewUser(oauth2ID, provider, s.randomNickname())

		err = s.repo.CreateUser(ctx, user)
		if err == nil {
			logger.Logger().Info("user registered",
				zap.Int64("user_id", user.ID),
				zap.String("provider", string(provider)))
			return user, nil
		}
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return nil, err
		}

		// either the nickname or the provider id was taken concurrently
		if existing, getErr := s.repo.GetUserByOAuth2ID(ctx, provider, oauth2ID); getErr == nil {
			return existing, nil
		}
	}

	return nil, fmt.Errorf("failed to register user: %w", ErrNicknameDuplicated)
}

func (s *UserService) randomNickname() string {
	adjective := nicknameAdjectives[rand.Intn(len(nicknameAdjectives))]
	noun := nicknameNouns[rand.Intn(len(nicknameNouns))]
	return fmt.Sprintf("%s-%s-%04d", adjective, noun, rand.Intn(10000))
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetPrincipal(ctx context.Context, userID int64) (*UserPrincipal, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	table, err := s.settings.GetExpTable(ctx)
	if err != nil {
		return nil, err
	}

	return &UserPrincipal{
		User:        user,
		Level:       table.LevelOf(user.Exp),
		AvailableAt: user.CoreTimeAvailableAt(),
	}, nil
}

func (s *UserService) UpdateUser(ctx context.Context, userID int64, req UserUpdateRequest) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if req.CoreTime != nil && (*req.CoreTime < 0 || *req.CoreTime > 23) {
		return invalid("core time must be between 0 and 23")
	}

	if req.Nickname != nil {
		nickname := strings.TrimSpace(*req.Nickname)
		if nickname == "" || len([]rune(nickname)) > model.MaxNicknameLength {
			return invalid("nickname must be 1 to %d characters", model.MaxNicknameLength)
		}

		if nickname != user.Nickname {
			exists, err := s.repo.ExistsNickname(ctx, nickname)
			if err != nil {
				return err
			}
			if exists {
				return ErrNicknameDuplicated
			}
			user.Nickname = nickname
		}
	}

	if !user.UpdateCoreTime(req.CoreTime, s.now()) {
		return &CoreTimeError{AvailableAt: *user.CoreTimeAvailableAt()}
	}

	err = s.repo.UpdateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return ErrNicknameDuplicated
		}
		return err
	}
	return nil
}

func (s *UserService) IsNicknameDuplicated(ctx context.Context, nickname string) (bool, error) {
	return s.repo.ExistsNickname(ctx, strings.TrimSpace(nickname))
}
