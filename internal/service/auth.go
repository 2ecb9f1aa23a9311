package service

import (
	"context"
	"errors"

	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/pkg/auth"
	"dailyquest/pkg/logger"

	"go.uber.org/zap"
)

var ErrInvalidRefreshToken = errors.New("refresh token is invalid or already used")

type AuthService struct {
	users  UserServiceI
	tokens *auth.TokenProvider
	store  TokenStore
}

func NewAuthService(users UserServiceI, tokens *auth.TokenProvider, store TokenStore) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		store:  store,
	}
}

func (s *AuthService) issue(ctx context.Context, user *model.User) (*auth.TokenPair, error) {
	pair, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	if err = s.store.SaveRefreshToken(ctx, pair.RefreshID, user.ID, s.tokens.RefreshTTL()); err != nil {
		return nil, err
	}
	return pair, nil
}

// Login registers the user on first sight and opens a session.
func (s *AuthService) Login(ctx context.Context, provider model.ProviderType, oauth2ID string) (*auth.TokenPair, *model.User, error) {
	user, err := s.users.GetOrRegister(ctx, provider, oauth2ID)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	logger.Logger().Info("user logged in", zap.Int64("user_id", user.ID), zap.String("provider", string(provider)))
	return pair, user, nil
}

// Refresh trades a refresh token for a new pair. Each refresh token is
// accepted once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	userID, err := s.store.ConsumeRefreshToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Logger().Warn("refresh token reused", zap.Int64("user_id", claims.UserID))
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if userID != claims.UserID {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, user)
}

// Logout revokes the refresh token. Invalid tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil
	}
	return s.store.DeleteRefreshToken(ctx, claims.ID)
}
