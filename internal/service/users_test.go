package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserService(repo *mocks.MockUserRepository, store *mocks.MockSettingsStore) *UserService {
	settings := NewSettingsService(store, model.SystemSettings{}, model.ExpTable{1: 10, 2: 20})
	return NewUserService(repo, settings)
}

func TestUserService_GetOrRegister(t *testing.T) {
	tests := []struct {
		name          string
		mockSetup     func(repo *mocks.MockUserRepository)
		expectedID    int64
		expectedError error
	}{
		{
			name: "existing user",
			mockSetup: func(repo *mocks.MockUserRepository) {
				repo.On("GetUserByOAuth2ID", mock.Anything, model.ProviderTelegram, "42").
					Return(&model.User{ID: 3}, nil)
			},
			expectedID: 3,
		},
		{
			name: "new user",
			mockSetup: func(repo *mocks.MockUserRepository) {
				repo.On("GetUserByOAuth2ID", mock.Anything, model.ProviderTelegram, "42").
					Return(nil, repository.ErrNotFound)
				repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.OAuth2ID == "42" && u.Nickname != "" && u.CoreTime == model.DefaultCoreTime
				})).
					Run(func(args mock.Arguments) { args.Get(1).(*model.User).ID = 9 }).
					Return(nil).Once()
			},
			expectedID: 9,
		},
		{
			name: "nickname collision is retried",
			mockSetup: func(repo *mocks.MockUserRepository) {
				repo.On("GetUserByOAuth2ID", mock.Anything, model.ProviderTelegram, "42").
					Return(nil, repository.ErrNotFound)
				repo.On("CreateUser", mock.Anything, mock.Anything).
					Return(repository.ErrAlreadyExists).Once()
				repo.On("CreateUser", mock.Anything, mock.Anything).
					Run(func(args mock.Arguments) { args.Get(1).(*model.User).ID = 10 }).
					Return(nil).Once()
			},
			expectedID: 10,
		},
		{
			name: "storage failure",
			mockSetup: func(repo *mocks.MockUserRepository) {
				repo.On("GetUserByOAuth2ID", mock.Anything, model.ProviderTelegram, "42").
					Return(nil, errors.New("db down"))
			},
			expectedError: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockUserRepository{}
			tt.mockSetup(repo)
			service := newUserService(repo, &mocks.MockSettingsStore{})

			user, err := service.GetOrRegister(context.Background(), model.ProviderTelegram, "42")

			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedID, user.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	recently := now.Add(-time.Hour)

	tests := []struct {
		name          string
		user          *model.User
		req           UserUpdateRequest
		mockSetup     func(repo *mocks.MockUserRepository)
		expectedError error
		check         func(t *testing.T, u *model.User, err error)
	}{
		{
			name: "nickname and core time",
			user: &model.User{ID: 1, Nickname: "old", CoreTime: 8},
			req:  UserUpdateRequest{Nickname: strPtr(" new "), CoreTime: intPtr(20)},
			mockSetup: func(repo *mocks.MockUserRepository) {
				repo.On("ExistsNickname", mock.Anything, "new").Return(false, nil)
				repo.On("UpdateUser", mock.Anything, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, u *model.User, err error) {
				require.NoError(t, err)
				assert.Equal(t, "new", u.Nickname)
				assert.Equal(t, 20, u.CoreTime)
				assert.Equal(t, now, *u.CoreTimeLastModifiedAt)
			},
		},
		{
			name: "duplicated nickname",
			user: &model.User{ID: 1, Nickname: "old"},
			req:  UserUpdateRequest{Nickname: strPtr("taken")},
			mockSetup: func(repo *mocks.MockUserRepository) {
				repo.On("ExistsNickname", mock.Anything, "taken").Return(true, nil)
			},
			expectedError: ErrNicknameDuplicated,
		},
		{
			name:          "core time out of range",
			user:          &model.User{ID: 1},
			req:           UserUpdateRequest{CoreTime: intPtr(24)},
			mockSetup:     func(repo *mocks.MockUserRepository) {},
			expectedError: ErrInvalidRequest,
		},
		{
			name:      "core time changed within a day",
			user:      &model.User{ID: 1, CoreTime: 8, CoreTimeLastModifiedAt: &recently},
			req:       UserUpdateRequest{CoreTime: intPtr(9)},
			mockSetup: func(repo *mocks.MockUserRepository) {},
			check: func(t *testing.T, u *model.User, err error) {
				assert.ErrorIs(t, err, ErrCoreTimeNotAllowed)

				var coreTimeErr *CoreTimeError
				require.True(t, errors.As(err, &coreTimeErr))
				assert.Equal(t, recently.Add(24*time.Hour), coreTimeErr.AvailableAt)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockUserRepository{}
			repo.On("GetUserByID", mock.Anything, int64(1)).Return(tt.user, nil)
			tt.mockSetup(repo)

			service := newUserService(repo, &mocks.MockSettingsStore{})
			service.now = func() time.Time { return now }

			err := service.UpdateUser(context.Background(), 1, tt.req)

			if tt.check != nil {
				tt.check(t, tt.user, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedError)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_GetPrincipal(t *testing.T) {
	repo := &mocks.MockUserRepository{}
	store := &mocks.MockSettingsStore{}

	repo.On("GetUserByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, Exp: 25}, nil)
	store.On("GetExpTable", mock.Anything).Return(nil, repository.ErrNotFound)

	principal, err := newUserService(repo, store).GetPrincipal(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, model.Level{Level: 2, CurrentExp: 15, RequiredExp: 20}, principal.Level)
	assert.Nil(t, principal.AvailableAt)

	repo.On("GetUserByID", mock.Anything, int64(2)).Return(nil, repository.ErrNotFound)
	_, err = newUserService(repo, store).GetPrincipal(context.Background(), 2)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}
