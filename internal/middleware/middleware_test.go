package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/service"
	"dailyquest/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockUserService struct {
	mock.Mock
	service.UserServiceI
}

func (m *mockUserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func newTokens(t *testing.T) *auth.TokenProvider {
	t.Helper()
	tokens, err := auth.NewTokenProvider(auth.JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	return tokens
}

func request(t *testing.T, router *gin.Engine, tokens *auth.TokenProvider, userID int64, role string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if userID != 0 {
		pair, err := tokens.Issue(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthorization_AdminOnly(t *testing.T) {
	tests := []struct {
		name         string
		userID       int64
		role         string
		mockSetup    func(us *mockUserService)
		expectedCode int
	}{
		{
			name:   "admin",
			userID: 1,
			role:   "ADMIN",
			mockSetup: func(us *mockUserService) {
				us.On("GetUser", mock.Anything, int64(1)).Return(&model.User{ID: 1, Role: model.RoleAdmin}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "user token",
			userID:       2,
			role:         "USER",
			mockSetup:    func(us *mockUserService) {},
			expectedCode: http.StatusForbidden,
		},
		{
			name:   "admin role revoked",
			userID: 1,
			role:   "ADMIN",
			mockSetup: func(us *mockUserService) {
				us.On("GetUser", mock.Anything, int64(1)).Return(&model.User{ID: 1, Role: model.RoleUser}, nil)
			},
			expectedCode: http.StatusForbidden,
		},
		{
			name:   "deleted user",
			userID: 1,
			role:   "ADMIN",
			mockSetup: func(us *mockUserService) {
				us.On("GetUser", mock.Anything, int64(1)).Return(nil, service.ErrUserNotFound)
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:   "storage failure",
			userID: 1,
			role:   "ADMIN",
			mockSetup: func(us *mockUserService) {
				us.On("GetUser", mock.Anything, int64(1)).Return(nil, assert.AnError)
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us := &mockUserService{}
			tt.mockSetup(us)
			tokens := newTokens(t)

			router := gin.New()
			router.GET("/admin", tokens.Middleware(), NewAuthorization(us).AdminOnly(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := request(t, router, tokens, tt.userID, tt.role)

			assert.Equal(t, tt.expectedCode, w.Code)
			us.AssertExpectations(t)
		})
	}
}

func TestAuthorization_AdminOnlyWithoutToken(t *testing.T) {
	router := gin.New()
	router.GET("/admin", NewAuthorization(&mockUserService{}).AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := request(t, router, nil, 0, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter_Handler(t *testing.T) {
	tokens := newTokens(t)
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})

	router := gin.New()
	router.GET("/admin", tokens.Middleware(), limiter.Handler(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, request(t, router, tokens, 1, "USER").Code)
	}

	w := request(t, router, tokens, 1, "USER")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// buckets are per user
	assert.Equal(t, http.StatusOK, request(t, router, tokens, 2, "USER").Code)
}

func TestRateLimiter_AnonymousByIP(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	router := gin.New()
	router.GET("/admin", limiter.Handler(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, request(t, router, nil, 0, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(t, router, nil, 0, "").Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	limiter.now = func() time.Time { return now }

	limiter.limiter("user:1")
	now = now.Add(30 * time.Second)
	limiter.limiter("user:2")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, limiter.Cleanup())
	assert.Len(t, limiter.visitors, 1)
	assert.Contains(t, limiter.visitors, "user:2")
}
