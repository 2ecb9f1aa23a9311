package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"dailyquest/internal/batch"
	"dailyquest/internal/middleware"
	"dailyquest/internal/model"
	"dailyquest/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type adminServer struct {
	*testServer
	us   *mockUserService
	ss   *mockSettingsService
	as   *mockAchievementService
	jobs *mockJobRunner
}

func newAdminServer(t *testing.T) *adminServer {
	s := &adminServer{
		testServer: newTestServer(t),
		us:         &mockUserService{},
		ss:         &mockSettingsService{},
		as:         &mockAchievementService{},
		jobs:       &mockJobRunner{},
	}
	s.us.On("GetUser", mock.Anything, int64(1)).Return(&model.User{ID: 1, Role: model.RoleAdmin}, nil).Maybe()

	authz := middleware.NewAuthorization(s.us)
	NewAdminRoutes(s.v1, s.ss, s.as, s.jobs, s.tokens.Middleware(), authz.AdminOnly())
	return s
}

func (s *adminServer) admin(t *testing.T) string {
	return s.bearer(t, 1, "ADMIN")
}

func TestAdminRoutes_RequiresAdmin(t *testing.T) {
	s := newAdminServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/admin/settings", s.bearer(t, 3, "USER"), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	s.ss.AssertNotCalled(t, "GetSettings", mock.Anything)
}

func TestAdminRoutes_Settings(t *testing.T) {
	s := newAdminServer(t)

	s.ss.On("GetSettings", mock.Anything).Return(&model.SystemSettings{QuestClearExp: 10, QuestClearGold: 5, MaxRewardCount: 10}, nil)
	s.ss.On("UpdateSettings", mock.Anything, &model.SystemSettings{QuestClearExp: 20, QuestClearGold: 7, MaxRewardCount: 10}).Return(nil)

	w := s.do(t, http.MethodGet, "/api/v1/admin/settings", s.admin(t), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"quest_clear_exp":10,"quest_clear_gold":5,"max_reward_count":10}`, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/v1/admin/settings", s.admin(t), settingsPayload{QuestClearExp: 20, QuestClearGold: 7, MaxRewardCount: 10})
	assert.Equal(t, http.StatusOK, w.Code)

	s.ss.AssertExpectations(t)
}

func TestAdminRoutes_UpdateExpTable(t *testing.T) {
	s := newAdminServer(t)
	table := model.ExpTable{1: 15, 2: 0}

	s.ss.On("UpdateExpTable", mock.Anything, table).Return(fmt.Errorf("%w: level 2 requires zero exp", service.ErrInvalidRequest))

	w := s.do(t, http.MethodPut, "/api/v1/admin/exp-table", s.admin(t), map[string]int64{"1": 15, "2": 0})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.ss.AssertExpectations(t)
}

func TestAdminRoutes_Achievements(t *testing.T) {
	s := newAdminServer(t)

	req := service.AchievementRequest{Title: "Perfect week", Type: model.AchievementPerfectDay, TargetValue: 7}
	s.as.On("CreateAchievement", mock.Anything, req).Return(nil, service.ErrAchievementExists).Once()

	w := s.do(t, http.MethodPost, "/api/v1/admin/achievements", s.admin(t), achievementRequest{Title: "Perfect week", Type: "perfect_day", TargetValue: 7})
	assert.Equal(t, http.StatusConflict, w.Code)

	s.as.On("SetAchievementActive", mock.Anything, int64(4), false).Return(nil)

	inactive := false
	w = s.do(t, http.MethodPatch, "/api/v1/admin/achievements/4/active", s.admin(t), activeRequest{Active: &inactive})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/admin/achievements/4/active", s.admin(t), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.as.AssertExpectations(t)
}

func TestAdminRoutes_Jobs(t *testing.T) {
	tests := []struct {
		name         string
		job          string
		err          error
		expectedCode int
	}{
		{name: "completed", job: batch.JobReset, expectedCode: http.StatusOK},
		{name: "unknown job", job: "nightly", err: fmt.Errorf("%w: nightly", batch.ErrUnknownJob), expectedCode: http.StatusNotFound},
		{name: "already ran", job: batch.JobPerfectDay, err: batch.ErrJobAlreadyCompleted, expectedCode: http.StatusConflict},
		{name: "failed", job: batch.JobDeadline, err: assert.AnError, expectedCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newAdminServer(t)
			s.jobs.On("Run", mock.Anything, tt.job).Return(tt.err)

			w := s.do(t, http.MethodPost, "/api/v1/admin/jobs/"+tt.job+"/run", s.admin(t), nil)

			assert.Equal(t, tt.expectedCode, w.Code)
			s.jobs.AssertExpectations(t)
		})
	}
}

func TestAdminRoutes_JobExecutions(t *testing.T) {
	s := newAdminServer(t)
	finished := time.Date(2024, 5, 10, 6, 0, 3, 0, time.UTC)

	s.jobs.On("LastExecutions", mock.Anything, batch.JobReset, 5).Return([]*model.JobExecution{{
		ID:         uuid.MustParse("7b0c3f4e-3e4b-4c55-9f55-0d3a8f9a1b2c"),
		JobName:    batch.JobReset,
		Parameters: map[string]string{"at": "2024-05-10T06:00:00Z"},
		Status:     model.JobStatusCompleted,
		ReadCount:  12,
		WriteCount: 12,
		StartedAt:  finished.Add(-3 * time.Second),
		FinishedAt: &finished,
	}}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/admin/jobs/reset/executions?limit=5", s.admin(t), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var out []jobExecutionResponse
	decode(t, w, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "COMPLETED", out[0].Status)
	assert.Equal(t, 12, out[0].WriteCount)

	w = s.do(t, http.MethodGet, "/api/v1/admin/jobs/reset/executions?limit=500", s.admin(t), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.jobs.AssertExpectations(t)
}
