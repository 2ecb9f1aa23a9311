package api

import (
	"net/http"
	"testing"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type questServer struct {
	*testServer
	qs *mockQuestService
	ls *mockQuestLogService
}

func newQuestServer(t *testing.T) *questServer {
	s := &questServer{testServer: newTestServer(t), qs: &mockQuestService{}, ls: &mockQuestLogService{}}
	NewQuestRoutes(s.v1, s.qs, s.ls, s.tokens.Middleware())
	return s
}

func TestQuestRoutes_CreateQuest(t *testing.T) {
	body := questRequest{
		Title: "Read a book",
		Details: []detailQuestRequest{
			{Title: "30 pages", Type: "count", TargetCount: 30},
		},
	}
	expectedReq := service.QuestRequest{
		Title: "Read a book",
		Details: []service.DetailQuestRequest{
			{Title: "30 pages", Type: model.DetailQuestTypeCount, TargetCount: 30},
		},
	}

	tests := []struct {
		name         string
		mockSetup    func(qs *mockQuestService)
		expectedCode int
	}{
		{
			name: "created",
			mockSetup: func(qs *mockQuestService) {
				quest := model.NewQuest(3, 1, "Read a book", "", model.QuestTypeMain, nil)
				quest.ID = 11
				quest.DetailQuests = []*model.DetailQuest{model.NewDetailQuest("30 pages", model.DetailQuestTypeCount, 30)}
				qs.On("CreateQuest", mock.Anything, int64(3), expectedReq).Return(quest, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "invalid",
			mockSetup: func(qs *mockQuestService) {
				qs.On("CreateQuest", mock.Anything, int64(3), expectedReq).
					Return(nil, service.ErrInvalidRequest)
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "storage failure",
			mockSetup: func(qs *mockQuestService) {
				qs.On("CreateQuest", mock.Anything, int64(3), expectedReq).
					Return(nil, assert.AnError)
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newQuestServer(t)
			tt.mockSetup(s.qs)

			w := s.do(t, http.MethodPost, "/api/v1/quests", s.bearer(t, 3, "USER"), body)

			assert.Equal(t, tt.expectedCode, w.Code)
			if w.Code == http.StatusCreated {
				var out questResponse
				decode(t, w, &out)
				assert.Equal(t, int64(11), out.ID)
				assert.False(t, out.CanComplete)
				require.Len(t, out.DetailQuests, 1)
				assert.Equal(t, "COUNT", out.DetailQuests[0].Type)
			}
			if w.Code == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", errorOf(t, w))
			}
			s.qs.AssertExpectations(t)
		})
	}
}

func TestQuestRoutes_Transitions(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		call         string
		err          error
		expectedCode int
	}{
		{name: "complete", method: http.MethodPatch, path: "/api/v1/quests/5/complete", call: "CompleteQuest", expectedCode: http.StatusNoContent},
		{name: "complete with open details", method: http.MethodPatch, path: "/api/v1/quests/5/complete", call: "CompleteQuest", err: model.ErrDetailQuestsIncomplete, expectedCode: http.StatusBadRequest},
		{name: "complete already finished elsewhere", method: http.MethodPatch, path: "/api/v1/quests/5/complete", call: "CompleteQuest", err: model.ErrQuestNotProceed, expectedCode: http.StatusBadRequest},
		{name: "discard foreign quest", method: http.MethodPatch, path: "/api/v1/quests/5/discard", call: "DiscardQuest", err: service.ErrForbidden, expectedCode: http.StatusForbidden},
		{name: "delete missing quest", method: http.MethodDelete, path: "/api/v1/quests/5", call: "DeleteQuest", err: service.ErrQuestNotFound, expectedCode: http.StatusNotFound},
		{name: "delete twice", method: http.MethodDelete, path: "/api/v1/quests/5", call: "DeleteQuest", err: model.ErrQuestDeleted, expectedCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newQuestServer(t)
			s.qs.On(tt.call, mock.Anything, int64(3), int64(5)).Return(tt.err)

			w := s.do(t, tt.method, tt.path, s.bearer(t, 3, "USER"), nil)

			assert.Equal(t, tt.expectedCode, w.Code)
			s.qs.AssertExpectations(t)
		})
	}
}

func TestQuestRoutes_UpdateQuestPassesDetailIDs(t *testing.T) {
	s := newQuestServer(t)
	expectedReq := service.QuestRequest{
		Title: "Run",
		Details: []service.DetailQuestRequest{
			{ID: 7, Title: "laps", Type: model.DetailQuestTypeCount, TargetCount: 12},
			{Title: "cool down", Type: model.DetailQuestTypeCheck},
		},
	}

	quest := model.NewQuest(3, 1, "Run", "", model.QuestTypeSub, nil)
	quest.ID = 5
	quest.DetailQuests = []*model.DetailQuest{
		{ID: 7, QuestID: 5, Title: "laps", Type: model.DetailQuestTypeCount, State: model.DetailQuestStateProceed, TargetCount: 12, Count: 4},
	}
	s.qs.On("UpdateQuest", mock.Anything, int64(3), int64(5), expectedReq).Return(quest, nil)

	w := s.do(t, http.MethodPatch, "/api/v1/quests/5", s.bearer(t, 3, "USER"), questRequest{
		Title: "Run",
		Details: []detailQuestRequest{
			{ID: 7, Title: "laps", Type: "count", TargetCount: 12},
			{Title: "cool down", Type: "check"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp questResponse
	decode(t, w, &resp)
	require.Len(t, resp.DetailQuests, 1)
	assert.Equal(t, 4, resp.DetailQuests[0].Count)
	s.qs.AssertExpectations(t)
}

func TestQuestRoutes_InvalidQuestID(t *testing.T) {
	s := newQuestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/quests/abc", s.bearer(t, 3, "USER"), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.qs.AssertNotCalled(t, "GetQuest", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuestRoutes_InteractWithDetailQuest(t *testing.T) {
	s := newQuestServer(t)
	count := 4
	detail := &model.DetailQuest{ID: 9, Title: "pushups", Type: model.DetailQuestTypeCount, State: model.DetailQuestStateProceed, TargetCount: 10, Count: 4}

	s.qs.On("InteractWithDetailQuest", mock.Anything, int64(3), int64(5), int64(9), &count).Return(detail, nil)

	w := s.do(t, http.MethodPatch, "/api/v1/quests/5/details/9", s.bearer(t, 3, "USER"), interactRequest{Count: &count})

	require.Equal(t, http.StatusOK, w.Code)
	var out detailQuestResponse
	decode(t, w, &out)
	assert.Equal(t, 4, out.Count)
	s.qs.AssertExpectations(t)
}

func TestQuestRoutes_SearchQuests(t *testing.T) {
	s := newQuestServer(t)
	state := model.QuestStateComplete
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	s.qs.On("SearchQuests", mock.Anything, int64(3), service.QuestSearchRequest{
		State:     &state,
		StartDate: &start,
		Keyword:   "book",
		Page:      model.PageRequest{Page: 1, Size: 10},
	}).Return(model.Page[*model.Quest]{
		Items: []*model.Quest{{ID: 1, State: model.QuestStateComplete}},
		Page:  1,
		Size:  10,
		Total: 11,
	}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/quests/search?state=complete&start_date=2024-05-01&keyword=book&page=1&size=10", s.bearer(t, 3, "USER"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var out pageResponse[questResponse]
	decode(t, w, &out)
	assert.Equal(t, 2, out.TotalPages)
	assert.Len(t, out.Items, 1)
	s.qs.AssertExpectations(t)
}

func TestQuestRoutes_SearchQuestsRejectsBadInput(t *testing.T) {
	tests := []string{
		"/api/v1/quests/search?start_date=05-01-2024",
		"/api/v1/quests/search?size=1000",
		"/api/v1/quests/search?page=-1",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			s := newQuestServer(t)

			w := s.do(t, http.MethodGet, path, s.bearer(t, 3, "USER"), nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestQuestRoutes_GetStatistics(t *testing.T) {
	s := newQuestServer(t)
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	s.ls.On("GetStatistics", mock.Anything, int64(3), date, model.StatisticsWeekly).
		Return([]*model.QuestStatistics{{Date: date, Completed: 2, CompleteRatio: 100}}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/quests/stats?date=2024-05-10&period=weekly", s.bearer(t, 3, "USER"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var out []statisticsResponse
	decode(t, w, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "2024-05-10", out[0].Date)

	w = s.do(t, http.MethodGet, "/api/v1/quests/stats", s.bearer(t, 3, "USER"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.ls.AssertExpectations(t)
}
