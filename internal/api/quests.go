package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/service"
	"dailyquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type questRoutes struct {
	qs service.QuestServiceI
	ls service.QuestLogServiceI
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, ls service.QuestLogServiceI, guards ...gin.HandlerFunc) {
	r := &questRoutes{qs: qs, ls: ls}
	h := handler.Group("/quests")
	h.Use(guards...)
	{
		h.GET("", r.GetCurrentQuests)
		h.POST("", r.CreateQuest)
		h.GET("/search", r.SearchQuests)
		h.GET("/stats", r.GetStatistics)
		h.GET("/:quest_id", r.GetQuest)
		h.PATCH("/:quest_id", r.UpdateQuest)
		h.DELETE("/:quest_id", r.DeleteQuest)
		h.PATCH("/:quest_id/complete", r.CompleteQuest)
		h.PATCH("/:quest_id/discard", r.DiscardQuest)
		h.PATCH("/:quest_id/details/:detail_id", r.InteractWithDetailQuest)
	}
}

type detailQuestRequest struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	TargetCount int    `json:"target_count"`
}

type questRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	DeadLine    *time.Time           `json:"deadline"`
	Details     []detailQuestRequest `json:"details"`
}

func (q questRequest) toService() service.QuestRequest {
	details := make([]service.DetailQuestRequest, len(q.Details))
	for i, d := range q.Details {
		details[i] = service.DetailQuestRequest{
			ID:          d.ID,
			Title:       d.Title,
			Type:        model.DetailQuestType(strings.ToUpper(d.Type)),
			TargetCount: d.TargetCount,
		}
	}

	return service.QuestRequest{
		Title:       q.Title,
		Description: q.Description,
		DeadLine:    q.DeadLine,
		Details:     details,
	}
}

type detailQuestResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	State       string `json:"state"`
	TargetCount int    `json:"target_count"`
	Count       int    `json:"count"`
}

type questResponse struct {
	ID                int64                 `json:"id"`
	Seq               int64                 `json:"seq"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	State             string                `json:"state"`
	Type              string                `json:"type"`
	DeadLine          *time.Time            `json:"deadline"`
	CanComplete       bool                  `json:"can_complete"`
	DetailQuests      []detailQuestResponse `json:"detail_quests"`
	PreferenceQuestID *int64                `json:"preference_quest_id"`
	CreatedAt         time.Time             `json:"created_at"`
}

func newDetailQuestResponse(d *model.DetailQuest) detailQuestResponse {
	return detailQuestResponse{
		ID:          d.ID,
		Title:       d.Title,
		Type:        string(d.Type),
		State:       string(d.State),
		TargetCount: d.TargetCount,
		Count:       d.Count,
	}
}

func newQuestResponse(q *model.Quest) questResponse {
	details := make([]detailQuestResponse, 0, len(q.DetailQuests))
	for _, d := range q.DetailQuests {
		details = append(details, newDetailQuestResponse(d))
	}

	return questResponse{
		ID:                q.ID,
		Seq:               q.Seq,
		Title:             q.Title,
		Description:       q.Description,
		State:             string(q.State),
		Type:              string(q.Type),
		DeadLine:          q.DeadLine,
		CanComplete:       q.IsProceed() && q.CanComplete(),
		DetailQuests:      details,
		PreferenceQuestID: q.PreferenceQuestID,
		CreatedAt:         q.CreatedAt,
	}
}

func bindQuest(c *gin.Context) (service.QuestRequest, bool) {
	var req questRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return service.QuestRequest{}, false
	}
	return req.toService(), true
}

func (r *questRoutes) GetCurrentQuests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	quests, err := r.qs.GetCurrentQuests(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "failed to get current quests", err)
		return
	}

	out := make([]questResponse, 0, len(quests))
	for _, q := range quests {
		out = append(out, newQuestResponse(q))
	}
	c.JSON(http.StatusOK, out)
}

func (r *questRoutes) CreateQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	req, ok := bindQuest(c)
	if !ok {
		return
	}

	quest, err := r.qs.CreateQuest(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, "failed to create quest", err)
		return
	}

	c.JSON(http.StatusCreated, newQuestResponse(quest))
}

func (r *questRoutes) GetQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := pathID(c, "quest_id")
	if !ok {
		return
	}

	quest, err := r.qs.GetQuest(c.Request.Context(), userID, questID)
	if err != nil {
		respondError(c, "failed to get quest", err)
		return
	}

	c.JSON(http.StatusOK, newQuestResponse(quest))
}

func (r *questRoutes) SearchQuests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	startDate, ok := queryDate(c, "start_date")
	if !ok {
		return
	}
	endDate, ok := queryDate(c, "end_date")
	if !ok {
		return
	}

	req := service.QuestSearchRequest{
		StartDate: startDate,
		EndDate:   endDate,
		Keyword:   c.Query("keyword"),
		Page:      page,
	}
	if state := c.Query("state"); state != "" {
		s := model.QuestState(strings.ToUpper(state))
		req.State = &s
	}

	result, err := r.qs.SearchQuests(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, "failed to search quests", err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(result, newQuestResponse))
}

func (r *questRoutes) UpdateQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := pathID(c, "quest_id")
	if !ok {
		return
	}
	req, ok := bindQuest(c)
	if !ok {
		return
	}

	quest, err := r.qs.UpdateQuest(c.Request.Context(), userID, questID, req)
	if err != nil {
		respondError(c, "failed to update quest", err)
		return
	}

	c.JSON(http.StatusOK, newQuestResponse(quest))
}

func (r *questRoutes) DeleteQuest(c *gin.Context) {
	r.transition(c, "failed to delete quest", r.qs.DeleteQuest)
}

func (r *questRoutes) CompleteQuest(c *gin.Context) {
	r.transition(c, "failed to complete quest", r.qs.CompleteQuest)
}

func (r *questRoutes) DiscardQuest(c *gin.Context) {
	r.transition(c, "failed to discard quest", r.qs.DiscardQuest)
}

func (r *questRoutes) transition(c *gin.Context, msg string, fn func(ctx context.Context, userID, questID int64) error) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := pathID(c, "quest_id")
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), userID, questID); err != nil {
		respondError(c, msg, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type interactRequest struct {
	Count *int `json:"count"`
}

func (r *questRoutes) InteractWithDetailQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := pathID(c, "quest_id")
	if !ok {
		return
	}
	detailID, ok := pathID(c, "detail_id")
	if !ok {
		return
	}

	var req interactRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	detail, err := r.qs.InteractWithDetailQuest(c.Request.Context(), userID, questID, detailID, req.Count)
	if err != nil {
		respondError(c, "failed to interact with detail quest", err)
		return
	}

	c.JSON(http.StatusOK, newDetailQuestResponse(detail))
}

type statisticsResponse struct {
	Date          string  `json:"date"`
	Registered    int64   `json:"registered"`
	Completed     int64   `json:"completed"`
	Failed        int64   `json:"failed"`
	Discarded     int64   `json:"discarded"`
	Main          int64   `json:"main"`
	Sub           int64   `json:"sub"`
	CompleteRatio float64 `json:"complete_ratio"`
	FailRatio     float64 `json:"fail_ratio"`
	DiscardRatio  float64 `json:"discard_ratio"`
	MainRatio     float64 `json:"main_ratio"`
	SubRatio      float64 `json:"sub_ratio"`
}

func (r *questRoutes) GetStatistics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}
	if date == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}

	period := model.StatisticsPeriod(strings.ToUpper(c.DefaultQuery("period", string(model.StatisticsDaily))))
	stats, err := r.ls.GetStatistics(c.Request.Context(), userID, *date, period)
	if err != nil {
		respondError(c, "failed to get statistics", err)
		return
	}

	out := make([]statisticsResponse, 0, len(stats))
	for _, s := range stats {
		out = append(out, statisticsResponse{
			Date:          s.Date.Format(time.DateOnly),
			Registered:    s.Registered,
			Completed:     s.Completed,
			Failed:        s.Failed,
			Discarded:     s.Discarded,
			Main:          s.Main,
			Sub:           s.Sub,
			CompleteRatio: s.CompleteRatio,
			FailRatio:     s.FailRatio,
			DiscardRatio:  s.DiscardRatio,
			MainRatio:     s.MainRatio,
			SubRatio:      s.SubRatio,
		})
	}
	c.JSON(http.StatusOK, out)
}
