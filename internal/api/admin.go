package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/service"
	"dailyquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxExecutionHistory = 50

// JobRunner starts batch jobs by name and reports their history.
type JobRunner interface {
	Run(ctx context.Context, name string) error
	LastExecutions(ctx context.Context, name string, limit int) ([]*model.JobExecution, error)
}

type adminRoutes struct {
	ss   service.SettingsServiceI
	as   service.AchievementServiceI
	jobs JobRunner
}

// NewAdminRoutes expects guards to end with the admin check.
func NewAdminRoutes(handler *gin.RouterGroup, ss service.SettingsServiceI, as service.AchievementServiceI, jobs JobRunner, guards ...gin.HandlerFunc) {
	r := &adminRoutes{ss: ss, as: as, jobs: jobs}
	h := handler.Group("/admin")
	h.Use(guards...)
	{
		h.GET("/settings", r.GetSettings)
		h.PUT("/settings", r.UpdateSettings)
		h.GET("/exp-table", r.GetExpTable)
		h.PUT("/exp-table", r.UpdateExpTable)

		h.GET("/achievements", r.ListAchievements)
		h.POST("/achievements", r.CreateAchievement)
		h.PATCH("/achievements/:achievement_id", r.UpdateAchievement)
		h.PATCH("/achievements/:achievement_id/active", r.SetAchievementActive)

		h.GET("/jobs/:job/executions", r.GetJobExecutions)
		h.POST("/jobs/:job/run", r.RunJob)
	}
}

type settingsPayload struct {
	QuestClearExp  int64 `json:"quest_clear_exp"`
	QuestClearGold int64 `json:"quest_clear_gold"`
	MaxRewardCount int   `json:"max_reward_count"`
}

func (r *adminRoutes) GetSettings(c *gin.Context) {
	settings, err := r.ss.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, "failed to get settings", err)
		return
	}

	c.JSON(http.StatusOK, settingsPayload{
		QuestClearExp:  settings.QuestClearExp,
		QuestClearGold: settings.QuestClearGold,
		MaxRewardCount: settings.MaxRewardCount,
	})
}

func (r *adminRoutes) UpdateSettings(c *gin.Context) {
	var req settingsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := r.ss.UpdateSettings(c.Request.Context(), &model.SystemSettings{
		QuestClearExp:  req.QuestClearExp,
		QuestClearGold: req.QuestClearGold,
		MaxRewardCount: req.MaxRewardCount,
	})
	if err != nil {
		respondError(c, "failed to update settings", err)
		return
	}

	c.JSON(http.StatusOK, req)
}

func (r *adminRoutes) GetExpTable(c *gin.Context) {
	table, err := r.ss.GetExpTable(c.Request.Context())
	if err != nil {
		respondError(c, "failed to get exp table", err)
		return
	}

	c.JSON(http.StatusOK, table)
}

func (r *adminRoutes) UpdateExpTable(c *gin.Context) {
	var table model.ExpTable
	if err := c.ShouldBindJSON(&table); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := r.ss.UpdateExpTable(c.Request.Context(), table); err != nil {
		respondError(c, "failed to update exp table", err)
		return
	}

	c.JSON(http.StatusOK, table)
}

type achievementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	TargetValue int64  `json:"target_value"`
}

func (r *adminRoutes) ListAchievements(c *gin.Context) {
	page, ok := pageRequest(c)
	if !ok {
		return
	}

	result, err := r.as.ListAchievements(c.Request.Context(), page)
	if err != nil {
		respondError(c, "failed to list achievements", err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(result, newAchievementResponse))
}

func (r *adminRoutes) CreateAchievement(c *gin.Context) {
	var req achievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	achievement, err := r.as.CreateAchievement(c.Request.Context(), service.AchievementRequest{
		Title:       req.Title,
		Description: req.Description,
		Type:        model.AchievementType(strings.ToUpper(req.Type)),
		TargetValue: req.TargetValue,
	})
	if err != nil {
		respondError(c, "failed to create achievement", err)
		return
	}

	c.JSON(http.StatusCreated, newAchievementResponse(achievement))
}

func (r *adminRoutes) UpdateAchievement(c *gin.Context) {
	id, ok := pathID(c, "achievement_id")
	if !ok {
		return
	}

	var req achievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	achievement, err := r.as.UpdateAchievement(c.Request.Context(), id, service.AchievementUpdateRequest{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, "failed to update achievement", err)
		return
	}

	c.JSON(http.StatusOK, newAchievementResponse(achievement))
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (r *adminRoutes) SetAchievementActive(c *gin.Context) {
	id, ok := pathID(c, "achievement_id")
	if !ok {
		return
	}

	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active is required"})
		return
	}

	if err := r.as.SetAchievementActive(c.Request.Context(), id, *req.Active); err != nil {
		respondError(c, "failed to change achievement state", err)
		return
	}

	c.Status(http.StatusNoContent)
}

type jobExecutionResponse struct {
	ID         string            `json:"id"`
	JobName    string            `json:"job_name"`
	Parameters map[string]string `json:"parameters"`
	Status     string            `json:"status"`
	ReadCount  int               `json:"read_count"`
	WriteCount int               `json:"write_count"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at"`
	Error      string            `json:"error,omitempty"`
}

func (r *adminRoutes) GetJobExecutions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > maxExecutionHistory {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	executions, err := r.jobs.LastExecutions(c.Request.Context(), c.Param("job"), limit)
	if err != nil {
		respondError(c, "failed to get job executions", err)
		return
	}

	out := make([]jobExecutionResponse, 0, len(executions))
	for _, e := range executions {
		out = append(out, jobExecutionResponse{
			ID:         e.ID.String(),
			JobName:    e.JobName,
			Parameters: e.Parameters,
			Status:     string(e.Status),
			ReadCount:  e.ReadCount,
			WriteCount: e.WriteCount,
			StartedAt:  e.StartedAt,
			FinishedAt: e.FinishedAt,
			Error:      e.Error,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (r *adminRoutes) RunJob(c *gin.Context) {
	job := c.Param("job")
	logger.Logger().Info("manual job run requested", zap.String("job", job))

	if err := r.jobs.Run(c.Request.Context(), job); err != nil {
		respondError(c, "job run failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job, "status": string(model.JobStatusCompleted)})
}
