package api

import (
	"net/http"
	"strings"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/service"
	"dailyquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type preferenceQuestRoutes struct {
	ps service.PreferenceQuestServiceI
}

func NewPreferenceQuestRoutes(handler *gin.RouterGroup, ps service.PreferenceQuestServiceI, guards ...gin.HandlerFunc) {
	r := &preferenceQuestRoutes{ps: ps}
	h := handler.Group("/preference-quests")
	h.Use(guards...)
	{
		h.GET("", r.GetActivePreferenceQuests)
		h.POST("", r.CreatePreferenceQuest)
		h.GET("/:preference_quest_id", r.GetPreferenceQuest)
		h.PATCH("/:preference_quest_id", r.UpdatePreferenceQuest)
		h.DELETE("/:preference_quest_id", r.DeletePreferenceQuest)
		h.POST("/:preference_quest_id/register", r.RegisterQuest)
	}
}

type preferenceQuestRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Details     []detailQuestRequest `json:"details"`
}

type preferenceDetailQuestResponse struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	TargetCount int    `json:"target_count"`
}

type preferenceQuestResponse struct {
	ID           int64                           `json:"id"`
	Title        string                          `json:"title"`
	Description  string                          `json:"description"`
	DetailQuests []preferenceDetailQuestResponse `json:"detail_quests"`
	UsedCount    int64                           `json:"used_count"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

func newPreferenceQuestResponse(p *model.PreferenceQuest) preferenceQuestResponse {
	details := make([]preferenceDetailQuestResponse, len(p.DetailQuests))
	for i, d := range p.DetailQuests {
		details[i] = preferenceDetailQuestResponse{
			Title:       d.Title,
			Type:        string(d.Type),
			TargetCount: d.TargetCount,
		}
	}

	return preferenceQuestResponse{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		DetailQuests: details,
		UsedCount:    p.UsedCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func bindPreferenceQuest(c *gin.Context) (service.PreferenceQuestRequest, bool) {
	var req preferenceQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return service.PreferenceQuestRequest{}, false
	}

	details := make([]service.DetailQuestRequest, len(req.Details))
	for i, d := range req.Details {
		details[i] = service.DetailQuestRequest{
			Title:       d.Title,
			Type:        model.DetailQuestType(strings.ToUpper(d.Type)),
			TargetCount: d.TargetCount,
		}
	}

	return service.PreferenceQuestRequest{
		Title:       req.Title,
		Description: req.Description,
		Details:     details,
	}, true
}

func (r *preferenceQuestRoutes) GetActivePreferenceQuests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	quests, err := r.ps.GetActivePreferenceQuests(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "failed to get preference quests", err)
		return
	}

	resp := make([]preferenceQuestResponse, len(quests))
	for i, p := range quests {
		resp[i] = newPreferenceQuestResponse(p)
	}
	c.JSON(http.StatusOK, resp)
}

func (r *preferenceQuestRoutes) GetPreferenceQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "preference_quest_id")
	if !ok {
		return
	}

	p, err := r.ps.GetPreferenceQuest(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, "failed to get preference quest", err)
		return
	}
	c.JSON(http.StatusOK, newPreferenceQuestResponse(p))
}

func (r *preferenceQuestRoutes) CreatePreferenceQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	req, ok := bindPreferenceQuest(c)
	if !ok {
		return
	}

	p, err := r.ps.CreatePreferenceQuest(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, "failed to create preference quest", err)
		return
	}
	c.JSON(http.StatusCreated, newPreferenceQuestResponse(p))
}

func (r *preferenceQuestRoutes) UpdatePreferenceQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "preference_quest_id")
	if !ok {
		return
	}
	req, ok := bindPreferenceQuest(c)
	if !ok {
		return
	}

	p, err := r.ps.UpdatePreferenceQuest(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, "failed to update preference quest", err)
		return
	}
	c.JSON(http.StatusOK, newPreferenceQuestResponse(p))
}

func (r *preferenceQuestRoutes) DeletePreferenceQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "preference_quest_id")
	if !ok {
		return
	}

	if err := r.ps.DeletePreferenceQuest(c.Request.Context(), userID, id); err != nil {
		respondError(c, "failed to delete preference quest", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *preferenceQuestRoutes) RegisterQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "preference_quest_id")
	if !ok {
		return
	}

	quest, err := r.ps.RegisterQuest(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, "failed to register quest from preference quest", err)
		return
	}
	c.JSON(http.StatusCreated, newQuestResponse(quest))
}
