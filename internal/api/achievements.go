package api

import (
	"net/http"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/service"

	"github.com/gin-gonic/gin"
)

type achievementRoutes struct {
	as service.AchievementServiceI
}

func NewAchievementRoutes(handler *gin.RouterGroup, as service.AchievementServiceI, guards ...gin.HandlerFunc) {
	r := &achievementRoutes{as: as}
	h := handler.Group("/achievements")
	h.Use(guards...)
	{
		h.GET("/achieved", r.GetAchieved)
		h.GET("/not-achieved", r.GetNotAchieved)
	}
}

type achievementResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	TargetValue int64      `json:"target_value"`
	IsActive    bool       `json:"is_active"`
	AchievedAt  *time.Time `json:"achieved_at,omitempty"`
}

func newAchievementResponse(a *model.Achievement) achievementResponse {
	return achievementResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Type:        string(a.Type),
		TargetValue: a.TargetValue,
		IsActive:    a.IsActive,
	}
}

func newAchievedResponse(a *model.AchievedAchievement) achievementResponse {
	out := newAchievementResponse(&a.Achievement)
	achievedAt := a.AchievedAt
	out.AchievedAt = &achievedAt
	return out
}

func (r *achievementRoutes) GetAchieved(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, ok := pageRequest(c)
	if !ok {
		return
	}

	result, err := r.as.GetAchievedAchievements(c.Request.Context(), userID, page)
	if err != nil {
		respondError(c, "failed to get achieved achievements", err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(result, newAchievedResponse))
}

func (r *achievementRoutes) GetNotAchieved(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, ok := pageRequest(c)
	if !ok {
		return
	}

	result, err := r.as.GetNotAchievedAchievements(c.Request.Context(), userID, page)
	if err != nil {
		respondError(c, "failed to get achievements", err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(result, newAchievementResponse))
}
