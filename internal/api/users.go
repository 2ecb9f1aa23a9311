package api

import (
	"net/http"
	"strings"
	"time"

	"dailyquest/internal/service"
	"dailyquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	us service.UserServiceI
}

// NewUserRoutes registers the profile endpoints behind the given guards,
// usually the token middleware followed by the rate limiter.
func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, guards ...gin.HandlerFunc) {
	r := &userRoutes{us: us}
	h := handler.Group("/users")
	h.Use(guards...)
	{
		h.GET("/me", r.GetMe)
		h.PATCH("/me", r.UpdateMe)
		h.GET("/nickname/duplicated", r.IsNicknameDuplicated)
	}
}

type userResponse struct {
	ID                      int64      `json:"id"`
	Nickname                string     `json:"nickname"`
	Role                    string     `json:"role"`
	Level                   int        `json:"level"`
	CurrentExp              int64      `json:"current_exp"`
	RequiredExp             int64      `json:"required_exp"`
	Exp                     int64      `json:"exp"`
	Gold                    int64      `json:"gold"`
	CoreTime                int        `json:"core_time"`
	CoreTimeLastModifiedAt  *time.Time `json:"core_time_last_modified_at"`
	CoreTimeAvailableAt     *time.Time `json:"core_time_available_at"`
	CurrentRegistrationDays int64      `json:"current_registration_days"`
	CurrentCompletionDays   int64      `json:"current_completion_days"`
	MaxRegistrationDays     int64      `json:"max_registration_days"`
	MaxCompletionDays       int64      `json:"max_completion_days"`
	PerfectDayCount         int64      `json:"perfect_day_count"`
}

type updateUserRequest struct {
	Nickname *string `json:"nickname"`
	CoreTime *int    `json:"core_time"`
}

func (r *userRoutes) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	principal, err := r.us.GetPrincipal(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "failed to get user", err)
		return
	}

	u := principal.User
	c.JSON(http.StatusOK, userResponse{
		ID:                      u.ID,
		Nickname:                u.Nickname,
		Role:                    string(u.Role),
		Level:                   principal.Level.Level,
		CurrentExp:              principal.Level.CurrentExp,
		RequiredExp:             principal.Level.RequiredExp,
		Exp:                     u.Exp,
		Gold:                    u.Gold,
		CoreTime:                u.CoreTime,
		CoreTimeLastModifiedAt:  u.CoreTimeLastModifiedAt,
		CoreTimeAvailableAt:     principal.AvailableAt,
		CurrentRegistrationDays: u.CurrentRegistrationDays,
		CurrentCompletionDays:   u.CurrentCompletionDays,
		MaxRegistrationDays:     u.MaxRegistrationDays,
		MaxCompletionDays:       u.MaxCompletionDays,
		PerfectDayCount:         u.PerfectDayCount,
	})
}

func (r *userRoutes) UpdateMe(c *gin.Context) {
	log := logger.Logger()

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := r.us.UpdateUser(c.Request.Context(), userID, service.UserUpdateRequest{
		Nickname: req.Nickname,
		CoreTime: req.CoreTime,
	})
	if err != nil {
		respondError(c, "failed to update user", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *userRoutes) IsNicknameDuplicated(c *gin.Context) {
	nickname := strings.TrimSpace(c.Query("nickname"))
	if nickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nickname is required"})
		return
	}

	duplicated, err := r.us.IsNicknameDuplicated(c.Request.Context(), nickname)
	if err != nil {
		respondError(c, "failed to check nickname", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"duplicated": duplicated})
}
