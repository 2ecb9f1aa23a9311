package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dailyquest/internal/batch"
	"dailyquest/internal/model"
	"dailyquest/internal/service"
	"dailyquest/pkg/auth"
	"dailyquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, model.ErrQuestNotProceed),
		errors.Is(err, model.ErrDetailQuestsIncomplete):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrQuestNotFound),
		errors.Is(err, service.ErrAchievementNotFound),
		errors.Is(err, service.ErrNotificationMissing),
		errors.Is(err, service.ErrPreferenceQuestNotFound),
		errors.Is(err, model.ErrDetailQuestNotFound),
		errors.Is(err, batch.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNicknameDuplicated),
		errors.Is(err, service.ErrAchievementExists),
		errors.Is(err, service.ErrCoreTimeNotAllowed),
		errors.Is(err, model.ErrQuestDeleted),
		errors.Is(err, batch.ErrJobAlreadyCompleted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError answers with the status mapped from err. Unexpected errors are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, msg string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Logger().Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var coreTimeErr *service.CoreTimeError
	if errors.As(err, &coreTimeErr) {
		body["available_at"] = coreTimeErr.AvailableAt
	}
	c.JSON(status, body)
}

func currentUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserID(c)
	if !ok {
		logger.Logger().Error("user id not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return userID, ok
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func pageRequest(c *gin.Context) (model.PageRequest, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return model.PageRequest{}, false
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if err != nil || size <= 0 || size > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return model.PageRequest{}, false
	}

	return model.PageRequest{Page: page, Size: size}, true
}

// queryDate parses an optional yyyy-MM-dd query parameter.
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		return nil, true
	}

	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &date, true
}

type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func newPageResponse[S, T any](p model.Page[S], convert func(S) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, convert(item))
	}

	return pageResponse[T]{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		Total:      p.Total,
		TotalPages: p.TotalPages(),
	}
}
