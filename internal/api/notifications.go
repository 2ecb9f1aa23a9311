package api

import (
	"net/http"
	"strings"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/notify"
	"dailyquest/internal/service"
	"dailyquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NotificationStream serves a live notification connection until it closes.
type NotificationStream interface {
	Serve(userID int64, conn *websocket.Conn)
}

type notificationRoutes struct {
	ns     service.NotificationServiceI
	stream NotificationStream
}

func NewNotificationRoutes(handler *gin.RouterGroup, ns service.NotificationServiceI, stream NotificationStream, guards ...gin.HandlerFunc) {
	r := &notificationRoutes{ns: ns, stream: stream}
	h := handler.Group("/notifications")
	h.Use(guards...)
	{
		h.GET("", r.ListNotifications)
		h.GET("/unconfirmed", r.ListUnconfirmedNotifications)
		h.PATCH("/confirm", r.ConfirmAllNotifications)
		h.PATCH("/:notification_id/confirm", r.ConfirmNotification)
		h.DELETE("", r.DeleteAllNotifications)
		h.DELETE("/:notification_id", r.DeleteNotification)
		h.GET("/ws", r.handleWebSocket)
	}
}

type notificationResponse struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Metadata    string     `json:"metadata"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newNotificationResponse(n *model.Notification) notificationResponse {
	return notificationResponse{
		ID:          n.ID,
		Type:        string(n.Type),
		Title:       n.Title,
		Content:     n.Content,
		Metadata:    n.Metadata,
		ConfirmedAt: n.ConfirmedAt,
		CreatedAt:   n.CreatedAt,
	}
}

func notificationCondition(c *gin.Context, unconfirmed bool) (model.NotificationCondition, bool) {
	cond := model.NotificationCondition{Unconfirmed: unconfirmed}

	if value := c.Query("type"); value != "" {
		t := model.NotificationType(strings.ToUpper(value))
		if !t.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
			return cond, false
		}
		cond.Type = &t
	}
	return cond, true
}

func (r *notificationRoutes) list(c *gin.Context, unconfirmed bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	cond, ok := notificationCondition(c, unconfirmed)
	if !ok {
		return
	}

	result, err := r.ns.ListNotifications(c.Request.Context(), userID, cond, page)
	if err != nil {
		respondError(c, "failed to list notifications", err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(result, newNotificationResponse))
}

func (r *notificationRoutes) ListNotifications(c *gin.Context) {
	r.list(c, false)
}

func (r *notificationRoutes) ListUnconfirmedNotifications(c *gin.Context) {
	r.list(c, true)
}

func (r *notificationRoutes) ConfirmNotification(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "notification_id")
	if !ok {
		return
	}

	if err := r.ns.ConfirmNotification(c.Request.Context(), userID, id); err != nil {
		respondError(c, "failed to confirm notification", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *notificationRoutes) ConfirmAllNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cond, ok := notificationCondition(c, false)
	if !ok {
		return
	}

	if err := r.ns.ConfirmAllNotifications(c.Request.Context(), userID, cond); err != nil {
		respondError(c, "failed to confirm notifications", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *notificationRoutes) DeleteNotification(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "notification_id")
	if !ok {
		return
	}

	if err := r.ns.DeleteNotification(c.Request.Context(), userID, id); err != nil {
		respondError(c, "failed to delete notification", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *notificationRoutes) DeleteAllNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cond, ok := notificationCondition(c, false)
	if !ok {
		return
	}

	if err := r.ns.DeleteAllNotifications(c.Request.Context(), userID, cond); err != nil {
		respondError(c, "failed to delete notifications", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *notificationRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conn, err := notify.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	log.Debug("notification stream opened", zap.Int64("user_id", userID))
	r.stream.Serve(userID, conn)
}
