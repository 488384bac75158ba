package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pulse-backend/internal/domain/notification"
	"github.com/yungbote/pulse-backend/internal/http/response"
	"github.com/yungbote/pulse-backend/internal/services"
)

type NotificationHandler struct {
	notifications services.NotificationService
}

func NewNotificationHandler(notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GET /api/notifications?unread=true&limit=20&offset=0
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	page, err := h.notifications.List(dbcOf(c), userID, services.ListNotificationsQuery{
		UnreadOnly: strings.EqualFold(strings.TrimSpace(c.Query("unread")), "true"),
		Limit:      queryInt(c, "limit", 20),
		Offset:     queryInt(c, "offset", 0),
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/notifications/:id
func (h *NotificationHandler) Get(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	view, err := h.notifications.Get(dbcOf(c), userID, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notification": view})
}

// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if _, err := h.notifications.MarkRead(dbcOf(c), userID, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notification_id": id, "message": "Notification marked as read"})
}

// POST /api/notifications/mark-all-read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	n, err := h.notifications.MarkAllRead(dbcOf(c), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"updated_count": n, "message": "All notifications marked as read"})
}

// DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if err := h.notifications.Delete(dbcOf(c), userID, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/notifications/clear-read
func (h *NotificationHandler) ClearRead(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	n, err := h.notifications.ClearRead(dbcOf(c), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted_count": n})
}

// GET /api/notifications/stats
func (h *NotificationHandler) Stats(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	stats, err := h.notifications.Stats(dbcOf(c), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	n, err := h.notifications.UnreadCount(dbcOf(c), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"unread_count": n})
}

// GET /api/notifications/settings
func (h *NotificationHandler) GetSettings(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	s, err := h.notifications.GetSettings(dbcOf(c), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": s})
}

// PUT /api/notifications/settings
func (h *NotificationHandler) UpdateSettings(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	var patch notification.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := h.notifications.UpdateSettings(dbcOf(c), userID, patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": s})
}
