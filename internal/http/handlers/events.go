package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pulse-backend/internal/http/response"
	"github.com/yungbote/pulse-backend/internal/services"
)

// EventHandler is the service-to-service entry into the notification
// dispatcher, used by the posts and accounts systems.
type EventHandler struct {
	notifications services.NotificationService
}

func NewEventHandler(notifications services.NotificationService) *EventHandler {
	return &EventHandler{notifications: notifications}
}

// POST /internal/events/like
func (h *EventHandler) Like(c *gin.Context) {
	var ev services.LikeEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.notifications.NotifyLike(c.Request.Context(), ev); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// POST /internal/events/comment
func (h *EventHandler) Comment(c *gin.Context) {
	var ev services.CommentEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.notifications.NotifyComment(c.Request.Context(), ev); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// POST /internal/events/follow
func (h *EventHandler) Follow(c *gin.Context) {
	var ev services.FollowEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.notifications.NotifyFollow(c.Request.Context(), ev); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// POST /internal/events/system
func (h *EventHandler) System(c *gin.Context) {
	var ev services.SystemEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	n, err := h.notifications.NotifySystem(c.Request.Context(), ev)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if n == nil {
		c.Status(http.StatusAccepted)
		return
	}
	response.RespondCreated(c, gin.H{"notification_id": n.ID})
}
