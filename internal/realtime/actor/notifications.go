package actor

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/bus"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
	"github.com/yungbote/pulse-backend/internal/services"
)

// NotificationActor serves /ws/notifications.
type NotificationActor struct {
	*base
	notifications services.NotificationService
}

func NewNotificationActor(log *logger.Logger, verifier services.TokenVerifier, notifications services.NotificationService, groups *bus.GroupBus, cfg Config) *NotificationActor {
	return &NotificationActor{
		base:          newBase(log.With("component", "NotificationActor"), verifier, groups, cfg),
		notifications: notifications,
	}
}

func (a *NotificationActor) Serve(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Warn("notification socket upgrade failed", "error", err)
		return
	}
	ctx := c.Request.Context()

	u, ok := a.authenticate(ctx, conn, c.Query("token"))
	if !ok {
		return
	}
	userID := u.ID
	handle := func(ctx context.Context, in protocol.Inbound) protocol.Frame {
		return a.handle(ctx, userID, in)
	}
	a.serve(ctx, conn, kindNotifications, realtime.NotificationGroup(userID), u,
		protocol.NewNotificationsConnected(userID), handle, passthrough)
}

func (a *NotificationActor) handle(ctx context.Context, userID uuid.UUID, in protocol.Inbound) protocol.Frame {
	dbc := dbctx.New(ctx)
	switch in.Type {
	case protocol.InMarkRead:
		raw := strings.TrimSpace(in.NotificationID)
		if raw == "" {
			return protocol.NewError(protocol.MsgNotificationID)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return protocol.NewError(protocol.MsgNotificationAbsent)
		}
		if _, err := a.notifications.MarkRead(dbc, userID, id); err != nil {
			if errors.Is(err, services.ErrNotificationNotFound) {
				return protocol.NewError(protocol.MsgNotificationAbsent)
			}
			a.log.Error("mark read failed", "notification_id", id, "error", err)
			return protocol.NewError(protocol.MsgRequestFailed)
		}
		return protocol.NewMarkReadSuccess(id)
	case protocol.InMarkAllRead:
		n, err := a.notifications.MarkAllRead(dbc, userID)
		if err != nil {
			a.log.Error("mark all read failed", "error", err)
			return protocol.NewError(protocol.MsgRequestFailed)
		}
		return protocol.NewMarkAllReadSuccess(n)
	case protocol.InGetUnreadCount:
		n, err := a.notifications.UnreadCount(dbc, userID)
		if err != nil {
			a.log.Error("unread count failed", "error", err)
			return protocol.NewError(protocol.MsgRequestFailed)
		}
		return protocol.NewUnreadCount(n)
	default:
		return protocol.NewError(protocol.MsgUnknownType)
	}
}
