package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/valyala/fastjson"

	types "github.com/yungbote/pulse-backend/internal/domain"
	"github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/bus"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
	"github.com/yungbote/pulse-backend/internal/services"
)

// ChatActor serves /ws/chat/:chat_id.
type ChatActor struct {
	*base
	chats services.ChatService
}

func NewChatActor(log *logger.Logger, verifier services.TokenVerifier, chats services.ChatService, groups *bus.GroupBus, cfg Config) *ChatActor {
	return &ChatActor{
		base:  newBase(log.With("component", "ChatActor"), verifier, groups, cfg),
		chats: chats,
	}
}

func (a *ChatActor) Serve(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Warn("chat socket upgrade failed", "error", err)
		return
	}
	ctx := c.Request.Context()

	u, ok := a.authenticate(ctx, conn, c.Query("token"))
	if !ok {
		return
	}
	chatID, err := uuid.Parse(strings.TrimSpace(c.Param("chat_id")))
	if err != nil {
		a.reject(conn, CloseForbidden, "chat not found")
		return
	}
	member, err := a.chats.IsParticipant(dbctx.New(ctx), chatID, u.ID)
	if err != nil {
		a.rejectErr(conn, fmt.Errorf("membership lookup for chat %s: %w", chatID, err), CloseForbidden)
		return
	}
	if !member {
		a.reject(conn, CloseForbidden, "not a participant")
		return
	}

	conv := &chatConn{actor: a, user: u, chatID: chatID}
	a.serve(ctx, conn, kindChat, realtime.ChatGroup(chatID), u,
		protocol.NewChatConnected(chatID, u.ID), conv.handle, conv.render)
}

// chatConn holds the identity and chat cached for one connection.
type chatConn struct {
	actor  *ChatActor
	user   *types.User
	chatID uuid.UUID
}

func (cc *chatConn) handle(ctx context.Context, in protocol.Inbound) protocol.Frame {
	switch in.Type {
	case protocol.InChatMessage:
		return cc.sendMessage(ctx, in)
	case protocol.InMessageRead:
		return cc.markStatus(ctx, in, chat.StatusRead)
	case protocol.InMessageDelivered:
		return cc.markStatus(ctx, in, chat.StatusDelivered)
	case protocol.InTypingStart, protocol.InTypingStop:
		frame := protocol.NewTypingIndicator(cc.user.ID, cc.user.Username, in.Type == protocol.InTypingStart)
		if err := cc.actor.groups.Publish(ctx, realtime.ChatGroup(cc.chatID), frame); err != nil {
			cc.actor.log.Warn("typing publish failed", "chat_id", cc.chatID, "error", err)
		}
		return nil
	default:
		return protocol.NewError(protocol.MsgUnknownType)
	}
}

func (cc *chatConn) sendMessage(ctx context.Context, in protocol.Inbound) protocol.Frame {
	if strings.TrimSpace(in.Content) == "" {
		return protocol.NewError(protocol.MsgEmptyContent)
	}
	var replyTo *uuid.UUID
	if id, err := uuid.Parse(strings.TrimSpace(in.ReplyTo)); err == nil {
		replyTo = &id
	}
	_, err := cc.actor.chats.SendMessage(dbctx.New(ctx), services.SendMessageInput{
		ChatID:            cc.chatID,
		SenderID:          cc.user.ID,
		Content:           in.Content,
		ReplyToID:         replyTo,
		MembershipChecked: true,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrEmptyContent), errors.Is(err, services.ErrContentTooLong):
		return protocol.NewError(err.Error())
	default:
		cc.actor.log.Error("send message failed", "chat_id", cc.chatID, "error", err)
		return protocol.NewError(protocol.MsgSendFailed)
	}
}

func (cc *chatConn) markStatus(ctx context.Context, in protocol.Inbound, status chat.DeliveryStatus) protocol.Frame {
	raw := strings.TrimSpace(in.MessageID)
	if raw == "" {
		return protocol.NewError(protocol.MsgMessageIDRequired)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return protocol.NewError(protocol.MsgMessageNotFound)
	}
	_, err = cc.actor.chats.MarkStatus(dbctx.New(ctx), cc.user.ID, cc.chatID, id, status)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrMessageNotFound):
		return protocol.NewError(protocol.MsgMessageNotFound)
	case errors.Is(err, services.ErrOwnMessage):
		return protocol.NewError(protocol.MsgOwnMessage)
	default:
		cc.actor.log.Error("status update failed", "chat_id", cc.chatID, "message_id", id, "error", err)
		return protocol.NewError(protocol.MsgStatusFailed)
	}
}

// render applies the viewer relative parts of chat events: the typing user
// never sees their own indicator, and message frames get is_own_message and
// delivery_status for this viewer.
func (cc *chatConn) render(ev realtime.Event) ([]byte, bool) {
	switch ev.Type {
	case protocol.TypeTypingIndicator:
		v, err := fastjson.ParseBytes(ev.Data)
		if err != nil {
			return nil, false
		}
		if string(v.GetStringBytes("user_id")) == cc.user.ID.String() {
			return nil, false
		}
		return ev.Data, true
	case protocol.TypeNewMessage, protocol.TypeMessageUpdated:
		var f protocol.NewMessage
		if err := json.Unmarshal(ev.Data, &f); err != nil {
			cc.actor.log.Warn("undecodable message frame", "type", ev.Type, "error", err)
			return ev.Data, true
		}
		f.Message = f.Message.ForViewer(cc.user.ID, "")
		out, err := json.Marshal(f)
		if err != nil {
			return ev.Data, true
		}
		return out, true
	default:
		return passthrough(ev)
	}
}
