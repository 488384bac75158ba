package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/http/response"
	"github.com/yungbote/pulse-backend/internal/platform/apierr"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
	"github.com/yungbote/pulse-backend/internal/services"
)

var errInvalidBody = apierr.BadRequest("invalid_request", "Invalid request body")

type MessagingHandler struct {
	chat         services.ChatService
	mediaBaseURL string
}

func NewMessagingHandler(chat services.ChatService, mediaBaseURL string) *MessagingHandler {
	return &MessagingHandler{chat: chat, mediaBaseURL: mediaBaseURL}
}

type createChatReq struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids" binding:"required,min=1"`
	IsGroupChat    bool        `json:"is_group_chat"`
	ChatName       string      `json:"chat_name"`
}

type renameChatReq struct {
	ChatName string `json:"chat_name" binding:"required"`
}

type sendMessageReq struct {
	Content       string     `json:"content"`
	MessageType   string     `json:"message_type"`
	AttachmentKey string     `json:"attachment_key"`
	ReplyTo       *uuid.UUID `json:"reply_to"`
}

type editMessageReq struct {
	Content string `json:"content" binding:"required"`
}

// GET /api/messaging/chats
func (h *MessagingHandler) ListChats(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chats, err := h.chat.ListChats(dbcOf(c), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chats": chats})
}

// POST /api/messaging/chats
func (h *MessagingHandler) CreateChat(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	var req createChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, created, err := h.chat.CreateChat(dbcOf(c), userID, services.CreateChatInput{
		ParticipantIDs: req.ParticipantIDs,
		IsGroupChat:    req.IsGroupChat,
		Name:           req.ChatName,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if created {
		response.RespondCreated(c, gin.H{"chat": view})
		return
	}
	response.RespondOK(c, gin.H{"chat": view})
}

// GET /api/messaging/chats/:id
func (h *MessagingHandler) GetChat(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chatID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	detail, err := h.chat.GetChat(dbcOf(c), userID, chatID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chat": detail})
}

// PATCH /api/messaging/chats/:id
func (h *MessagingHandler) RenameChat(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chatID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req renameChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, services.ErrInvalidChatName)
		return
	}
	view, err := h.chat.RenameChat(dbcOf(c), userID, chatID, req.ChatName)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chat": view})
}

// DELETE /api/messaging/chats/:id
func (h *MessagingHandler) LeaveChat(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chatID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	deleted, err := h.chat.LeaveChat(dbcOf(c), userID, chatID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Left chat", "chat_deleted": deleted})
}

// GET /api/messaging/chats/:id/messages?limit=50&before=RFC3339&before_id=uuid
func (h *MessagingHandler) ListMessages(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chatID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var before *chat.MessageCursor
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_before", err)
			return
		}
		before = &chat.MessageCursor{CreatedAt: t}
		if rawID := strings.TrimSpace(c.Query("before_id")); rawID != "" {
			id, err := uuid.Parse(rawID)
			if err != nil {
				response.RespondError(c, http.StatusBadRequest, "invalid_before_id", err)
				return
			}
			before.ID = id
		}
	}
	msgs, err := h.chat.ListMessages(dbcOf(c), userID, chatID, before, queryInt(c, "limit", 50))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// POST /api/messaging/chats/:id/messages
func (h *MessagingHandler) SendMessage(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chatID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, errInvalidBody)
		return
	}
	m, err := h.chat.SendMessage(dbcOf(c), services.SendMessageInput{
		ChatID:        chatID,
		SenderID:      userID,
		Content:       req.Content,
		MessageType:   chat.MessageType(strings.TrimSpace(req.MessageType)),
		AttachmentKey: req.AttachmentKey,
		ReplyToID:     req.ReplyTo,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	view := protocol.RenderMessage(m, protocol.MessageOptions{Viewer: userID, MediaBaseURL: h.mediaBaseURL})
	response.RespondCreated(c, gin.H{"message": view})
}

// PATCH /api/messaging/messages/:id
func (h *MessagingHandler) EditMessage(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	messageID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req editMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, services.ErrEmptyContent)
		return
	}
	view, err := h.chat.EditMessage(dbcOf(c), userID, messageID, req.Content)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": view})
}

// DELETE /api/messaging/messages/:id
func (h *MessagingHandler) DeleteMessage(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	messageID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if err := h.chat.DeleteMessage(dbcOf(c), userID, messageID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Message deleted"})
}

// POST /api/messaging/messages/:id/read
func (h *MessagingHandler) MarkRead(c *gin.Context) { h.markStatus(c, chat.StatusRead) }

// POST /api/messaging/messages/:id/delivered
func (h *MessagingHandler) MarkDelivered(c *gin.Context) { h.markStatus(c, chat.StatusDelivered) }

func (h *MessagingHandler) markStatus(c *gin.Context, status chat.DeliveryStatus) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	messageID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	row, err := h.chat.MarkStatus(dbcOf(c), userID, uuid.Nil, messageID, status)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"message_id": row.MessageID,
		"status":     row.Status,
		"timestamp":  row.Timestamp(),
	})
}

// GET /api/messaging/chats/:id/participants
func (h *MessagingHandler) ListParticipants(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chatID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	users, err := h.chat.ListParticipants(dbcOf(c), userID, chatID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"participants": users})
}

// POST /api/messaging/chats/:id/participants/:user_id
func (h *MessagingHandler) AddParticipant(c *gin.Context) {
	h.changeParticipant(c, true)
}

// DELETE /api/messaging/chats/:id/participants/:user_id
func (h *MessagingHandler) RemoveParticipant(c *gin.Context) {
	h.changeParticipant(c, false)
}

func (h *MessagingHandler) changeParticipant(c *gin.Context, add bool) {
	actorID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chatID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	targetID, err := paramUUID(c, "user_id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if add {
		err = h.chat.AddParticipant(dbcOf(c), actorID, chatID, targetID)
	} else {
		err = h.chat.RemoveParticipant(dbcOf(c), actorID, chatID, targetID)
	}
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if add {
		response.RespondOK(c, gin.H{"message": "Participant added"})
		return
	}
	response.RespondOK(c, gin.H{"message": "Participant removed"})
}

// GET /api/messaging/chats/:id/online
func (h *MessagingHandler) Online(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		response.RespondAPIError(c, services.ErrTokenMissing)
		return
	}
	chatID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	users, err := h.chat.Online(c.Request.Context(), userID, chatID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"online_users": users})
}
