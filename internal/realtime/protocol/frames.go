package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Outbound frame types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeError                 = "error"

	TypeNewMessage      = "new_message"
	TypeMessageUpdated  = "message_updated"
	TypeMessageDeleted  = "message_deleted"
	TypeMessageStatus   = "message_status"
	TypeTypingIndicator = "typing_indicator"

	TypeMarkReadSuccess     = "mark_read_success"
	TypeMarkAllReadSuccess  = "mark_all_read_success"
	TypeUnreadCount         = "unread_count"
	TypeNewNotification     = "new_notification"
	TypeNotificationUpdated = "notification_updated"
	TypeUnreadCountUpdated  = "unread_count_updated"
)

// Frame is anything that can be written to a socket. Every frame carries its
// type discriminator in the "type" JSON field.
type Frame interface {
	FrameType() string
}

type ConnectionEstablished struct {
	Type    string     `json:"type"`
	Message string     `json:"message"`
	ChatID  *uuid.UUID `json:"chat_id,omitempty"`
	UserID  uuid.UUID  `json:"user_id"`
}

func (f ConnectionEstablished) FrameType() string { return f.Type }

func NewChatConnected(chatID, userID uuid.UUID) ConnectionEstablished {
	return ConnectionEstablished{Type: TypeConnectionEstablished, Message: "Connected to chat", ChatID: &chatID, UserID: userID}
}

func NewNotificationsConnected(userID uuid.UUID) ConnectionEstablished {
	return ConnectionEstablished{Type: TypeConnectionEstablished, Message: "Connected to notifications", UserID: userID}
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (f Error) FrameType() string { return f.Type }

func NewError(msg string) Error { return Error{Type: TypeError, Message: msg} }

type NewMessage struct {
	Type    string      `json:"type"`
	Message MessageView `json:"message"`
}

func (f NewMessage) FrameType() string { return f.Type }

func NewNewMessage(m MessageView) NewMessage {
	return NewMessage{Type: TypeNewMessage, Message: m}
}

func NewMessageUpdated(m MessageView) NewMessage {
	return NewMessage{Type: TypeMessageUpdated, Message: m}
}

type MessageDeleted struct {
	Type      string    `json:"type"`
	MessageID uuid.UUID `json:"message_id"`
	ChatID    uuid.UUID `json:"chat_id"`
}

func (f MessageDeleted) FrameType() string { return f.Type }

func NewMessageDeleted(messageID, chatID uuid.UUID) MessageDeleted {
	return MessageDeleted{Type: TypeMessageDeleted, MessageID: messageID, ChatID: chatID}
}

type MessageStatus struct {
	Type      string     `json:"type"`
	MessageID uuid.UUID  `json:"message_id"`
	Status    string     `json:"status"`
	UserID    uuid.UUID  `json:"user_id"`
	Timestamp *time.Time `json:"timestamp"`
}

func (f MessageStatus) FrameType() string { return f.Type }

func NewMessageStatus(messageID uuid.UUID, status string, userID uuid.UUID, at *time.Time) MessageStatus {
	return MessageStatus{Type: TypeMessageStatus, MessageID: messageID, Status: status, UserID: userID, Timestamp: at}
}

type TypingIndicator struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsTyping bool      `json:"is_typing"`
}

func (f TypingIndicator) FrameType() string { return f.Type }

func NewTypingIndicator(userID uuid.UUID, username string, typing bool) TypingIndicator {
	return TypingIndicator{Type: TypeTypingIndicator, UserID: userID, Username: username, IsTyping: typing}
}

type MarkReadSuccess struct {
	Type           string    `json:"type"`
	NotificationID uuid.UUID `json:"notification_id"`
	Message        string    `json:"message"`
}

func (f MarkReadSuccess) FrameType() string { return f.Type }

func NewMarkReadSuccess(id uuid.UUID) MarkReadSuccess {
	return MarkReadSuccess{Type: TypeMarkReadSuccess, NotificationID: id, Message: "Notification marked as read"}
}

type MarkAllReadSuccess struct {
	Type         string `json:"type"`
	UpdatedCount int64  `json:"updated_count"`
	Message      string `json:"message"`
}

func (f MarkAllReadSuccess) FrameType() string { return f.Type }

func NewMarkAllReadSuccess(n int64) MarkAllReadSuccess {
	return MarkAllReadSuccess{Type: TypeMarkAllReadSuccess, UpdatedCount: n, Message: "All notifications marked as read"}
}

type UnreadCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

func (f UnreadCount) FrameType() string { return f.Type }

func NewUnreadCount(n int64) UnreadCount { return UnreadCount{Type: TypeUnreadCount, Count: n} }

func NewUnreadCountUpdated(n int64) UnreadCount {
	return UnreadCount{Type: TypeUnreadCountUpdated, Count: n}
}

type NewNotification struct {
	Type         string           `json:"type"`
	Notification NotificationView `json:"notification"`
}

func (f NewNotification) FrameType() string { return f.Type }

func NewNewNotification(v NotificationView) NewNotification {
	return NewNotification{Type: TypeNewNotification, Notification: v}
}

type NotificationUpdated struct {
	Type           string    `json:"type"`
	NotificationID uuid.UUID `json:"notification_id"`
	IsRead         bool      `json:"is_read"`
}

func (f NotificationUpdated) FrameType() string { return f.Type }

func NewNotificationUpdated(id uuid.UUID, isRead bool) NotificationUpdated {
	return NotificationUpdated{Type: TypeNotificationUpdated, NotificationID: id, IsRead: isRead}
}
