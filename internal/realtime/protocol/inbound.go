package protocol

import (
	"errors"
	"strings"

	"github.com/valyala/fastjson"
)

// Inbound frame types.
const (
	InChatMessage      = "chat_message"
	InMessageRead      = "message_read"
	InMessageDelivered = "message_delivered"
	InTypingStart      = "typing_start"
	InTypingStop       = "typing_stop"

	InMarkRead       = "mark_read"
	InMarkAllRead    = "mark_all_read"
	InGetUnreadCount = "get_unread_count"
)

// Client-facing error texts.
const (
	MsgInvalidJSON        = "Invalid JSON format"
	MsgUnknownType        = "Unknown message type"
	MsgEmptyContent       = "Message content cannot be empty"
	MsgMessageIDRequired  = "Message ID is required"
	MsgMessageNotFound    = "Message not found"
	MsgOwnMessage         = "Cannot update status of your own message"
	MsgSendFailed         = "Failed to send message"
	MsgStatusFailed       = "Failed to update message status"
	MsgNotificationID     = "Notification ID is required"
	MsgNotificationAbsent = "Notification not found"
	MsgRequestFailed      = "Failed to process request"
	MsgRateLimited        = "Too many messages, slow down"
)

var (
	ErrInvalidJSON = errors.New(MsgInvalidJSON)
)

// Inbound is a decoded client frame. Fields not relevant to Type are empty.
type Inbound struct {
	Type           string
	Content        string
	ReplyTo        string
	MessageID      string
	NotificationID string
}

// Parse decodes raw with p. Frames that are not JSON objects fail with
// ErrInvalidJSON; a missing type yields an Inbound with an empty Type.
func Parse(p *fastjson.Parser, raw []byte) (Inbound, error) {
	v, err := p.ParseBytes(raw)
	if err != nil {
		return Inbound{}, ErrInvalidJSON
	}
	if v.Type() != fastjson.TypeObject {
		return Inbound{}, ErrInvalidJSON
	}
	return Inbound{
		Type:           str(v, "type"),
		Content:        str(v, "content"),
		ReplyTo:        str(v, "reply_to"),
		MessageID:      str(v, "message_id"),
		NotificationID: str(v, "notification_id"),
	}, nil
}

// str reads a string field, accepting numbers for ids sent unquoted.
func str(v *fastjson.Value, key string) string {
	f := v.Get(key)
	if f == nil {
		return ""
	}
	switch f.Type() {
	case fastjson.TypeString:
		return string(f.GetStringBytes())
	case fastjson.TypeNumber:
		return strings.TrimSpace(f.String())
	default:
		return ""
	}
}
