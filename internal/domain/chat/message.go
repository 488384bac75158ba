package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/domain/user"
)

const MaxContentLength = 1000

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}

var (
	ErrEmptyContent   = errors.New("Message content cannot be empty")
	ErrContentTooLong = fmt.Errorf("Message content cannot exceed %d characters", MaxContentLength)
)

type Message struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID        uuid.UUID   `gorm:"type:uuid;not null;column:chat_id;index:idx_message_chat_created,priority:1" json:"chat_id"`
	SenderID      uuid.UUID   `gorm:"type:uuid;not null;column:sender_id;index" json:"sender_id"`
	Content       string      `gorm:"type:text;not null;column:content" json:"content"`
	MessageType   MessageType `gorm:"not null;column:message_type;size:16" json:"message_type"`
	AttachmentKey string      `gorm:"column:attachment_key" json:"attachment_key,omitempty"`
	ReplyToID     *uuid.UUID  `gorm:"type:uuid;column:reply_to_id" json:"reply_to_id,omitempty"`

	IsEdited  bool       `gorm:"not null;column:is_edited" json:"is_edited"`
	IsDeleted bool       `gorm:"not null;column:is_deleted;index" json:"is_deleted"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_message_chat_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Sender  *user.User `gorm:"foreignKey:SenderID" json:"-"`
	ReplyTo *Message   `gorm:"foreignKey:ReplyToID" json:"-"`
}

func (Message) TableName() string { return "message" }

// MessageCursor pages history on (created_at, id) so messages that share a
// timestamp are neither skipped nor repeated. A zero ID pages on time only.
type MessageCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorOf returns the cursor that continues after m.
func CursorOf(m *Message) *MessageCursor {
	return &MessageCursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.MessageType == "" {
		m.MessageType = MessageTypeText
	}
	return nil
}

// NormalizeContent trims content and applies the creation rules: non-empty
// unless an attachment is present, in which case an empty body becomes
// "Sent a <type>".
func NormalizeContent(content string, t MessageType, hasAttachment bool) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		if !hasAttachment {
			return "", ErrEmptyContent
		}
		if t == "" || t == MessageTypeText {
			t = MessageTypeFile
		}
		return "Sent a " + string(t), nil
	}
	if len([]rune(content)) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}
