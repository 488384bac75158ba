package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

func (s DeliveryStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

func (s DeliveryStatus) Valid() bool { return s.rank() > 0 }

// Precedes reports whether next is a forward move from s.
func (s DeliveryStatus) Precedes(next DeliveryStatus) bool {
	return next.rank() > s.rank()
}

// MessageStatus tracks one recipient's progress on one message.
type MessageStatus struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID   uuid.UUID      `gorm:"type:uuid;not null;column:message_id;uniqueIndex:idx_message_status_message_user,priority:1" json:"message_id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_message_status_message_user,priority:2;index:idx_message_status_user_chat,priority:1" json:"user_id"`
	ChatID      uuid.UUID      `gorm:"type:uuid;not null;column:chat_id;index:idx_message_status_user_chat,priority:2" json:"chat_id"`
	Status      DeliveryStatus `gorm:"not null;column:status;size:16;index" json:"status"`
	DeliveredAt *time.Time     `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	ReadAt      *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (MessageStatus) TableName() string { return "message_status" }

func (s *MessageStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusSent
	}
	return nil
}

// Advance applies a transition in memory with the same rules the store
// enforces: status only moves forward, timestamps are written once, and
// reading backfills delivered_at. It reports whether anything changed.
func (s *MessageStatus) Advance(next DeliveryStatus, at time.Time) bool {
	if !s.Status.Precedes(next) {
		return false
	}
	s.Status = next
	if s.DeliveredAt == nil {
		t := at
		s.DeliveredAt = &t
	}
	if next == StatusRead && s.ReadAt == nil {
		t := at
		s.ReadAt = &t
	}
	return true
}

// Timestamp returns the time of the current status.
func (s *MessageStatus) Timestamp() *time.Time {
	switch s.Status {
	case StatusRead:
		return s.ReadAt
	case StatusDelivered:
		return s.DeliveredAt
	default:
		t := s.CreatedAt
		return &t
	}
}
