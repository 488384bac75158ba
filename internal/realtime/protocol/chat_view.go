package protocol

import (
	"time"

	"github.com/google/uuid"
)

// ChatView is a chat as listed for one viewer.
type ChatView struct {
	ID           uuid.UUID     `json:"id"`
	IsGroupChat  bool          `json:"is_group_chat"`
	ChatName     string        `json:"chat_name"`
	DisplayName  string        `json:"display_name"`
	Participants []UserSummary `json:"participants"`
	LastMessage  *MessageView  `json:"last_message"`
	LastActivity time.Time     `json:"last_activity"`
	UnreadCount  int           `json:"unread_count"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ChatDetail is a single chat with its most recent messages, oldest first.
type ChatDetail struct {
	ChatView
	Messages []MessageView `json:"messages"`
}
