package domain

import (
	"github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/domain/notification"
	"github.com/yungbote/pulse-backend/internal/domain/user"
)

type (
	User = user.User

	Chat            = chat.Chat
	ChatParticipant = chat.Participant
	Message         = chat.Message
	MessageStatus   = chat.MessageStatus

	Notification         = notification.Notification
	NotificationSettings = notification.Settings
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Chat{},
		&ChatParticipant{},
		&Message{},
		&MessageStatus{},
		&Notification{},
		&NotificationSettings{},
	}
}
