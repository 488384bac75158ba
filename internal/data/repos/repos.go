package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/data/repos/chat"
	"github.com/yungbote/pulse-backend/internal/data/repos/notification"
	"github.com/yungbote/pulse-backend/internal/data/repos/user"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type ChatRepo = chat.ChatRepo
type ParticipantRepo = chat.ParticipantRepo
type MessageRepo = chat.MessageRepo
type MessageStatusRepo = chat.MessageStatusRepo

type NotificationRepo = notification.NotificationRepo
type NotificationSettingsRepo = notification.SettingsRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo { return chat.NewChatRepo(db, baseLog) }
func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	return chat.NewParticipantRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}
func NewMessageStatusRepo(db *gorm.DB, baseLog *logger.Logger) MessageStatusRepo {
	return chat.NewMessageStatusRepo(db, baseLog)
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return notification.NewNotificationRepo(db, baseLog)
}
func NewNotificationSettingsRepo(db *gorm.DB, baseLog *logger.Logger) NotificationSettingsRepo {
	return notification.NewSettingsRepo(db, baseLog)
}
