package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/data/repos"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

type Repos struct {
	User                 repos.UserRepo
	Chat                 repos.ChatRepo
	Participant          repos.ParticipantRepo
	Message              repos.MessageRepo
	MessageStatus        repos.MessageStatusRepo
	Notification         repos.NotificationRepo
	NotificationSettings repos.NotificationSettingsRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:                 repos.NewUserRepo(db, log),
		Chat:                 repos.NewChatRepo(db, log),
		Participant:          repos.NewParticipantRepo(db, log),
		Message:              repos.NewMessageRepo(db, log),
		MessageStatus:        repos.NewMessageStatusRepo(db, log),
		Notification:         repos.NewNotificationRepo(db, log),
		NotificationSettings: repos.NewNotificationSettingsRepo(db, log),
	}
}
