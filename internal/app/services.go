package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/services"
)

type Services struct {
	Tokens        services.TokenVerifier
	Notifications services.NotificationService
	Chat          services.ChatService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, rt Realtime) Services {
	log.Info("Wiring services...")
	notifications := services.NewNotificationService(db, log, repos.User, repos.Notification, repos.NotificationSettings, rt.Groups)
	chat := services.NewChatService(db, log,
		repos.User,
		repos.Chat,
		repos.Participant,
		repos.Message,
		repos.MessageStatus,
		rt.Groups,
		notifications,
		services.ChatServiceConfig{MediaBaseURL: cfg.MediaBaseURL},
	)
	return Services{
		Tokens:        services.NewTokenVerifier(log, repos.User, cfg.JWTSecretKey, cfg.JWTIssuer),
		Notifications: notifications,
		Chat:          chat,
	}
}
