package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	pulsehttp "github.com/yungbote/pulse-backend/internal/http"
	httpH "github.com/yungbote/pulse-backend/internal/http/handlers"
	httpMW "github.com/yungbote/pulse-backend/internal/http/middleware"
	"github.com/yungbote/pulse-backend/internal/observability"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime/actor"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Messaging    *httpH.MessagingHandler
	Notification *httpH.NotificationHandler
	Event        *httpH.EventHandler

	ChatSocket         *actor.ChatActor
	NotificationSocket *actor.NotificationActor
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, services Services, rt Realtime) Handlers {
	log.Info("Wiring handlers...")
	socketCfg := actor.Config{
		RateRPS:        cfg.Socket.RateRPS,
		RateBurst:      cfg.Socket.RateBurst,
		PingInterval:   cfg.Socket.PingInterval,
		MaxFrameBytes:  cfg.Socket.MaxFrameBytes,
		AllowedOrigins: cfg.AllowedOrigins,
		Sessions:       rt.Sessions,
	}
	return Handlers{
		Health:       httpH.NewHealthHandler(db),
		Messaging:    httpH.NewMessagingHandler(services.Chat, cfg.MediaBaseURL),
		Notification: httpH.NewNotificationHandler(services.Notifications),
		Event:        httpH.NewEventHandler(services.Notifications),

		ChatSocket:         actor.NewChatActor(log, services.Tokens, services.Chat, rt.Groups, socketCfg),
		NotificationSocket: actor.NewNotificationActor(log, services.Tokens, services.Notifications, rt.Groups, socketCfg),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Tokens),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return pulsehttp.NewRouter(pulsehttp.RouterConfig{
		Log:            log,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.AllowedOrigins,
		InternalKey:    cfg.InternalAPIKey,
		Metrics:        observability.Current(),

		AuthMiddleware:      middleware.Auth,
		MessagingHandler:    handlers.Messaging,
		NotificationHandler: handlers.Notification,
		EventHandler:        handlers.Event,
		HealthHandler:       handlers.Health,

		ChatActor:         handlers.ChatSocket,
		NotificationActor: handlers.NotificationSocket,
	})
}
