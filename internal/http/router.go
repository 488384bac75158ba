package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/pulse-backend/internal/http/handlers"
	httpMW "github.com/yungbote/pulse-backend/internal/http/middleware"
	"github.com/yungbote/pulse-backend/internal/observability"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime/actor"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	InternalKey    string
	Metrics        *observability.Metrics

	AuthMiddleware      *httpMW.AuthMiddleware
	MessagingHandler    *httpH.MessagingHandler
	NotificationHandler *httpH.NotificationHandler
	EventHandler        *httpH.EventHandler
	HealthHandler       *httpH.HealthHandler

	ChatActor         *actor.ChatActor
	NotificationActor *actor.NotificationActor
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(httpMW.TraceRequest)))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Sockets authenticate themselves so they can answer with close codes.
	ws := r.Group("/ws")
	{
		if cfg.ChatActor != nil {
			ws.GET("/chat/:chat_id", cfg.ChatActor.Serve)
		}
		if cfg.NotificationActor != nil {
			ws.GET("/notifications", cfg.NotificationActor.Serve)
		}
	}

	internal := r.Group("/internal", httpMW.RequireInternalKey(cfg.InternalKey))
	if cfg.EventHandler != nil {
		internal.POST("/events/like", cfg.EventHandler.Like)
		internal.POST("/events/comment", cfg.EventHandler.Comment)
		internal.POST("/events/follow", cfg.EventHandler.Follow)
		internal.POST("/events/system", cfg.EventHandler.System)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Messaging
	if h := cfg.MessagingHandler; h != nil {
		m := protected.Group("/messaging")
		m.GET("/chats", h.ListChats)
		m.POST("/chats", h.CreateChat)
		m.GET("/chats/:id", h.GetChat)
		m.PATCH("/chats/:id", h.RenameChat)
		m.DELETE("/chats/:id", h.LeaveChat)
		m.GET("/chats/:id/messages", h.ListMessages)
		m.POST("/chats/:id/messages", h.SendMessage)
		m.GET("/chats/:id/participants", h.ListParticipants)
		m.POST("/chats/:id/participants/:user_id", h.AddParticipant)
		m.DELETE("/chats/:id/participants/:user_id", h.RemoveParticipant)
		m.GET("/chats/:id/online", h.Online)
		m.PATCH("/messages/:id", h.EditMessage)
		m.DELETE("/messages/:id", h.DeleteMessage)
		m.POST("/messages/:id/read", h.MarkRead)
		m.POST("/messages/:id/delivered", h.MarkDelivered)
	}

	// Notifications
	if h := cfg.NotificationHandler; h != nil {
		n := protected.Group("/notifications")
		n.GET("", h.List)
		n.GET("/stats", h.Stats)
		n.GET("/unread-count", h.UnreadCount)
		n.GET("/settings", h.GetSettings)
		n.PUT("/settings", h.UpdateSettings)
		n.POST("/mark-all-read", h.MarkAllRead)
		n.DELETE("/clear-read", h.ClearRead)
		n.GET("/:id", h.Get)
		n.POST("/:id/read", h.MarkRead)
		n.DELETE("/:id", h.Delete)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "not found", "code": "not_found"}})
	})
	return r
}
