package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/jcondon11/lilibet-backend/internal/http/handlers"
	httpMW "github.com/jcondon11/lilibet-backend/internal/http/middleware"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware      *httpMW.AuthMiddleware
	RateLimitMiddleware *httpMW.RateLimitMiddleware

	AuthHandler         *httpH.AuthHandler
	UserHandler         *httpH.UserHandler
	ConversationHandler *httpH.ConversationHandler
	TutorHandler        *httpH.TutorHandler
	TranscribeHandler   *httpH.TranscribeHandler
	HealthHandler       *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("lilibet-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/refresh", cfg.AuthHandler.Refresh)
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PATCH("/me/level", cfg.UserHandler.ChangeDefaultLevel)
		}

		if cfg.ConversationHandler != nil {
			protected.POST("/conversations", cfg.ConversationHandler.Create)
			protected.GET("/conversations", cfg.ConversationHandler.List)
			protected.GET("/conversations/:id", cfg.ConversationHandler.Get)
			protected.GET("/conversations/:id/messages", cfg.ConversationHandler.Messages)
			protected.POST("/conversations/:id/archive", cfg.ConversationHandler.Archive)
		}

		if cfg.TutorHandler != nil {
			// The provider-calling endpoint carries the per-user budget.
			tutorRoutes := protected.Group("/tutor")
			if cfg.RateLimitMiddleware != nil {
				tutorRoutes.POST("/message", cfg.RateLimitMiddleware.Limit(), cfg.TutorHandler.SendMessage)
			} else {
				tutorRoutes.POST("/message", cfg.TutorHandler.SendMessage)
			}
			tutorRoutes.POST("/detect-mode", cfg.TutorHandler.DetectMode)
		}

		if cfg.TranscribeHandler != nil {
			protected.POST("/transcribe", cfg.TranscribeHandler.Transcribe)
		}
	}

	return r
}
