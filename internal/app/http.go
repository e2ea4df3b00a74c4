package app

import (
	"github.com/gin-gonic/gin"

	"github.com/jcondon11/lilibet-backend/internal/http"
	httpH "github.com/jcondon11/lilibet-backend/internal/http/handlers"
	httpMW "github.com/jcondon11/lilibet-backend/internal/http/middleware"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth      *httpMW.AuthMiddleware
	RateLimit *httpMW.RateLimitMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Auth         *httpH.AuthHandler
	User         *httpH.UserHandler
	Conversation *httpH.ConversationHandler
	Tutor        *httpH.TutorHandler
	Transcribe   *httpH.TranscribeHandler
}

func wireHandlers(log *logger.Logger, reposet Repos, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health:       httpH.NewHealthHandler(clients.Avail),
		Auth:         httpH.NewAuthHandler(services.Auth),
		User:         httpH.NewUserHandler(reposet.User),
		Conversation: httpH.NewConversationHandler(services.Conversation),
		Tutor:        httpH.NewTutorHandler(services.Conversation),
	}
	if services.Transcribe != nil {
		h.Transcribe = httpH.NewTranscribeHandler(services.Transcribe)
	}
	return h
}

func wireMiddleware(log *logger.Logger, services Services, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	mw := Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
	if clients.Limiter != nil {
		mw.RateLimit = httpMW.NewRateLimitMiddleware(log, clients.Limiter)
	}
	return mw
}

func wireRouter(log *logger.Logger, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log: log,

		AuthMiddleware:      middleware.Auth,
		RateLimitMiddleware: middleware.RateLimit,

		AuthHandler:         handlers.Auth,
		UserHandler:         handlers.User,
		ConversationHandler: handlers.Conversation,
		TutorHandler:        handlers.Tutor,
		TranscribeHandler:   handlers.Transcribe,
		HealthHandler:       handlers.Health,
	})
}
