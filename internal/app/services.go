package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/jcondon11/lilibet-backend/internal/modules/tutor"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
	"github.com/jcondon11/lilibet-backend/internal/services"
)

type Services struct {
	Auth         services.AuthService
	Conversation services.ConversationService
	Transcribe   services.TranscribeService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	prompts := tutor.NewPromptLibrary()
	if cfg.PromptConfigPath != "" {
		if err := prompts.LoadOverrides(cfg.PromptConfigPath); err != nil {
			return Services{}, fmt.Errorf("load prompt overrides: %w", err)
		}
		log.Info("Loaded prompt overrides", "path", cfg.PromptConfigPath)
	}

	engine := tutor.Deps{
		Log:       log,
		OpenAI:    clients.OpenAI,
		Anthropic: clients.Anthropic,
		Avail:     clients.Avail,
		Prompts:   prompts,
	}

	var avatarService services.AvatarService
	if clients.Bucket != nil {
		av, err := services.NewAvatarService(log, clients.Bucket)
		if err != nil {
			log.Warn("Avatar service init failed; avatars disabled", "error", err)
		} else {
			avatarService = av
		}
	}

	authService, err := services.NewAuthService(
		db, log,
		reposet.User, reposet.UserToken,
		avatarService,
		cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	conversationService, err := services.NewConversationService(
		db, log,
		reposet.User, reposet.Conversation, reposet.Message,
		engine,
	)
	if err != nil {
		return Services{}, fmt.Errorf("init conversation service: %w", err)
	}

	var transcribeService services.TranscribeService
	if clients.Speech != nil {
		ts, err := services.NewTranscribeService(log, clients.Speech)
		if err != nil {
			log.Warn("Transcribe service init failed; transcription disabled", "error", err)
		} else {
			transcribeService = ts
		}
	}

	return Services{
		Auth:         authService,
		Conversation: conversationService,
		Transcribe:   transcribeService,
	}, nil
}
