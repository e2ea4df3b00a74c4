package app

import (
	"time"

	"github.com/jcondon11/lilibet-backend/internal/pkg/envutil"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

type Config struct {
	Port            string
	Environment     string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	PromptConfigPath string
	RateLimitEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:             envutil.String("PORT", "8080"),
		Environment:      envutil.String("APP_ENV", "development"),
		JWTSecretKey:     envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL:   time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 3600)) * time.Second,
		RefreshTokenTTL:  time.Duration(envutil.Int("REFRESH_TOKEN_TTL", 7*86400)) * time.Second,
		PromptConfigPath: envutil.String("PROMPT_CONFIG_PATH", ""),
		RateLimitEnabled: envutil.Bool("RATE_LIMIT_ENABLED", true),
	}
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set; using an insecure development default")
		cfg.JWTSecretKey = "insecure-dev-secret"
	}
	return cfg
}
