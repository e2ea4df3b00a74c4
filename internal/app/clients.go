package app

import (
	"context"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jcondon11/lilibet-backend/internal/clients/anthropic"
	"github.com/jcondon11/lilibet-backend/internal/clients/gcp"
	"github.com/jcondon11/lilibet-backend/internal/clients/openai"
	"github.com/jcondon11/lilibet-backend/internal/clients/redis"
	"github.com/jcondon11/lilibet-backend/internal/modules/tutor"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

type Clients struct {
	OpenAI    tutor.Provider
	Anthropic tutor.Provider
	Avail     tutor.Availability

	Limiter redis.Limiter
	Bucket  gcp.BucketService
	Speech  gcp.Speech
}

// wireClients builds every outbound client. Providers are optional: a missing
// API key just marks that provider unavailable. Redis and GCP are likewise
// optional so a bare-minimum deployment still boots.
func wireClients(log *logger.Logger, cfg Config) Clients {
	log.Info("Wiring clients...")
	var out Clients

	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" {
		c, err := openai.NewClient(log)
		if err != nil {
			log.Warn("OpenAI client init failed; provider disabled", "error", err)
		} else {
			out.OpenAI = c
			out.Avail.OpenAI = true
		}
	}
	if strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")) != "" {
		c, err := anthropic.NewClient(log)
		if err != nil {
			log.Warn("Anthropic client init failed; provider disabled", "error", err)
		} else {
			out.Anthropic = c
			out.Avail.Anthropic = true
		}
	}
	if !out.Avail.Any() {
		log.Warn("No LLM provider configured; tutoring will serve canned responses")
	}

	if cfg.RateLimitEnabled && strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		limiter, err := redis.NewLimiter(log)
		if err != nil {
			log.Warn("Redis limiter init failed; rate limiting disabled", "error", err)
		} else {
			out.Limiter = limiter
		}
	}

	if strings.TrimSpace(os.Getenv("AVATAR_GCS_BUCKET_NAME")) != "" {
		bucket, err := gcp.NewBucketService(log)
		if err != nil {
			log.Warn("Bucket service init failed; avatars disabled", "error", err)
		} else {
			out.Bucket = bucket
		}
	}
	if strings.TrimSpace(os.Getenv("SPEECH_ENABLED")) == "true" {
		speech, err := gcp.NewSpeech(log)
		if err != nil {
			log.Warn("Speech client init failed; transcription disabled", "error", err)
		} else {
			out.Speech = speech
		}
	}

	return out
}

// probeProviders fires a tiny completion at each configured provider in
// parallel at startup so misconfigured keys surface in the logs immediately
// rather than on the first learner request. Failures only warn; availability
// is decided by key presence.
func probeProviders(ctx context.Context, log *logger.Logger, clients Clients) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	probe := func(p tutor.Provider) func() error {
		return func() error {
			_, err := p.Complete(ctx, "Reply with the single word: ok", nil, "ping")
			if err != nil {
				log.Warn("Provider probe failed", "provider", p.Name(), "error", err)
			} else {
				log.Info("Provider probe succeeded", "provider", p.Name())
			}
			return nil
		}
	}
	if clients.OpenAI != nil {
		g.Go(probe(clients.OpenAI))
	}
	if clients.Anthropic != nil {
		g.Go(probe(clients.Anthropic))
	}
	_ = g.Wait()
}
