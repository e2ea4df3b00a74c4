package services

import (
	"context"
	"fmt"

	"github.com/jcondon11/lilibet-backend/internal/clients/gcp"
	pkgerrors "github.com/jcondon11/lilibet-backend/internal/pkg/errors"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

// maxAudioBytes caps uploads at 10MB; synchronous recognition only handles
// short clips anyway.
const maxAudioBytes = 10 << 20

type TranscribeService interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type transcribeService struct {
	log    *logger.Logger
	speech gcp.Speech
}

func NewTranscribeService(log *logger.Logger, speech gcp.Speech) (TranscribeService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if speech == nil {
		return nil, fmt.Errorf("speech client required")
	}
	return &transcribeService{
		log:    log.With("service", "TranscribeService"),
		speech: speech,
	}, nil
}

func (ts *transcribeService) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: audio required", pkgerrors.ErrInvalidArgument)
	}
	if len(audio) > maxAudioBytes {
		return "", fmt.Errorf("%w: audio exceeds 10MB limit", pkgerrors.ErrInvalidArgument)
	}
	text, err := ts.speech.TranscribeAudioBytes(ctx, audio, mimeType)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return text, nil
}
