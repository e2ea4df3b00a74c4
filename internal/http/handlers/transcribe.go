package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jcondon11/lilibet-backend/internal/http/response"
	"github.com/jcondon11/lilibet-backend/internal/services"
)

type TranscribeHandler struct {
	transcribeService services.TranscribeService
}

func NewTranscribeHandler(transcribeService services.TranscribeService) *TranscribeHandler {
	return &TranscribeHandler{transcribeService: transcribeService}
}

// POST /transcribe (multipart/form-data, field "audio")
func (th *TranscribeHandler) Transcribe(c *gin.Context) {
	const maxBytes = 10 << 20

	fh, err := c.FormFile("audio")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_audio", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "open_audio_failed", err)
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "read_audio_failed", err)
		return
	}
	if len(raw) > maxBytes {
		response.RespondError(c, http.StatusBadRequest, "audio_too_large", nil)
		return
	}

	text, err := th.transcribeService.Transcribe(c.Request.Context(), raw, fh.Header.Get("Content-Type"))
	if err != nil {
		response.RespondServiceError(c, "transcribe_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"text": text})
}
