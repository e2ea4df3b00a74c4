package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jcondon11/lilibet-backend/internal/modules/tutor"
)

type HealthHandler struct {
	avail tutor.Availability
}

func NewHealthHandler(avail tutor.Availability) *HealthHandler {
	return &HealthHandler{avail: avail}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"providers": gin.H{
			"openai":    h.avail.OpenAI,
			"anthropic": h.avail.Anthropic,
		},
	})
}
