package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jcondon11/lilibet-backend/internal/http/response"
	"github.com/jcondon11/lilibet-backend/internal/services"
)

type TutorHandler struct {
	conversationService services.ConversationService
}

func NewTutorHandler(conversationService services.ConversationService) *TutorHandler {
	return &TutorHandler{conversationService: conversationService}
}

// POST /tutor/message
// body: { "conversation_id": "...", "message": "...", "subject": "...", "level": "...", "mode": "..." }
func (th *TutorHandler) SendMessage(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		ConversationID string `json:"conversation_id"`
		Message        string `json:"message"`
		Subject        string `json:"subject"`
		Level          string `json:"level"`
		Mode           string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var conversationID uuid.UUID
	if req.ConversationID == "" {
		// First exchange: open a conversation on the fly.
		conv, err := th.conversationService.CreateConversation(c.Request.Context(), userID, services.CreateConversationInput{
			Subject: req.Subject,
			Level:   req.Level,
		})
		if err != nil {
			response.RespondServiceError(c, "create_conversation_failed", err)
			return
		}
		conversationID = conv.ID
	} else {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
			return
		}
		conversationID = parsed
	}
	out, err := th.conversationService.SendMessage(c.Request.Context(), userID, services.SendMessageInput{
		ConversationID: conversationID,
		Message:        req.Message,
		Subject:        req.Subject,
		Level:          req.Level,
		Mode:           req.Mode,
	})
	if err != nil {
		response.RespondServiceError(c, "tutor_message_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"conversation_id": conversationID,
		"response":        out.Reply.Content,
		"metadata":        out.Metadata,
		"messages":        []any{out.UserMessage, out.Reply},
	})
}

// POST /tutor/detect-mode
// body: { "message": "...", "conversation_id": "..." } (conversation_id optional)
func (th *TutorHandler) DetectMode(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	conversationID := uuid.Nil
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
			return
		}
		conversationID = parsed
	}
	detection, err := th.conversationService.DetectMode(c.Request.Context(), userID, conversationID, req.Message)
	if err != nil {
		response.RespondServiceError(c, "detect_mode_failed", err)
		return
	}
	response.RespondOK(c, detection)
}
