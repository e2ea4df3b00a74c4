package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jcondon11/lilibet-backend/internal/http/response"
	"github.com/jcondon11/lilibet-backend/internal/pkg/ctxutil"
	"github.com/jcondon11/lilibet-backend/internal/services"
)

type ConversationHandler struct {
	conversationService services.ConversationService
}

func NewConversationHandler(conversationService services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing identity"))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

// POST /conversations
func (ch *ConversationHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Title   string `json:"title"`
		Subject string `json:"subject"`
		Level   string `json:"level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	conv, err := ch.conversationService.CreateConversation(c.Request.Context(), userID, services.CreateConversationInput{
		Title:   req.Title,
		Subject: req.Subject,
		Level:   req.Level,
	})
	if err != nil {
		response.RespondServiceError(c, "create_conversation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"conversation": conv})
}

// GET /conversations?include_archived=true&limit=50
func (ch *ConversationHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	includeArchived := strings.EqualFold(c.Query("include_archived"), "true")
	limit := 0
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	convs, err := ch.conversationService.ListConversations(c.Request.Context(), userID, includeArchived, limit)
	if err != nil {
		response.RespondServiceError(c, "list_conversations_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"conversations": convs})
}

// GET /conversations/:id
func (ch *ConversationHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	conv, msgs, err := ch.conversationService.GetConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		response.RespondServiceError(c, "get_conversation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"conversation": conv, "messages": msgs})
}

// GET /conversations/:id/messages
func (ch *ConversationHandler) Messages(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	_, msgs, err := ch.conversationService.GetConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		response.RespondServiceError(c, "list_messages_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// POST /conversations/:id/archive
func (ch *ConversationHandler) Archive(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	if err := ch.conversationService.ArchiveConversation(c.Request.Context(), userID, conversationID); err != nil {
		response.RespondServiceError(c, "archive_conversation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
