// Package domain re-exports the per-area model types under one umbrella so
// callers can import a single package as `types`.
package domain

import (
	"github.com/jcondon11/lilibet-backend/internal/domain/auth"
	"github.com/jcondon11/lilibet-backend/internal/domain/tutor"
	"github.com/jcondon11/lilibet-backend/internal/domain/user"
)

type (
	User      = user.User
	UserToken = auth.UserToken

	Conversation = tutor.Conversation
	Message      = tutor.Message
)

const (
	RoleUser      = tutor.RoleUser
	RoleAssistant = tutor.RoleAssistant
	RoleSystem    = tutor.RoleSystem

	ConversationStatusActive   = tutor.ConversationStatusActive
	ConversationStatusArchived = tutor.ConversationStatusArchived
)
