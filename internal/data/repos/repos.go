package repos

import (
	"github.com/jcondon11/lilibet-backend/internal/data/repos/auth"
	"github.com/jcondon11/lilibet-backend/internal/data/repos/tutor"
	"github.com/jcondon11/lilibet-backend/internal/data/repos/user"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type ConversationRepo = tutor.ConversationRepo
type MessageRepo = tutor.MessageRepo

var (
	NewUserRepo         = user.NewUserRepo
	NewUserTokenRepo    = auth.NewUserTokenRepo
	NewConversationRepo = tutor.NewConversationRepo
	NewMessageRepo      = tutor.NewMessageRepo
)
