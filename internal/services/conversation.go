package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jcondon11/lilibet-backend/internal/data/repos"
	types "github.com/jcondon11/lilibet-backend/internal/domain"
	"github.com/jcondon11/lilibet-backend/internal/modules/tutor"
	"github.com/jcondon11/lilibet-backend/internal/pkg/dbctx"
	pkgerrors "github.com/jcondon11/lilibet-backend/internal/pkg/errors"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

// historyWindow is how many persisted turns feed the classifier and providers.
const historyWindow = 12

type CreateConversationInput struct {
	Title   string
	Subject string
	Level   string
}

type SendMessageInput struct {
	ConversationID uuid.UUID
	Message        string
	// Optional per-request overrides; empty values inherit the conversation.
	Subject string
	Level   string
	Mode    string
}

type SendMessageOutput struct {
	Conversation *types.Conversation `json:"conversation"`
	UserMessage  *types.Message      `json:"user_message"`
	Reply        *types.Message      `json:"reply"`
	Metadata     tutor.Metadata      `json:"metadata"`
}

type ConversationService interface {
	CreateConversation(ctx context.Context, userID uuid.UUID, in CreateConversationInput) (*types.Conversation, error)
	GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*types.Conversation, []*types.Message, error)
	ListConversations(ctx context.Context, userID uuid.UUID, includeArchived bool, limit int) ([]*types.Conversation, error)
	ArchiveConversation(ctx context.Context, userID, conversationID uuid.UUID) error
	SendMessage(ctx context.Context, userID uuid.UUID, in SendMessageInput) (*SendMessageOutput, error)
	DetectMode(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID, message string) (tutor.Detection, error)
}

type conversationService struct {
	db               *gorm.DB
	log              *logger.Logger
	userRepo         repos.UserRepo
	conversationRepo repos.ConversationRepo
	messageRepo      repos.MessageRepo
	engine           tutor.Deps
}

func NewConversationService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	engine tutor.Deps,
) (ConversationService, error) {
	if db == nil || log == nil || userRepo == nil || conversationRepo == nil || messageRepo == nil {
		return nil, fmt.Errorf("missing conversation service dependencies")
	}
	return &conversationService{
		db:               db,
		log:              log.With("service", "ConversationService"),
		userRepo:         userRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		engine:           engine,
	}, nil
}

func (cs *conversationService) CreateConversation(ctx context.Context, userID uuid.UUID, in CreateConversationInput) (*types.Conversation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user id", pkgerrors.ErrInvalidArgument)
	}

	level := string(tutor.NormalizeLevel(in.Level))
	if strings.TrimSpace(in.Level) == "" {
		// Inherit the learner's default tier.
		users, err := cs.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{userID})
		if err == nil && len(users) > 0 && users[0].DefaultLevel != "" {
			level = string(tutor.NormalizeLevel(users[0].DefaultLevel))
		}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "New Conversation"
	}
	subject := strings.ToLower(strings.TrimSpace(in.Subject))
	if subject == "" {
		subject = "general"
	}

	conv := &types.Conversation{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         title,
		Subject:       subject,
		Level:         level,
		Status:        types.ConversationStatusActive,
		Metadata:      datatypes.JSON([]byte("{}")),
		LastMessageAt: time.Now(),
	}
	if _, err := cs.conversationRepo.Create(dbctx.Context{Ctx: ctx}, []*types.Conversation{conv}); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func (cs *conversationService) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*types.Conversation, []*types.Message, error) {
	conv, err := cs.ownedConversation(dbctx.Context{Ctx: ctx}, userID, conversationID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := cs.messageRepo.ListByConversation(dbctx.Context{Ctx: ctx}, conversationID, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	return conv, msgs, nil
}

func (cs *conversationService) ListConversations(ctx context.Context, userID uuid.UUID, includeArchived bool, limit int) ([]*types.Conversation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user id", pkgerrors.ErrInvalidArgument)
	}
	return cs.conversationRepo.ListByUser(dbctx.Context{Ctx: ctx}, userID, includeArchived, limit)
}

func (cs *conversationService) ArchiveConversation(ctx context.Context, userID, conversationID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := cs.ownedConversation(dbc, userID, conversationID); err != nil {
		return err
	}
	return cs.conversationRepo.UpdateFields(dbc, conversationID, map[string]interface{}{
		"status": types.ConversationStatusArchived,
	})
}

// SendMessage runs one full tutoring exchange: classify, route, call the
// provider, and persist both turns with the routing outcome.
func (cs *conversationService) SendMessage(ctx context.Context, userID uuid.UUID, in SendMessageInput) (*SendMessageOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message required", pkgerrors.ErrInvalidArgument)
	}

	conv, err := cs.ownedConversation(dbctx.Context{Ctx: ctx}, userID, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == types.ConversationStatusArchived {
		return nil, fmt.Errorf("%w: conversation is archived", pkgerrors.ErrInvalidArgument)
	}

	history, err := cs.recentHistory(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	subject := strings.ToLower(strings.TrimSpace(in.Subject))
	if subject == "" {
		subject = conv.Subject
	}
	level := tutor.NormalizeLevel(in.Level)
	if strings.TrimSpace(in.Level) == "" {
		level = tutor.NormalizeLevel(conv.Level)
	}

	var forced tutor.LearningMode
	if strings.TrimSpace(in.Mode) != "" {
		parsed, ok := tutor.ParseMode(in.Mode)
		if !ok {
			return nil, fmt.Errorf("%w: unknown mode %q", pkgerrors.ErrInvalidArgument, in.Mode)
		}
		forced = parsed
	}

	result, err := tutor.Respond(ctx, cs.engine, tutor.Input{
		Message:    message,
		Subject:    subject,
		Level:      level,
		History:    history,
		ForcedMode: forced,
	})
	if err != nil {
		return nil, fmt.Errorf("tutoring engine: %w", err)
	}

	metaJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	out := &SendMessageOutput{Metadata: result.Metadata}
	txErr := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		locked, err := cs.conversationRepo.LockByID(dbc, conv.ID)
		if err != nil {
			return fmt.Errorf("lock conversation: %w", err)
		}
		if locked == nil {
			return pkgerrors.ErrNotFound
		}

		userSeq := locked.NextSeq + 1
		replySeq := locked.NextSeq + 2

		userMsg := &types.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			UserID:         userID,
			Seq:            userSeq,
			Role:           types.RoleUser,
			Content:        message,
			Metadata:       datatypes.JSON([]byte("{}")),
		}
		replyMsg := &types.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			UserID:         userID,
			Seq:            replySeq,
			Role:           types.RoleAssistant,
			Content:        result.Response,
			Model:          result.Metadata.ModelUsed,
			Metadata:       datatypes.JSON(metaJSON),
		}
		if _, err := cs.messageRepo.Create(dbc, []*types.Message{userMsg, replyMsg}); err != nil {
			return fmt.Errorf("persist messages: %w", err)
		}

		updates := map[string]interface{}{
			"next_seq":        replySeq,
			"last_mode":       string(result.Metadata.Mode),
			"last_model":      result.Metadata.ModelUsed,
			"last_message_at": time.Now(),
		}
		if locked.Title == "New Conversation" {
			updates["title"] = titleFromMessage(message)
		}
		if err := cs.conversationRepo.UpdateFields(dbc, conv.ID, updates); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}

		out.Conversation = locked
		out.UserMessage = userMsg
		out.Reply = replyMsg
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	cs.log.Info("Tutoring exchange completed",
		"conversation_id", conv.ID.String(),
		"mode", string(result.Metadata.Mode),
		"model_used", result.Metadata.ModelUsed,
	)
	return out, nil
}

// DetectMode previews how a message would be routed without calling a
// provider or persisting anything. A nil conversation id classifies the
// message standalone.
func (cs *conversationService) DetectMode(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID, message string) (tutor.Detection, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return tutor.Detection{}, fmt.Errorf("%w: message required", pkgerrors.ErrInvalidArgument)
	}

	var history []tutor.Turn
	level := tutor.LevelMiddle
	if conversationID != uuid.Nil {
		conv, err := cs.ownedConversation(dbctx.Context{Ctx: ctx}, userID, conversationID)
		if err != nil {
			return tutor.Detection{}, err
		}
		level = tutor.NormalizeLevel(conv.Level)
		history, err = cs.recentHistory(ctx, conversationID)
		if err != nil {
			return tutor.Detection{}, err
		}
	}

	return tutor.DetectMode(message, history, level, cs.engine.Avail), nil
}

func (cs *conversationService) ownedConversation(dbc dbctx.Context, userID, conversationID uuid.UUID) (*types.Conversation, error) {
	if userID == uuid.Nil || conversationID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing ids", pkgerrors.ErrInvalidArgument)
	}
	convs, err := cs.conversationRepo.GetByIDs(dbc, []uuid.UUID{conversationID})
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	if len(convs) == 0 {
		return nil, pkgerrors.ErrNotFound
	}
	conv := convs[0]
	// Ownership failures read as not-found so ids can't be probed.
	if conv.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	return conv, nil
}

func (cs *conversationService) recentHistory(ctx context.Context, conversationID uuid.UUID) ([]tutor.Turn, error) {
	msgs, err := cs.messageRepo.ListByConversation(dbctx.Context{Ctx: ctx}, conversationID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	turns := make([]tutor.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			continue
		}
		turns = append(turns, tutor.Turn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

func titleFromMessage(message string) string {
	const maxTitle = 60
	title := strings.Join(strings.Fields(message), " ")
	if len(title) > maxTitle {
		cut := strings.LastIndex(title[:maxTitle], " ")
		if cut <= 0 {
			cut = maxTitle
		}
		title = title[:cut] + "..."
	}
	return title
}
