package tutor

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation is owned by exactly one learner. It is never hard-deleted;
// archiving flips Status to "archived".
type Conversation struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Title   string `gorm:"column:title;not null;default:'New Conversation'" json:"title"`
	Subject string `gorm:"column:subject;not null;default:'general';index" json:"subject"`
	Level   string `gorm:"column:level;not null;default:'middle'" json:"level"`
	Status  string `gorm:"column:status;not null;default:'active';index" json:"status"`

	// Routing outcome of the most recent exchange.
	LastMode  string `gorm:"column:last_mode" json:"last_mode,omitempty"`
	LastModel string `gorm:"column:last_model" json:"last_model,omitempty"`

	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	// Concurrency-safe per-conversation message sequencing.
	NextSeq int64 `gorm:"column:next_seq;not null;default:0" json:"next_seq"`

	LastMessageAt time.Time `gorm:"column:last_message_at;not null;default:now();index" json:"last_message_at"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Conversation) TableName() string { return "conversation" }

const (
	ConversationStatusActive   = "active"
	ConversationStatusArchived = "archived"
)
