package db

import (
	"gorm.io/gorm"

	types "github.com/jcondon11/lilibet-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity + auth
		&types.User{},
		&types.UserToken{},

		// Tutoring
		&types.Conversation{},
		&types.Message{},
	)
}
