package model

import (
	"time"

	"gorm.io/gorm"
)

// MessageDocument links a document explicitly named on a message. Created
// for every named document regardless of its status at the time.
type MessageDocument struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	MessageID  uint           `gorm:"not null;index" json:"message_id"`
	DocumentID uint           `gorm:"not null;index" json:"document_id"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
