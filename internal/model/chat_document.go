package model

import (
	"time"

	"gorm.io/gorm"
)

// ChatDocument links a document to a chat for retrieval. The edge records
// intent to ground on the document, not document content.
type ChatDocument struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ChatID     uint           `gorm:"not null;index" json:"chat_id"`
	DocumentID uint           `gorm:"not null;index" json:"document_id"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
