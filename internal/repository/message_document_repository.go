package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type MessageDocumentRepository struct {
	db *gorm.DB
}

func NewMessageDocumentRepository(db *gorm.DB) *MessageDocumentRepository {
	return &MessageDocumentRepository{db: db}
}

func (r *MessageDocumentRepository) Create(edge *model.MessageDocument) error {
	if err := r.db.Create(edge).Error; err != nil {
		return fmt.Errorf("create message document link failed: %w", err)
	}
	return nil
}

// ListDocumentsByMessageID returns the live documents attached to a
// message. The join skips tombstoned edges explicitly because it
// bypasses the edge model's default scope.
func (r *MessageDocumentRepository) ListDocumentsByMessageID(messageID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Model(&model.Document{}).
		Joins("JOIN message_documents ON message_documents.document_id = documents.id").
		Where("message_documents.message_id = ?", messageID).
		Where("message_documents.deleted_at IS NULL").
		Order("message_documents.created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents by message failed: %w", err)
	}
	return docs, nil
}
