package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type ChatDocumentRepository struct {
	db *gorm.DB
}

func NewChatDocumentRepository(db *gorm.DB) *ChatDocumentRepository {
	return &ChatDocumentRepository{db: db}
}

func (r *ChatDocumentRepository) Create(edge *model.ChatDocument) error {
	if err := r.db.Create(edge).Error; err != nil {
		return fmt.Errorf("create chat document link failed: %w", err)
	}
	return nil
}

// AttachedDocument pairs a document with the time it was linked to the
// chat.
type AttachedDocument struct {
	DocumentID uint      `gorm:"column:document_id"`
	Filename   string    `gorm:"column:filename"`
	FileType   string    `gorm:"column:file_type"`
	Status     string    `gorm:"column:status"`
	AddedAt    time.Time `gorm:"column:added_at"`
}

// ListAttachedByChatID returns the non-deleted documents linked to a
// chat, in attachment order. The edge tombstone is checked explicitly
// because the join bypasses the model's default scope.
func (r *ChatDocumentRepository) ListAttachedByChatID(chatID uint) ([]AttachedDocument, error) {
	var rows []AttachedDocument
	if err := r.db.Model(&model.Document{}).
		Select("documents.id AS document_id, documents.filename, documents.file_type, documents.status, chat_documents.created_at AS added_at").
		Joins("JOIN chat_documents ON chat_documents.document_id = documents.id").
		Where("chat_documents.chat_id = ? AND chat_documents.deleted_at IS NULL", chatID).
		Order("chat_documents.created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list chat documents failed: %w", err)
	}
	return rows, nil
}

// ListCompletedDocumentsByChatID narrows ListDocumentsByChatID to
// documents eligible for retrieval.
func (r *ChatDocumentRepository) ListCompletedDocumentsByChatID(chatID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.
		Joins("JOIN chat_documents ON chat_documents.document_id = documents.id").
		Where("chat_documents.chat_id = ? AND chat_documents.deleted_at IS NULL", chatID).
		Where("documents.status = ?", model.DocumentStatusCompleted).
		Order("chat_documents.created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list completed chat documents failed: %w", err)
	}
	return docs, nil
}

func (r *ChatDocumentRepository) CountByChatID(chatID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.ChatDocument{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chat documents failed: %w", err)
	}
	return count, nil
}

func (r *ChatDocumentRepository) SoftDeleteByChatID(chatID uint) error {
	if err := r.db.Where("chat_id = ?", chatID).Delete(&model.ChatDocument{}).Error; err != nil {
		return fmt.Errorf("delete chat document links failed: %w", err)
	}
	return nil
}

func (r *ChatDocumentRepository) SoftDeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.ChatDocument{}).Error; err != nil {
		return fmt.Errorf("delete chat document links by document failed: %w", err)
	}
	return nil
}

// HardDeleteByChatID removes edges entirely; pairs with ChatRepository
// HardDelete when rolling back a newly created chat.
func (r *ChatDocumentRepository) HardDeleteByChatID(chatID uint) error {
	if err := r.db.Unscoped().Where("chat_id = ?", chatID).Delete(&model.ChatDocument{}).Error; err != nil {
		return fmt.Errorf("hard delete chat document links failed: %w", err)
	}
	return nil
}
