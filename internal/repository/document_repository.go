package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDAndUserID(id, userID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// ListByUserID returns a page of the user's documents, newest first,
// optionally filtered by status, together with the total count.
func (r *DocumentRepository) ListByUserID(userID uint, status string, page, limit int) ([]model.Document, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := r.db.Model(&model.Document{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count documents failed: %w", err)
	}

	var docs []model.Document
	if err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&docs).Error; err != nil {
		return nil, 0, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, total, nil
}

func (r *DocumentRepository) ListCompletedByUserID(userID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("user_id = ? AND status = ?", userID, model.DocumentStatusCompleted).
		Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list completed documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) SetFilePath(id uint, path string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Update("file_path", path).Error; err != nil {
		return fmt.Errorf("set document file path failed: %w", err)
	}
	return nil
}

// MarkCompleted moves a document from processing to completed and records
// the chunk count. The status guard keeps the transition one-way: a
// document already completed or failed is left untouched and an error is
// returned.
func (r *DocumentRepository) MarkCompleted(id uint, chunkCount int) error {
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND status = ?", id, model.DocumentStatusProcessing).
		Updates(map[string]interface{}{
			"status":      model.DocumentStatusCompleted,
			"chunk_count": chunkCount,
		})
	if res.Error != nil {
		return fmt.Errorf("mark document completed failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %d is not in processing status", id)
	}
	return nil
}

// MarkFailed moves a document from processing to failed. Same one-way
// guard as MarkCompleted.
func (r *DocumentRepository) MarkFailed(id uint) error {
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND status = ?", id, model.DocumentStatusProcessing).
		Update("status", model.DocumentStatusFailed)
	if res.Error != nil {
		return fmt.Errorf("mark document failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %d is not in processing status", id)
	}
	return nil
}

func (r *DocumentRepository) SoftDelete(id uint) error {
	if err := r.db.Where("id = ?", id).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// HardDelete removes the row entirely. Used only to compensate a failed
// upload before the document was ever visible.
func (r *DocumentRepository) HardDelete(id uint) error {
	if err := r.db.Unscoped().Where("id = ?", id).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("hard delete document failed: %w", err)
	}
	return nil
}
