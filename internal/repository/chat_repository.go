package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.Chat) error {
	if err := r.db.Create(chat).Error; err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByIDAndUserID(id, userID uint) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

// ListByUserID returns a page of the user's chats, most recently active
// first, optionally filtered by category, together with the total count.
func (r *ChatRepository) ListByUserID(userID uint, categoryID *uint, page, limit int) ([]model.Chat, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := r.db.Model(&model.Chat{}).Where("user_id = ?", userID)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count chats failed: %w", err)
	}

	var chats []model.Chat
	if err := q.Order("updated_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&chats).Error; err != nil {
		return nil, 0, fmt.Errorf("list chats failed: %w", err)
	}
	return chats, total, nil
}

func (r *ChatRepository) Update(chat *model.Chat) error {
	if err := r.db.Save(chat).Error; err != nil {
		return fmt.Errorf("update chat failed: %w", err)
	}
	return nil
}

// TouchUpdatedAt bumps the chat's activity timestamp; called on every
// message append.
func (r *ChatRepository) TouchUpdatedAt(id uint) error {
	if err := r.db.Model(&model.Chat{}).Where("id = ?", id).Update("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch chat failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) CountByCategoryID(categoryID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Chat{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chats by category failed: %w", err)
	}
	return count, nil
}

func (r *ChatRepository) ListByCategoryID(categoryID uint) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.Where("category_id = ?", categoryID).
		Order("created_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats by category failed: %w", err)
	}
	return chats, nil
}

// SoftDeleteByCategoryID tombstones every live chat in a category and
// returns how many were affected; deleting a category takes its chats
// with it.
func (r *ChatRepository) SoftDeleteByCategoryID(categoryID uint) (int64, error) {
	res := r.db.Where("category_id = ?", categoryID).Delete(&model.Chat{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete chats by category failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *ChatRepository) SoftDelete(id uint) error {
	if err := r.db.Where("id = ?", id).Delete(&model.Chat{}).Error; err != nil {
		return fmt.Errorf("delete chat failed: %w", err)
	}
	return nil
}

// HardDelete removes the row entirely. Used only to roll back a chat
// created in the same request when attaching its documents fails.
func (r *ChatRepository) HardDelete(id uint) error {
	if err := r.db.Unscoped().Where("id = ?", id).Delete(&model.Chat{}).Error; err != nil {
		return fmt.Errorf("hard delete chat failed: %w", err)
	}
	return nil
}
