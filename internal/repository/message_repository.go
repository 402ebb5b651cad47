package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListByChatID returns a page of the chat's messages in chronological
// order together with the total count.
func (r *MessageRepository) ListByChatID(chatID uint, page, limit int) ([]model.Message, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := r.db.Model(&model.Message{}).Where("chat_id = ?", chatID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count messages failed: %w", err)
	}

	var messages []model.Message
	if err := q.Order("created_at ASC, id ASC").Offset((page - 1) * limit).Limit(limit).Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, total, nil
}

// ListRecentByChatID returns the newest limit messages for the chat,
// reordered oldest-first for prompt building.
func (r *MessageRepository) ListRecentByChatID(chatID uint, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var messages []model.Message
	if err := r.db.Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepository) CountByChatID(chatID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Message{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count messages failed: %w", err)
	}
	return count, nil
}

// LastCreatedAt returns the timestamp of the chat's newest message, or
// nil when the chat has none.
func (r *MessageRepository) LastCreatedAt(chatID uint) (*time.Time, error) {
	var message model.Message
	err := r.db.Where("chat_id = ?", chatID).Order("created_at DESC, id DESC").First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last message failed: %w", err)
	}
	return &message.CreatedAt, nil
}

func (r *MessageRepository) SoftDeleteByChatID(chatID uint) error {
	if err := r.db.Where("chat_id = ?", chatID).Delete(&model.Message{}).Error; err != nil {
		return fmt.Errorf("delete messages by chat failed: %w", err)
	}
	return nil
}
