package app

import (
	"context"
	"fmt"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

// HistoryCache is the Redis-backed window cache for chat history.
type HistoryCache interface {
	GetHistory(ctx context.Context, chatID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, chatID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, chatID uint) error
	MarkDirty(ctx context.Context, chatID uint) error
	IsDirty(ctx context.Context, chatID uint) (bool, error)
}

// HistoryLoader serves the bounded conversation window handed to the
// response generator: the most recent maxPairs user/assistant pairs,
// oldest first. Reads go through the cache when it is clean; cache
// failures fall back to the database silently.
type HistoryLoader struct {
	messageRepo *repository.MessageRepository
	cache       HistoryCache
	maxPairs    int
}

func NewHistoryLoader(messageRepo *repository.MessageRepository, cache HistoryCache, maxPairs int) *HistoryLoader {
	if maxPairs <= 0 {
		maxPairs = 10
	}
	return &HistoryLoader{
		messageRepo: messageRepo,
		cache:       cache,
		maxPairs:    maxPairs,
	}
}

func (l *HistoryLoader) Load(ctx context.Context, chatID uint) ([]model.Message, error) {
	limit := l.maxPairs * 2

	if l.cache != nil {
		dirty, err := l.cache.IsDirty(ctx, chatID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := l.cache.GetHistory(ctx, chatID); cacheErr == nil && hit {
				return trimHistory(cached, limit), nil
			}
		}
	}

	messages, err := l.messageRepo.ListRecentByChatID(chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("load chat history failed: %w", err)
	}
	if l.cache != nil {
		if dirty, dirtyErr := l.cache.IsDirty(ctx, chatID); dirtyErr == nil && !dirty {
			_ = l.cache.SetHistory(ctx, chatID, messages)
		}
	}
	return messages, nil
}

// Invalidate drops the cached window around a write.
func (l *HistoryLoader) Invalidate(ctx context.Context, chatID uint) {
	if l.cache == nil {
		return
	}
	_ = l.cache.MarkDirty(ctx, chatID)
	_ = l.cache.DeleteHistory(ctx, chatID)
}

func trimHistory(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
