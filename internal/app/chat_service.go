package app

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

var ErrChatNotFound = errors.New("chat not found")

const (
	maxChatTitleRunes  = 100
	maxBulkDeleteChats = 100
)

// ChatService covers everything about chats except sending messages:
// listing, detail, renaming, categorizing, and deletion.
type ChatService struct {
	chatRepo     *repository.ChatRepository
	messageRepo  *repository.MessageRepository
	chatDocRepo  *repository.ChatDocumentRepository
	categoryRepo *repository.CategoryRepository
	history      HistoryProvider
}

func NewChatService(
	chatRepo *repository.ChatRepository,
	messageRepo *repository.MessageRepository,
	chatDocRepo *repository.ChatDocumentRepository,
	categoryRepo *repository.CategoryRepository,
	history HistoryProvider,
) *ChatService {
	return &ChatService{
		chatRepo:     chatRepo,
		messageRepo:  messageRepo,
		chatDocRepo:  chatDocRepo,
		categoryRepo: categoryRepo,
		history:      history,
	}
}

type ChatSummary struct {
	ID            uint         `json:"id"`
	Title         string       `json:"title"`
	Category      *CategoryRef `json:"category,omitempty"`
	DocumentCount int64        `json:"document_count"`
	MessageCount  int64        `json:"message_count"`
	LastMessageAt *time.Time   `json:"last_message_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type ChatDocumentInfo struct {
	ID       uint      `json:"id"`
	Filename string    `json:"filename"`
	FileType string    `json:"file_type"`
	Status   string    `json:"status"`
	AddedAt  time.Time `json:"added_at"`
}

type ChatDetail struct {
	ChatSummary
	Documents []ChatDocumentInfo `json:"documents"`
}

type ChatListResult struct {
	Chats []ChatSummary `json:"chats"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type ListChatsInput struct {
	UserID     uint
	CategoryID *uint
	Page       int
	Limit      int
}

func (s *ChatService) List(input ListChatsInput) (*ChatListResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	if input.CategoryID != nil {
		category, err := s.categoryRepo.GetByIDAndUserID(*input.CategoryID, input.UserID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, ErrCategoryNotFound
		}
	}

	page := input.Page
	limit := input.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	chats, total, err := s.chatRepo.ListByUserID(input.UserID, input.CategoryID, page, limit)
	if err != nil {
		return nil, err
	}

	// Chats in one page often share a category, so look each one up once.
	categories := map[uint]*CategoryRef{}
	summaries := make([]ChatSummary, len(chats))
	for i, chat := range chats {
		summary, err := s.summarize(&chat)
		if err != nil {
			return nil, err
		}
		if chat.CategoryID != nil {
			ref, ok := categories[*chat.CategoryID]
			if !ok {
				category, err := s.categoryRepo.GetByIDAndUserID(*chat.CategoryID, input.UserID)
				if err != nil {
					return nil, err
				}
				if category != nil {
					ref = &CategoryRef{ID: category.ID, Name: category.Name}
				}
				categories[*chat.CategoryID] = ref
			}
			summary.Category = ref
		}
		summaries[i] = *summary
	}

	return &ChatListResult{
		Chats: summaries,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (s *ChatService) Get(userID, chatID uint) (*ChatDetail, error) {
	if userID == 0 || chatID == 0 {
		return nil, ErrInvalidInput
	}
	chat, err := s.chatRepo.GetByIDAndUserID(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	summary, err := s.summarize(chat)
	if err != nil {
		return nil, err
	}
	if chat.CategoryID != nil {
		category, err := s.categoryRepo.GetByIDAndUserID(*chat.CategoryID, userID)
		if err != nil {
			return nil, err
		}
		if category != nil {
			summary.Category = &CategoryRef{ID: category.ID, Name: category.Name}
		}
	}

	attached, err := s.chatDocRepo.ListAttachedByChatID(chatID)
	if err != nil {
		return nil, err
	}
	documents := make([]ChatDocumentInfo, len(attached))
	for i, row := range attached {
		documents[i] = ChatDocumentInfo{
			ID:       row.DocumentID,
			Filename: row.Filename,
			FileType: row.FileType,
			Status:   row.Status,
			AddedAt:  row.AddedAt,
		}
	}

	return &ChatDetail{ChatSummary: *summary, Documents: documents}, nil
}

type UpdateChatInput struct {
	UserID uint
	ChatID uint
	Title  *string
	// CategorySet distinguishes "leave the category alone" from an
	// explicit null, which clears it.
	CategoryID  *uint
	CategorySet bool
}

func (s *ChatService) Update(input UpdateChatInput) (*ChatSummary, error) {
	if input.UserID == 0 || input.ChatID == 0 {
		return nil, ErrInvalidInput
	}
	chat, err := s.chatRepo.GetByIDAndUserID(input.ChatID, input.UserID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || utf8.RuneCountInString(title) > maxChatTitleRunes {
			return nil, ErrInvalidInput
		}
		chat.Title = title
	}
	if input.CategorySet {
		if input.CategoryID == nil {
			chat.CategoryID = nil
		} else {
			category, err := s.categoryRepo.GetByIDAndUserID(*input.CategoryID, input.UserID)
			if err != nil {
				return nil, err
			}
			if category == nil {
				return nil, ErrCategoryNotFound
			}
			chat.CategoryID = input.CategoryID
		}
	}

	if err := s.chatRepo.Update(chat); err != nil {
		return nil, err
	}
	return s.summarizeWithCategory(chat, input.UserID)
}

// RemoveCategory detaches the chat from its category without touching
// anything else.
func (s *ChatService) RemoveCategory(userID, chatID uint) (*ChatSummary, error) {
	if userID == 0 || chatID == 0 {
		return nil, ErrInvalidInput
	}
	chat, err := s.chatRepo.GetByIDAndUserID(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	chat.CategoryID = nil
	if err := s.chatRepo.Update(chat); err != nil {
		return nil, err
	}
	return s.summarizeWithCategory(chat, userID)
}

type DeleteChatResult struct {
	DeletedMessages   int64 `json:"deleted_messages"`
	AffectedDocuments int64 `json:"affected_documents"`
}

// Delete soft-deletes the chat, its messages, and its document links.
// The documents themselves stay in the library.
func (s *ChatService) Delete(ctx context.Context, userID, chatID uint) (*DeleteChatResult, error) {
	if userID == 0 || chatID == 0 {
		return nil, ErrInvalidInput
	}
	chat, err := s.chatRepo.GetByIDAndUserID(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	messageCount, err := s.messageRepo.CountByChatID(chatID)
	if err != nil {
		return nil, err
	}
	documentCount, err := s.chatDocRepo.CountByChatID(chatID)
	if err != nil {
		return nil, err
	}

	if err := s.messageRepo.SoftDeleteByChatID(chatID); err != nil {
		return nil, err
	}
	if err := s.chatDocRepo.SoftDeleteByChatID(chatID); err != nil {
		return nil, err
	}
	if err := s.chatRepo.SoftDelete(chatID); err != nil {
		return nil, err
	}
	if chat.CategoryID != nil {
		if err := s.categoryRepo.TouchUpdatedAt(*chat.CategoryID); err != nil {
			return nil, err
		}
	}
	if s.history != nil {
		s.history.Invalidate(ctx, chatID)
	}

	return &DeleteChatResult{
		DeletedMessages:   messageCount,
		AffectedDocuments: documentCount,
	}, nil
}

type BulkDeleteItem struct {
	ChatID  uint   `json:"chat_id"`
	Deleted bool   `json:"deleted"`
	Reason  string `json:"reason,omitempty"`
}

type BulkDeleteResult struct {
	Results           []BulkDeleteItem `json:"results"`
	DeletedChats      int              `json:"deleted_chats"`
	DeletedMessages   int64            `json:"deleted_messages"`
	AffectedDocuments int64            `json:"affected_documents"`
}

// DeleteMany deletes each chat independently and reports the outcome
// per chat; a missing chat does not fail the others.
func (s *ChatService) DeleteMany(ctx context.Context, userID uint, chatIDs []uint) (*BulkDeleteResult, error) {
	if userID == 0 || len(chatIDs) == 0 || len(chatIDs) > maxBulkDeleteChats {
		return nil, ErrInvalidInput
	}

	result := &BulkDeleteResult{Results: make([]BulkDeleteItem, 0, len(chatIDs))}
	for _, chatID := range chatIDs {
		deleted, err := s.Delete(ctx, userID, chatID)
		if err != nil {
			if errors.Is(err, ErrChatNotFound) || errors.Is(err, ErrInvalidInput) {
				result.Results = append(result.Results, BulkDeleteItem{
					ChatID: chatID,
					Reason: "not found",
				})
				continue
			}
			return nil, err
		}
		result.Results = append(result.Results, BulkDeleteItem{ChatID: chatID, Deleted: true})
		result.DeletedChats++
		result.DeletedMessages += deleted.DeletedMessages
		result.AffectedDocuments += deleted.AffectedDocuments
	}
	return result, nil
}

func (s *ChatService) summarize(chat *model.Chat) (*ChatSummary, error) {
	documentCount, err := s.chatDocRepo.CountByChatID(chat.ID)
	if err != nil {
		return nil, err
	}
	messageCount, err := s.messageRepo.CountByChatID(chat.ID)
	if err != nil {
		return nil, err
	}
	lastMessageAt, err := s.messageRepo.LastCreatedAt(chat.ID)
	if err != nil {
		return nil, err
	}
	return &ChatSummary{
		ID:            chat.ID,
		Title:         chat.Title,
		DocumentCount: documentCount,
		MessageCount:  messageCount,
		LastMessageAt: lastMessageAt,
		CreatedAt:     chat.CreatedAt,
		UpdatedAt:     chat.UpdatedAt,
	}, nil
}

func (s *ChatService) summarizeWithCategory(chat *model.Chat, userID uint) (*ChatSummary, error) {
	summary, err := s.summarize(chat)
	if err != nil {
		return nil, err
	}
	if chat.CategoryID != nil {
		category, err := s.categoryRepo.GetByIDAndUserID(*chat.CategoryID, userID)
		if err != nil {
			return nil, err
		}
		if category != nil {
			summary.Category = &CategoryRef{ID: category.ID, Name: category.Name}
		}
	}
	return summary, nil
}
