package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"docuchat/internal/metrics"
	"docuchat/internal/model"
	"docuchat/internal/repository"
)

var ErrDocumentFailed = errors.New("document processing failed")

const (
	maxMessageContentRunes = 2000
	chatTitleRunes         = 50
)

// AnswerGenerator produces the assistant's reply for a message.
type AnswerGenerator interface {
	Answer(ctx context.Context, query string, docs []model.Document, history []model.Message) (*GeneratedAnswer, error)
}

// HistoryProvider serves the bounded conversation window.
type HistoryProvider interface {
	Load(ctx context.Context, chatID uint) ([]model.Message, error)
	Invalidate(ctx context.Context, chatID uint)
}

// MessageService runs a message end to end: find or create the chat,
// persist the user turn, resolve grounding documents, generate the
// reply, persist the assistant turn. Generation failures degrade into
// an apology turn; the request still succeeds.
type MessageService struct {
	chatRepo     *repository.ChatRepository
	messageRepo  *repository.MessageRepository
	chatDocRepo  *repository.ChatDocumentRepository
	msgDocRepo   *repository.MessageDocumentRepository
	categoryRepo *repository.CategoryRepository
	resolver     *DocumentResolver
	history      HistoryProvider
	generator    AnswerGenerator
}

func NewMessageService(
	chatRepo *repository.ChatRepository,
	messageRepo *repository.MessageRepository,
	chatDocRepo *repository.ChatDocumentRepository,
	msgDocRepo *repository.MessageDocumentRepository,
	categoryRepo *repository.CategoryRepository,
	resolver *DocumentResolver,
	history HistoryProvider,
	generator AnswerGenerator,
) *MessageService {
	return &MessageService{
		chatRepo:     chatRepo,
		messageRepo:  messageRepo,
		chatDocRepo:  chatDocRepo,
		msgDocRepo:   msgDocRepo,
		categoryRepo: categoryRepo,
		resolver:     resolver,
		history:      history,
		generator:    generator,
	}
}

type SendMessageInput struct {
	UserID      uint
	ChatID      uint // 0 creates a new chat
	Content     string
	DocumentIDs []uint
	CategoryID  *uint // honored only when creating a chat
}

type CategoryRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type DocumentRef struct {
	ID       uint   `json:"id"`
	Filename string `json:"filename"`
}

// ChatCreateInfo describes a chat born from this message; returned only
// when the request did not name an existing chat.
type ChatCreateInfo struct {
	ID        uint          `json:"id"`
	Title     string        `json:"title"`
	Category  *CategoryRef  `json:"category,omitempty"`
	Documents []DocumentRef `json:"documents"`
	CreatedAt time.Time     `json:"created_at"`
}

type MessageView struct {
	ID                uint               `json:"id"`
	ChatID            uint               `json:"chat_id"`
	Role              string             `json:"role"`
	Content           string             `json:"content"`
	AttachedDocuments []DocumentRef      `json:"attached_documents"`
	Sources           []model.SourceInfo `json:"sources,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

type SendMessageResult struct {
	Chat             *ChatCreateInfo `json:"chat,omitempty"`
	UserMessage      MessageView     `json:"user_message"`
	AssistantMessage MessageView     `json:"assistant_message"`
}

func (s *MessageService) Send(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" || utf8.RuneCountInString(content) > maxMessageContentRunes {
		return nil, ErrInvalidInput
	}

	var chatInfo *ChatCreateInfo
	var chatID uint
	if input.ChatID == 0 {
		info, err := s.createChatForMessage(input.UserID, content, input.CategoryID, input.DocumentIDs)
		if err != nil {
			return nil, err
		}
		chatInfo = info
		chatID = info.ID
	} else {
		chat, err := s.chatRepo.GetByIDAndUserID(input.ChatID, input.UserID)
		if err != nil {
			return nil, err
		}
		if chat == nil {
			return nil, ErrChatNotFound
		}
		chatID = chat.ID
	}

	s.history.Invalidate(ctx, chatID)

	userMessage := &model.Message{
		ChatID:  chatID,
		Role:    model.MessageRoleUser,
		Content: content,
	}
	if err := s.messageRepo.Create(userMessage); err != nil {
		return nil, err
	}

	// Attach named documents to the turn; from here on a lookup miss is
	// a hard error even though the user turn already exists.
	var attached []DocumentRef
	var groundingDocs []model.Document
	if len(input.DocumentIDs) > 0 {
		docs, err := s.resolver.ResolveExplicit(input.UserID, input.DocumentIDs)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			edge := &model.MessageDocument{MessageID: userMessage.ID, DocumentID: doc.ID}
			if err := s.msgDocRepo.Create(edge); err != nil {
				return nil, err
			}
			attached = append(attached, DocumentRef{ID: doc.ID, Filename: doc.Filename})
		}
		groundingDocs = CompletedOnly(docs)
	} else {
		docs, err := s.resolver.ResolveForChat(input.UserID, chatID)
		if err != nil {
			return nil, err
		}
		groundingDocs = docs
	}

	answer := s.generate(ctx, chatID, content, groundingDocs)

	assistantMessage := &model.Message{
		ChatID:  chatID,
		Role:    model.MessageRoleAssistant,
		Content: answer.Content,
	}
	assistantMessage.SetSources(answer.Sources)
	if err := s.messageRepo.Create(assistantMessage); err != nil {
		return nil, err
	}
	if err := s.chatRepo.TouchUpdatedAt(chatID); err != nil {
		return nil, err
	}
	s.history.Invalidate(ctx, chatID)

	return &SendMessageResult{
		Chat: chatInfo,
		UserMessage: MessageView{
			ID:                userMessage.ID,
			ChatID:            chatID,
			Role:              userMessage.Role,
			Content:           userMessage.Content,
			AttachedDocuments: attached,
			CreatedAt:         userMessage.CreatedAt,
		},
		AssistantMessage: MessageView{
			ID:        assistantMessage.ID,
			ChatID:    chatID,
			Role:      assistantMessage.Role,
			Content:   assistantMessage.Content,
			Sources:   answer.Sources,
			CreatedAt: assistantMessage.CreatedAt,
		},
	}, nil
}

// generate never fails: history or model errors turn into an apology
// reply that is persisted like any other assistant turn.
func (s *MessageService) generate(ctx context.Context, chatID uint, query string, docs []model.Document) *GeneratedAnswer {
	started := time.Now()

	history, err := s.history.Load(ctx, chatID)
	if err == nil {
		var answer *GeneratedAnswer
		answer, err = s.generator.Answer(ctx, query, docs, history)
		if err == nil {
			mode := "general"
			if len(answer.Sources) > 0 {
				mode = "grounded"
			}
			metrics.ObserveGeneration("ok", time.Since(started))
			metrics.IncrementMessagesCreated(mode)
			return answer
		}
	}

	log.Printf("generate answer for chat %d failed: %v", chatID, err)
	metrics.ObserveGeneration("degraded", time.Since(started))
	metrics.IncrementMessagesCreated("degraded")
	return &GeneratedAnswer{
		Content: fmt.Sprintf("I apologize, but I encountered an error while generating a response: %v", err),
	}
}

func (s *MessageService) createChatForMessage(userID uint, content string, categoryID *uint, documentIDs []uint) (*ChatCreateInfo, error) {
	var categoryRef *CategoryRef
	if categoryID != nil {
		category, err := s.categoryRepo.GetByIDAndUserID(*categoryID, userID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, ErrCategoryNotFound
		}
		categoryRef = &CategoryRef{ID: category.ID, Name: category.Name}
	}

	chat := &model.Chat{
		UserID:     userID,
		CategoryID: categoryID,
		Title:      chatTitle(content),
	}
	if err := s.chatRepo.Create(chat); err != nil {
		return nil, err
	}

	// Attaching documents can still reject the whole operation, so the
	// freshly created chat must go with it.
	refs := make([]DocumentRef, 0, len(documentIDs))
	if len(documentIDs) > 0 {
		docs, err := s.resolver.ResolveExplicit(userID, documentIDs)
		if err != nil {
			s.rollbackChat(chat.ID)
			return nil, err
		}
		for _, doc := range docs {
			if doc.Status == model.DocumentStatusFailed {
				s.rollbackChat(chat.ID)
				return nil, ErrDocumentFailed
			}
		}
		for _, doc := range docs {
			edge := &model.ChatDocument{ChatID: chat.ID, DocumentID: doc.ID}
			if err := s.chatDocRepo.Create(edge); err != nil {
				s.rollbackChat(chat.ID)
				return nil, err
			}
			refs = append(refs, DocumentRef{ID: doc.ID, Filename: doc.Filename})
		}
	}

	return &ChatCreateInfo{
		ID:        chat.ID,
		Title:     chat.Title,
		Category:  categoryRef,
		Documents: refs,
		CreatedAt: chat.CreatedAt,
	}, nil
}

func (s *MessageService) rollbackChat(chatID uint) {
	if err := s.chatDocRepo.HardDeleteByChatID(chatID); err != nil {
		log.Printf("rollback chat %d document links failed: %v", chatID, err)
	}
	if err := s.chatRepo.HardDelete(chatID); err != nil {
		log.Printf("rollback chat %d failed: %v", chatID, err)
	}
}

func chatTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= chatTitleRunes {
		return content
	}
	return string(runes[:chatTitleRunes])
}

type ChatMessagesResult struct {
	ChatID   uint          `json:"chat_id"`
	Messages []MessageView `json:"messages"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
}

// ListForChat returns one page of a chat's messages, oldest first, each
// with its citations and attached documents.
func (s *MessageService) ListForChat(userID, chatID uint, page, limit int) (*ChatMessagesResult, error) {
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

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, total, err := s.messageRepo.ListByChatID(chatID, page, limit)
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, len(messages))
	for i, msg := range messages {
		docs, err := s.msgDocRepo.ListDocumentsByMessageID(msg.ID)
		if err != nil {
			return nil, err
		}
		refs := make([]DocumentRef, len(docs))
		for j, doc := range docs {
			refs[j] = DocumentRef{ID: doc.ID, Filename: doc.Filename}
		}
		views[i] = MessageView{
			ID:                msg.ID,
			ChatID:            msg.ChatID,
			Role:              msg.Role,
			Content:           msg.Content,
			AttachedDocuments: refs,
			Sources:           msg.SourceList(),
			CreatedAt:         msg.CreatedAt,
		}
	}

	return &ChatMessagesResult{
		ChatID:   chatID,
		Messages: views,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}
