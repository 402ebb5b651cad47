package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

type messageEnv struct {
	db          *gorm.DB
	chatRepo    *repository.ChatRepository
	msgRepo     *repository.MessageRepository
	chatDocRepo *repository.ChatDocumentRepository
	msgDocRepo  *repository.MessageDocumentRepository
	catRepo     *repository.CategoryRepository
	docRepo     *repository.DocumentRepository
	generator   *fakeGenerator
	svc         *MessageService
}

func newMessageEnv(t *testing.T) *messageEnv {
	t.Helper()
	db := newTestDB(t)
	env := &messageEnv{
		db:          db,
		chatRepo:    repository.NewChatRepository(db),
		msgRepo:     repository.NewMessageRepository(db),
		chatDocRepo: repository.NewChatDocumentRepository(db),
		msgDocRepo:  repository.NewMessageDocumentRepository(db),
		catRepo:     repository.NewCategoryRepository(db),
		docRepo:     repository.NewDocumentRepository(db),
		generator:   &fakeGenerator{},
	}
	env.svc = NewMessageService(
		env.chatRepo,
		env.msgRepo,
		env.chatDocRepo,
		env.msgDocRepo,
		env.catRepo,
		NewDocumentResolver(env.docRepo, env.chatDocRepo),
		NewHistoryLoader(env.msgRepo, nil, 10),
		env.generator,
	)
	return env
}

func (e *messageEnv) createChat(t *testing.T, userID uint) *model.Chat {
	t.Helper()
	chat := &model.Chat{UserID: userID, Title: "existing chat"}
	if err := e.chatRepo.Create(chat); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return chat
}

func (e *messageEnv) createDoc(t *testing.T, userID uint, name, status string) *model.Document {
	t.Helper()
	doc := &model.Document{UserID: userID, Filename: name, FileType: model.FileTypeText, FileSize: 1, Status: status}
	if err := e.docRepo.Create(doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func TestSendCreatesChatFromFirstMessage(t *testing.T) {
	env := newMessageEnv(t)
	content := strings.Repeat("가", 60)

	res, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, Content: content})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Chat == nil {
		t.Fatal("no chat info for a first message")
	}
	if res.Chat.Title != strings.Repeat("가", 50) {
		t.Errorf("title = %q, want the first 50 runes", res.Chat.Title)
	}

	chat, err := env.chatRepo.GetByIDAndUserID(res.Chat.ID, 1)
	if err != nil || chat == nil {
		t.Fatalf("created chat not found: %v", err)
	}

	if res.UserMessage.Role != model.MessageRoleUser || res.UserMessage.Content != content {
		t.Errorf("user turn = %q/%q", res.UserMessage.Role, res.UserMessage.Content)
	}
	if res.AssistantMessage.Role != model.MessageRoleAssistant || res.AssistantMessage.Content != "stub answer" {
		t.Errorf("assistant turn = %q/%q", res.AssistantMessage.Role, res.AssistantMessage.Content)
	}

	count, err := env.msgRepo.CountByChatID(res.Chat.ID)
	if err != nil {
		t.Fatalf("CountByChatID: %v", err)
	}
	if count != 2 {
		t.Errorf("persisted %d messages, want 2", count)
	}

	// The window handed to the generator already includes the user turn.
	if len(env.generator.gotHistory) != 1 || env.generator.gotHistory[0].Content != content {
		t.Errorf("generator history = %d turns", len(env.generator.gotHistory))
	}
	if len(env.generator.gotDocs) != 0 {
		t.Errorf("generator docs = %d, want none for a user without documents", len(env.generator.gotDocs))
	}
}

func TestSendReusesExistingChat(t *testing.T) {
	env := newMessageEnv(t)
	chat := env.createChat(t, 1)

	res, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, ChatID: chat.ID, Content: "follow up"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Chat != nil {
		t.Error("chat info present for an existing chat")
	}
	if res.UserMessage.ChatID != chat.ID || res.AssistantMessage.ChatID != chat.ID {
		t.Error("turns not attached to the named chat")
	}
}

func TestSendRejectsForeignChat(t *testing.T) {
	env := newMessageEnv(t)
	theirs := env.createChat(t, 2)

	if _, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, ChatID: theirs.ID, Content: "hi"}); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("foreign chat error = %v, want ErrChatNotFound", err)
	}
	if _, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, ChatID: 9999, Content: "hi"}); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("unknown chat error = %v, want ErrChatNotFound", err)
	}
}

func TestSendValidatesContent(t *testing.T) {
	env := newMessageEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input SendMessageInput
	}{
		{"missing user", SendMessageInput{UserID: 0, Content: "hi"}},
		{"empty content", SendMessageInput{UserID: 1, Content: ""}},
		{"whitespace content", SendMessageInput{UserID: 1, Content: "   \n "}},
		{"over limit", SendMessageInput{UserID: 1, Content: strings.Repeat("a", 2001)}},
	}
	for _, tc := range cases {
		if _, err := env.svc.Send(ctx, tc.input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: error = %v, want ErrInvalidInput", tc.name, err)
		}
	}

	if _, err := env.svc.Send(ctx, SendMessageInput{UserID: 1, Content: strings.Repeat("a", 2000)}); err != nil {
		t.Errorf("content at the limit rejected: %v", err)
	}
}

func TestSendDegradesOnGeneratorFailure(t *testing.T) {
	env := newMessageEnv(t)
	env.generator.answerFn = func(ctx context.Context, query string, docs []model.Document, history []model.Message) (*GeneratedAnswer, error) {
		return nil, errors.New("model exploded")
	}

	res, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, Content: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	want := "I apologize, but I encountered an error while generating a response: model exploded"
	if res.AssistantMessage.Content != want {
		t.Errorf("assistant content = %q, want apology", res.AssistantMessage.Content)
	}
	if len(res.AssistantMessage.Sources) != 0 {
		t.Error("degraded turn carries sources")
	}

	messages, _, err := env.msgRepo.ListByChatID(res.Chat.ID, 1, 50)
	if err != nil {
		t.Fatalf("ListByChatID: %v", err)
	}
	if len(messages) != 2 || messages[1].Content != want {
		t.Error("apology turn not persisted")
	}
}

func TestSendRejectsFailedDocumentOnNewChat(t *testing.T) {
	env := newMessageEnv(t)
	failed := env.createDoc(t, 1, "broken.pdf", model.DocumentStatusFailed)

	_, err := env.svc.Send(context.Background(), SendMessageInput{
		UserID:      1,
		Content:     "use this",
		DocumentIDs: []uint{failed.ID},
	})
	if !errors.Is(err, ErrDocumentFailed) {
		t.Fatalf("error = %v, want ErrDocumentFailed", err)
	}

	var chats int64
	if err := env.db.Unscoped().Model(&model.Chat{}).Count(&chats).Error; err != nil {
		t.Fatalf("count chats: %v", err)
	}
	if chats != 0 {
		t.Errorf("%d chat rows left after rollback, want 0", chats)
	}
	var messages int64
	if err := env.db.Model(&model.Message{}).Count(&messages).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if messages != 0 {
		t.Errorf("%d messages persisted for a rejected request, want 0", messages)
	}
}

func TestSendAttachesNamedDocuments(t *testing.T) {
	env := newMessageEnv(t)
	chat := env.createChat(t, 1)
	ready := env.createDoc(t, 1, "ready.txt", model.DocumentStatusCompleted)
	pending := env.createDoc(t, 1, "pending.txt", model.DocumentStatusProcessing)

	res, err := env.svc.Send(context.Background(), SendMessageInput{
		UserID:      1,
		ChatID:      chat.ID,
		Content:     "look at these",
		DocumentIDs: []uint{ready.ID, pending.ID},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(res.UserMessage.AttachedDocuments) != 2 {
		t.Errorf("attached %d documents, want 2", len(res.UserMessage.AttachedDocuments))
	}
	// Only the completed one grounds the answer.
	if len(env.generator.gotDocs) != 1 || env.generator.gotDocs[0].ID != ready.ID {
		t.Errorf("generator docs = %d, want just the completed document", len(env.generator.gotDocs))
	}

	linked, err := env.msgDocRepo.ListDocumentsByMessageID(res.UserMessage.ID)
	if err != nil {
		t.Fatalf("ListDocumentsByMessageID: %v", err)
	}
	if len(linked) != 2 {
		t.Errorf("persisted %d message-document edges, want 2", len(linked))
	}
}

func TestSendMissingNamedDocumentKeepsUserTurn(t *testing.T) {
	env := newMessageEnv(t)
	chat := env.createChat(t, 1)

	_, err := env.svc.Send(context.Background(), SendMessageInput{
		UserID:      1,
		ChatID:      chat.ID,
		Content:     "where is it",
		DocumentIDs: []uint{9999},
	})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("error = %v, want ErrDocumentNotFound", err)
	}

	count, err := env.msgRepo.CountByChatID(chat.ID)
	if err != nil {
		t.Fatalf("CountByChatID: %v", err)
	}
	if count != 1 {
		t.Errorf("chat has %d messages, want the user turn alone", count)
	}
}

func TestSendGroundsOnChatLinkedDocuments(t *testing.T) {
	env := newMessageEnv(t)
	chat := env.createChat(t, 1)
	doc := env.createDoc(t, 1, "linked.txt", model.DocumentStatusCompleted)
	if err := env.chatDocRepo.Create(&model.ChatDocument{ChatID: chat.ID, DocumentID: doc.ID}); err != nil {
		t.Fatalf("create edge: %v", err)
	}

	if _, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, ChatID: chat.ID, Content: "summarize"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(env.generator.gotDocs) != 1 || env.generator.gotDocs[0].ID != doc.ID {
		t.Errorf("generator docs = %d, want the chat-linked document", len(env.generator.gotDocs))
	}
}

func TestSendCitationsFlowThrough(t *testing.T) {
	env := newMessageEnv(t)
	env.generator.answerFn = func(ctx context.Context, query string, docs []model.Document, history []model.Message) (*GeneratedAnswer, error) {
		return &GeneratedAnswer{
			Content: "grounded reply",
			Sources: []model.SourceInfo{{DocumentID: 5, DocumentName: "r.pdf", ChunkID: "5_0", Similarity: 0.9, ContentPreview: "prev"}},
		}, nil
	}

	res, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, Content: "cite me"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(res.AssistantMessage.Sources) != 1 || res.AssistantMessage.Sources[0].ChunkID != "5_0" {
		t.Fatalf("sources = %+v", res.AssistantMessage.Sources)
	}

	listed, err := env.svc.ListForChat(1, res.Chat.ID, 1, 50)
	if err != nil {
		t.Fatalf("ListForChat: %v", err)
	}
	if len(listed.Messages) != 2 {
		t.Fatalf("listed %d messages, want 2", len(listed.Messages))
	}
	assistant := listed.Messages[1]
	if len(assistant.Sources) != 1 || assistant.Sources[0].DocumentName != "r.pdf" {
		t.Errorf("persisted sources = %+v", assistant.Sources)
	}
}

func TestSendCreatesChatWithCategory(t *testing.T) {
	env := newMessageEnv(t)
	category := &model.Category{UserID: 1, Name: "work"}
	if err := env.catRepo.Create(category); err != nil {
		t.Fatalf("create category: %v", err)
	}

	res, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, Content: "hi", CategoryID: &category.ID})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Chat.Category == nil || res.Chat.Category.ID != category.ID || res.Chat.Category.Name != "work" {
		t.Errorf("chat category = %+v", res.Chat.Category)
	}

	unknown := uint(9999)
	if _, err := env.svc.Send(context.Background(), SendMessageInput{UserID: 1, Content: "hi", CategoryID: &unknown}); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("unknown category error = %v, want ErrCategoryNotFound", err)
	}
}

func TestListForChatPaginates(t *testing.T) {
	env := newMessageEnv(t)
	chat := env.createChat(t, 1)
	for _, content := range []string{"first", "second", "third"} {
		if err := env.msgRepo.Create(&model.Message{ChatID: chat.ID, Role: model.MessageRoleUser, Content: content}); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	res, err := env.svc.ListForChat(1, chat.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListForChat: %v", err)
	}
	if res.Total != 3 || res.Page != 1 || res.Limit != 2 {
		t.Errorf("page meta = total %d page %d limit %d", res.Total, res.Page, res.Limit)
	}
	if len(res.Messages) != 2 || res.Messages[0].Content != "first" || res.Messages[1].Content != "second" {
		t.Errorf("page 1 = %d messages, want first and second in order", len(res.Messages))
	}

	if _, err := env.svc.ListForChat(2, chat.ID, 1, 50); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("foreign ListForChat error = %v, want ErrChatNotFound", err)
	}
}
