package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docuchat/internal/ai"
	"docuchat/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Document{},
		&model.Chat{},
		&model.Message{},
		&model.Category{},
		&model.ChatDocument{},
		&model.MessageDocument{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

type fakeEmbedder struct {
	embedFn      func(ctx context.Context, text string) ([]float32, error)
	embedBatchFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedFn == nil {
		return []float32{1, 0}, nil
	}
	return f.embedFn(ctx, text)
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.embedBatchFn == nil {
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}
	return f.embedBatchFn(ctx, texts)
}

type fakeStore struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func (f *fakeStore) Save(ctx context.Context, locator string, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[locator] = data
	return nil
}

func (f *fakeStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, ok := f.saved[locator]
	if !ok {
		return nil, fmt.Errorf("object %s not found", locator)
	}
	return data, nil
}

func (f *fakeStore) Delete(ctx context.Context, locator string) error {
	f.deleted = append(f.deleted, locator)
	delete(f.saved, locator)
	return nil
}

type fakePublisher struct {
	tasks []model.IngestTask
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, task model.IngestTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeGenerator struct {
	answerFn   func(ctx context.Context, query string, docs []model.Document, history []model.Message) (*GeneratedAnswer, error)
	gotDocs    []model.Document
	gotHistory []model.Message
}

func (f *fakeGenerator) Answer(ctx context.Context, query string, docs []model.Document, history []model.Message) (*GeneratedAnswer, error) {
	f.gotDocs = docs
	f.gotHistory = history
	if f.answerFn == nil {
		return &GeneratedAnswer{Content: "stub answer"}, nil
	}
	return f.answerFn(ctx, query, docs, history)
}

type fakeCompleter struct {
	completeFn func(ctx context.Context, messages []ai.ChatMessage) (string, error)
	got        [][]ai.ChatMessage
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	f.got = append(f.got, messages)
	if f.completeFn == nil {
		return "stub completion", nil
	}
	return f.completeFn(ctx, messages)
}
