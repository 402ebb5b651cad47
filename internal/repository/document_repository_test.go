package repository

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

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

func createProcessingDoc(t *testing.T, repo *DocumentRepository) *model.Document {
	t.Helper()
	doc := &model.Document{UserID: 1, Filename: "a.txt", FileType: model.FileTypeText, FileSize: 1, Status: model.DocumentStatusProcessing}
	if err := repo.Create(doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func TestMarkCompletedIsOneWay(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	doc := createProcessingDoc(t, repo)

	if err := repo.MarkCompleted(doc.ID, 5); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	got, err := repo.GetByID(doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.DocumentStatusCompleted || got.ChunkCount == nil || *got.ChunkCount != 5 {
		t.Errorf("document = %s with chunks %v, want completed/5", got.Status, got.ChunkCount)
	}

	if err := repo.MarkCompleted(doc.ID, 9); err == nil {
		t.Error("second MarkCompleted succeeded on a completed document")
	}
	if err := repo.MarkFailed(doc.ID); err == nil {
		t.Error("MarkFailed succeeded on a completed document")
	}

	got, err = repo.GetByID(doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.DocumentStatusCompleted || *got.ChunkCount != 5 {
		t.Error("terminal state was modified")
	}
}

func TestMarkFailedIsOneWay(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	doc := createProcessingDoc(t, repo)

	if err := repo.MarkFailed(doc.ID); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := repo.MarkCompleted(doc.ID, 3); err == nil {
		t.Error("MarkCompleted succeeded on a failed document")
	}

	got, err := repo.GetByID(doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.DocumentStatusFailed || got.ChunkCount != nil {
		t.Errorf("document = %s with chunks %v, want failed with none", got.Status, got.ChunkCount)
	}
}

func TestGetReturnsNilForMissingOrDeleted(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))

	got, err := repo.GetByID(999)
	if err != nil || got != nil {
		t.Errorf("missing GetByID = (%v, %v), want (nil, nil)", got, err)
	}

	doc := createProcessingDoc(t, repo)
	if err := repo.SoftDelete(doc.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	got, err = repo.GetByIDAndUserID(doc.ID, 1)
	if err != nil || got != nil {
		t.Errorf("deleted GetByIDAndUserID = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestListByUserIDPaginates(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	for i := 0; i < 3; i++ {
		createProcessingDoc(t, repo)
	}

	docs, total, err := repo.ListByUserID(1, "", 2, 2)
	if err != nil {
		t.Fatalf("ListByUserID: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(docs) != 1 {
		t.Errorf("page 2 holds %d documents, want 1", len(docs))
	}
}
