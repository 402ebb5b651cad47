package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"docuchat/internal/model"
	"docuchat/internal/repository"
	"docuchat/internal/storage"
	"docuchat/internal/vectorstore"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// TaskPublisher hands a document to the background ingestion worker.
type TaskPublisher interface {
	Publish(ctx context.Context, task model.IngestTask) error
}

type DocumentService struct {
	docRepo     *repository.DocumentRepository
	chatDocRepo *repository.ChatDocumentRepository
	store       storage.Store
	index       vectorstore.Index
	publisher   TaskPublisher
	maxFileSize int64
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	chatDocRepo *repository.ChatDocumentRepository,
	store storage.Store,
	index vectorstore.Index,
	publisher TaskPublisher,
	maxFileSize int64,
) *DocumentService {
	if maxFileSize <= 0 {
		maxFileSize = 50 << 20
	}
	return &DocumentService{
		docRepo:     docRepo,
		chatDocRepo: chatDocRepo,
		store:       store,
		index:       index,
		publisher:   publisher,
		maxFileSize: maxFileSize,
	}
}

type UploadInput struct {
	UserID   uint
	Filename string
	Data     []byte
}

// Upload validates the file, creates the document record in processing
// status, stores the bytes, and enqueues it for ingestion. Any failure
// after the record exists cleans up what was created so no document is
// left processing forever without a queued task.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		return nil, ErrInvalidInput
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	fileType, ok := model.FileTypeForExtension(ext)
	if !ok {
		return nil, ErrUnsupportedFileType
	}
	if int64(len(input.Data)) > s.maxFileSize {
		return nil, ErrFileTooLarge
	}

	doc := &model.Document{
		UserID:   input.UserID,
		Filename: filename,
		FileType: fileType,
		FileSize: int64(len(input.Data)),
		Status:   model.DocumentStatusProcessing,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}

	locator := fmt.Sprintf("user-documents/%d.%s", doc.ID, fileType)
	if err := s.store.Save(ctx, locator, input.Data); err != nil {
		s.discardUpload(ctx, doc.ID, "")
		return nil, fmt.Errorf("store uploaded file failed: %w", err)
	}
	if err := s.docRepo.SetFilePath(doc.ID, locator); err != nil {
		s.discardUpload(ctx, doc.ID, locator)
		return nil, err
	}
	doc.FilePath = locator

	if err := s.publisher.Publish(ctx, model.IngestTask{DocumentID: doc.ID}); err != nil {
		s.discardUpload(ctx, doc.ID, locator)
		return nil, fmt.Errorf("enqueue ingest task failed: %w", err)
	}
	return doc, nil
}

// discardUpload removes whatever a failed upload managed to create.
func (s *DocumentService) discardUpload(ctx context.Context, docID uint, locator string) {
	if locator != "" {
		if err := s.store.Delete(ctx, locator); err != nil {
			log.Printf("cleanup stored object %s failed: %v", locator, err)
		}
	}
	if err := s.docRepo.HardDelete(docID); err != nil {
		log.Printf("cleanup document record %d failed: %v", docID, err)
	}
}

type ListDocumentsInput struct {
	UserID uint
	Status string
	Page   int
	Limit  int
}

func (s *DocumentService) List(input ListDocumentsInput) ([]model.Document, int64, error) {
	if input.UserID == 0 {
		return nil, 0, ErrInvalidInput
	}
	status := strings.TrimSpace(input.Status)
	switch status {
	case "", model.DocumentStatusProcessing, model.DocumentStatusCompleted, model.DocumentStatusFailed:
	default:
		return nil, 0, ErrInvalidInput
	}
	return s.docRepo.ListByUserID(input.UserID, status, input.Page, input.Limit)
}

func (s *DocumentService) Get(userID, documentID uint) (*model.Document, error) {
	if userID == 0 || documentID == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes the document's chunks from the vector index before
// tombstoning anything; an index failure aborts so a live record never
// points at missing chunks the other way around. The stored object
// delete is best effort.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID uint) error {
	doc, err := s.Get(userID, documentID)
	if err != nil {
		return err
	}

	if err := s.index.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document vectors failed: %w", err)
	}
	if doc.FilePath != "" {
		if err := s.store.Delete(ctx, doc.FilePath); err != nil {
			log.Printf("delete stored object %s failed: %v", doc.FilePath, err)
		}
	}
	if err := s.chatDocRepo.SoftDeleteByDocumentID(doc.ID); err != nil {
		return err
	}
	return s.docRepo.SoftDelete(doc.ID)
}
