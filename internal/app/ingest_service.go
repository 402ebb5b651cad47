package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/chunker"
	"docuchat/internal/extract"
	"docuchat/internal/metrics"
	"docuchat/internal/model"
	"docuchat/internal/repository"
	"docuchat/internal/storage"
	"docuchat/internal/vectorstore"
)

// embeddingBatchSize keeps embedding request bodies small; providers
// reject oversized batches.
const embeddingBatchSize = 16

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestService runs the extract -> chunk -> embed -> index pipeline
// for one uploaded document. The document's status moves from
// processing to exactly one of completed or failed; a pipeline failure
// is recorded on the document, not returned to the caller.
type IngestService struct {
	docRepo  *repository.DocumentRepository
	store    storage.Store
	splitter *chunker.Splitter
	embedder Embedder
	index    vectorstore.Index
}

func NewIngestService(
	docRepo *repository.DocumentRepository,
	store storage.Store,
	splitter *chunker.Splitter,
	embedder Embedder,
	index vectorstore.Index,
) *IngestService {
	return &IngestService{
		docRepo:  docRepo,
		store:    store,
		splitter: splitter,
		embedder: embedder,
		index:    index,
	}
}

// Process ingests one document. A returned error means the attempt
// could not run at all (the task should be retried); a document-level
// failure marks the document failed and returns nil.
func (s *IngestService) Process(ctx context.Context, documentID uint) error {
	started := time.Now()

	doc, err := s.docRepo.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		log.Printf("ingest: document %d no longer exists, skipping", documentID)
		return nil
	}
	if doc.Status != model.DocumentStatusProcessing {
		// Redelivered task for a document that already finished.
		log.Printf("ingest: document %d already %s, skipping", documentID, doc.Status)
		return nil
	}

	chunkCount, err := s.run(ctx, doc)
	if err != nil {
		// Shutdown mid-run is not a document failure; leave the
		// document in processing for redelivery.
		if errors.Is(err, context.Canceled) {
			return err
		}
		log.Printf("ingest: document %d failed: %v", documentID, err)
		if markErr := s.docRepo.MarkFailed(doc.ID); markErr != nil {
			return fmt.Errorf("mark document failed after ingest error: %w", markErr)
		}
		metrics.ObserveIngest("failed", 0, time.Since(started))
		return nil
	}

	if err := s.docRepo.MarkCompleted(doc.ID, chunkCount); err != nil {
		return err
	}
	metrics.ObserveIngest("completed", chunkCount, time.Since(started))
	log.Printf("ingest: document %d completed with %d chunks in %s", documentID, chunkCount, time.Since(started))
	return nil
}

func (s *IngestService) run(ctx context.Context, doc *model.Document) (int, error) {
	data, err := s.store.Fetch(ctx, doc.FilePath)
	if err != nil {
		return 0, fmt.Errorf("fetch stored file failed: %w", err)
	}

	text, err := extract.Text(data, doc.FileType)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("extracted text is empty")
	}

	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced")
	}

	var vectors [][]float32
	for i := 0; i < len(chunks); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := s.embedder.EmbedBatch(ctx, chunks[i:end])
		if err != nil {
			return 0, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	// Drop any points left by an earlier interrupted attempt so a
	// retry cannot duplicate chunks.
	if err := s.index.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("clear stale document vectors failed: %w", err)
	}

	entries := make([]vectorstore.Entry, len(chunks))
	for i := range chunks {
		entries[i] = vectorstore.Entry{
			PointID:    uuid.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    chunks[i],
			Filename:   doc.Filename,
			FileType:   doc.FileType,
			Vector:     vectors[i],
		}
	}
	if err := s.index.Add(ctx, entries); err != nil {
		return 0, fmt.Errorf("index chunks failed: %w", err)
	}
	return len(chunks), nil
}
