package app

import (
	"docuchat/internal/model"
	"docuchat/internal/repository"
)

// DocumentResolver decides which documents ground a message. Explicitly
// named documents win; otherwise the chat's linked documents; otherwise
// everything the user has. Fallback tiers only ever yield completed,
// non-deleted documents.
type DocumentResolver struct {
	docRepo     *repository.DocumentRepository
	chatDocRepo *repository.ChatDocumentRepository
}

func NewDocumentResolver(docRepo *repository.DocumentRepository, chatDocRepo *repository.ChatDocumentRepository) *DocumentResolver {
	return &DocumentResolver{docRepo: docRepo, chatDocRepo: chatDocRepo}
}

// ResolveExplicit fetches the named documents in order. Any document
// that is missing or not owned by the user fails the whole lookup with
// ErrDocumentNotFound.
func (r *DocumentResolver) ResolveExplicit(userID uint, documentIDs []uint) ([]model.Document, error) {
	docs := make([]model.Document, 0, len(documentIDs))
	for _, id := range documentIDs {
		doc, err := r.docRepo.GetByIDAndUserID(id, userID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, ErrDocumentNotFound
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// ResolveForChat returns the grounding set when no documents were
// named: the chat's completed documents, falling back to every
// completed document the user owns when the chat has none.
func (r *DocumentResolver) ResolveForChat(userID, chatID uint) ([]model.Document, error) {
	docs, err := r.chatDocRepo.ListCompletedDocumentsByChatID(chatID)
	if err != nil {
		return nil, err
	}
	if len(docs) > 0 {
		return docs, nil
	}
	return r.docRepo.ListCompletedByUserID(userID)
}

// CompletedOnly filters to the documents ready to ground a response.
func CompletedOnly(docs []model.Document) []model.Document {
	var completed []model.Document
	for _, doc := range docs {
		if doc.Status == model.DocumentStatusCompleted {
			completed = append(completed, doc)
		}
	}
	return completed
}
