package vectorstore

import "context"

// Entry is one chunk to index: its embedding plus retrieval metadata.
// PointID is a UUID minted by the ingestion pipeline.
type Entry struct {
	PointID    string
	DocumentID uint
	ChunkIndex int
	Content    string
	Filename   string
	FileType   string
	Vector     []float32
}

// Hit is one similarity-search result.
type Hit struct {
	DocumentID uint
	ChunkIndex int
	Content    string
	Filename   string
	Score      float32
}

// Index stores chunk embeddings and serves nearest-neighbor search,
// optionally scoped to a document-id set. An empty documentIDs slice
// means unscoped search over the whole collection.
type Index interface {
	Add(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float32, documentIDs []uint, limit int) ([]Hit, error)
	DeleteByDocumentID(ctx context.Context, documentID uint) error
}
