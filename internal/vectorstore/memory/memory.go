package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"docuchat/internal/vectorstore"
)

// Index is an in-process vector index backing tests and small local
// setups; the production deployment uses the qdrant adapter.
type Index struct {
	mu      sync.RWMutex
	entries []vectorstore.Entry
}

func New() *Index {
	return &Index{}
}

func (i *Index) Add(ctx context.Context, entries []vectorstore.Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries = append(i.entries, entries...)
	return nil
}

func (i *Index) Search(ctx context.Context, vector []float32, documentIDs []uint, limit int) ([]vectorstore.Hit, error) {
	if limit <= 0 {
		return nil, nil
	}

	var scope map[uint]bool
	if len(documentIDs) > 0 {
		scope = make(map[uint]bool, len(documentIDs))
		for _, id := range documentIDs {
			scope[id] = true
		}
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	var hits []vectorstore.Hit
	for _, e := range i.entries {
		if scope != nil && !scope[e.DocumentID] {
			continue
		}
		hits = append(hits, vectorstore.Hit{
			DocumentID: e.DocumentID,
			ChunkIndex: e.ChunkIndex,
			Content:    e.Content,
			Filename:   e.Filename,
			Score:      cosine(vector, e.Vector),
		})
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (i *Index) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	kept := i.entries[:0]
	for _, e := range i.entries {
		if e.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	i.entries = kept
	return nil
}

// CountByDocumentID reports how many entries a document has; tests use it
// to check the chunks-iff-completed invariant.
func (i *Index) CountByDocumentID(documentID uint) int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	n := 0
	for _, e := range i.entries {
		if e.DocumentID == documentID {
			n++
		}
	}
	return n
}

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
