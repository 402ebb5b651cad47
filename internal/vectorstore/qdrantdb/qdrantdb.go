package qdrantdb

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"docuchat/internal/vectorstore"
)

type Config struct {
	Host       string
	Port       int
	UseTLS     bool
	Collection string
	Dimensions int
	PoolSize   int
}

// Index adapts a qdrant collection to the vectorstore.Index interface.
// Chunk metadata rides in the point payload; document scoping uses a
// payload match filter on document_id.
type Index struct {
	client     *qdrant.Client
	collection string
}

// New connects to qdrant and makes sure the collection exists with the
// configured vector size and cosine distance.
func New(ctx context.Context, cfg Config) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		UseTLS:   cfg.UseTLS,
		PoolSize: uint(cfg.PoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client failed: %w", err)
	}

	if err := ensureCollection(ctx, client, cfg.Collection, uint64(cfg.Dimensions)); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Index{client: client, collection: cfg.Collection}, nil
}

func ensureCollection(ctx context.Context, client *qdrant.Client, name string, dims uint64) error {
	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check qdrant collection failed: %w", err)
	}
	if exists {
		return nil
	}

	if err := client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dims,
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("create qdrant collection failed: %w", err)
	}
	return nil
}

func (i *Index) Add(ctx context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for n, e := range entries {
		points[n] = &qdrant.PointStruct{
			Id:      qdrant.NewID(e.PointID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": int64(e.DocumentID),
				"chunk_index": int64(e.ChunkIndex),
				"content":     e.Content,
				"filename":    e.Filename,
				"file_type":   e.FileType,
			}),
		}
	}

	if _, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	}); err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (i *Index) Search(ctx context.Context, vector []float32, documentIDs []uint, limit int) ([]vectorstore.Hit, error) {
	query := &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(documentIDs) > 0 {
		ids := make([]int64, len(documentIDs))
		for n, id := range documentIDs {
			ids[n] = int64(id)
		}
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchInts("document_id", ids...)},
		}
	}

	points, err := i.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	hits := make([]vectorstore.Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, vectorstore.Hit{
			DocumentID: uint(p.Payload["document_id"].GetIntegerValue()),
			ChunkIndex: int(p.Payload["chunk_index"].GetIntegerValue()),
			Content:    p.Payload["content"].GetStringValue(),
			Filename:   p.Payload["filename"].GetStringValue(),
			Score:      p.Score,
		})
	}
	return hits, nil
}

func (i *Index) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	if _, err := i.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: i.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchInt("document_id", int64(documentID))},
		}),
		Wait: qdrant.PtrOf(true),
	}); err != nil {
		return fmt.Errorf("qdrant delete by document failed: %w", err)
	}
	return nil
}

// HealthCheck pings the qdrant node.
func (i *Index) HealthCheck(ctx context.Context) error {
	if _, err := i.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

func (i *Index) Close() error {
	return i.client.Close()
}
