package storage

import "context"

// Store persists uploaded file bytes under opaque slash-separated
// locators. The upload front door writes, the ingestion pipeline reads,
// document deletion removes.
type Store interface {
	Save(ctx context.Context, locator string, data []byte) error
	Fetch(ctx context.Context, locator string) ([]byte, error)
	Delete(ctx context.Context, locator string) error
}
