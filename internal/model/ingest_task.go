package model

// IngestTask is the queue payload that schedules ingestion of one document.
type IngestTask struct {
	DocumentID uint `json:"document_id"`
}
