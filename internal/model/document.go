package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	FileTypePDF      = "pdf"
	FileTypeMarkdown = "md"
	FileTypeText     = "txt"
)

const (
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Document is an uploaded file whose text gets chunked and indexed by the
// ingestion worker. Status moves processing -> completed|failed exactly once;
// ChunkCount stays nil until ingestion completes.
type Document struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	Filename   string         `gorm:"size:256;not null" json:"filename"`
	FilePath   string         `gorm:"size:512" json:"-"`
	FileType   string         `gorm:"size:16;not null" json:"file_type"`
	FileSize   int64          `gorm:"not null" json:"file_size"`
	Status     string         `gorm:"size:16;not null;index" json:"status"`
	ChunkCount *int           `json:"chunk_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// FileTypeForExtension maps a lowercase filename extension (without dot)
// to a declared file type; ok is false for unsupported extensions.
func FileTypeForExtension(ext string) (string, bool) {
	switch ext {
	case "pdf":
		return FileTypePDF, true
	case "md", "markdown":
		return FileTypeMarkdown, true
	case "txt":
		return FileTypeText, true
	default:
		return "", false
	}
}
