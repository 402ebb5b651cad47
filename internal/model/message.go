package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// SourceInfo cites one retrieved chunk behind a grounded assistant turn.
// ChunkID is synthetic: "<documentID>_<ordinal>".
type SourceInfo struct {
	DocumentID     uint    `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	ChunkID        string  `json:"chunk_id"`
	Page           *int    `json:"page,omitempty"`
	Similarity     float32 `json:"similarity"`
	ContentPreview string  `json:"content_preview"`
}

// Message is one turn in a chat. Sources is set only on assistant turns
// that were grounded in retrieved chunks; stored as a JSON array.
type Message struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ChatID    uint           `gorm:"not null;index" json:"chat_id"`
	Role      string         `gorm:"size:16;not null;index" json:"role"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Sources   datatypes.JSON `json:"sources,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SetSources stores the citation list as JSON; nil or empty clears it.
func (m *Message) SetSources(sources []SourceInfo) {
	if len(sources) == 0 {
		m.Sources = nil
		return
	}
	b, _ := json.Marshal(sources)
	m.Sources = datatypes.JSON(b)
}

// SourceList returns the parsed citation list; nil when absent or unparsable.
func (m *Message) SourceList() []SourceInfo {
	if len(m.Sources) == 0 {
		return nil
	}
	var v []SourceInfo
	_ = json.Unmarshal(m.Sources, &v)
	return v
}
