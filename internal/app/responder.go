package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/vectorstore"
)

const (
	// History turns longer than this are cut down before entering the
	// prompt.
	maxHistoryTurnRunes = 500
	// Citation previews carry at most this much of the chunk.
	sourcePreviewRunes = 200
)

// Completer produces a chat completion for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

type ResponderConfig struct {
	TopK           int
	AnswerLanguage string
	Timeout        time.Duration
}

// Responder generates the assistant's reply. With grounding documents
// it retrieves the most similar chunks and answers from them, citing
// each; without documents, or when retrieval finds nothing relevant,
// it answers from general knowledge with no citations.
type Responder struct {
	embedder  Embedder
	completer Completer
	index     vectorstore.Index
	topK      int
	language  string
	timeout   time.Duration
}

func NewResponder(embedder Embedder, completer Completer, index vectorstore.Index, cfg ResponderConfig) *Responder {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 4
	}
	language := strings.TrimSpace(cfg.AnswerLanguage)
	if language == "" {
		language = "English"
	}
	return &Responder{
		embedder:  embedder,
		completer: completer,
		index:     index,
		topK:      topK,
		language:  language,
		timeout:   cfg.Timeout,
	}
}

type GeneratedAnswer struct {
	Content string
	Sources []model.SourceInfo
}

func (r *Responder) Answer(ctx context.Context, query string, docs []model.Document, history []model.Message) (*GeneratedAnswer, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var hits []vectorstore.Hit
	if len(docs) > 0 {
		queryVector, err := r.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		ids := make([]uint, len(docs))
		for i, doc := range docs {
			ids[i] = doc.ID
		}
		hits, err = r.index.Search(ctx, queryVector, ids, r.topK)
		if err != nil {
			return nil, fmt.Errorf("search chunks failed: %w", err)
		}
	}

	var messages []ai.ChatMessage
	var sources []model.SourceInfo
	if len(hits) > 0 {
		messages = r.groundedPrompt(query, hits, history)
		sources = buildSources(hits)
	} else {
		messages = r.generalPrompt(query, history)
	}

	content, err := r.completer.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	return &GeneratedAnswer{
		Content: strings.TrimSpace(content),
		Sources: sources,
	}, nil
}

func (r *Responder) groundedPrompt(query string, hits []vectorstore.Hit, history []model.Message) []ai.ChatMessage {
	blocks := make([]string, len(hits))
	for i, hit := range hits {
		blocks[i] = fmt.Sprintf("[Document: %s]\n%s", hit.Filename, hit.Content)
	}

	var b strings.Builder
	if block := historyBlock(history); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}
	b.WriteString("Reference document content:\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nUser question: ")
	b.WriteString(query)
	b.WriteString("\n\nGuidelines:\n")
	b.WriteString("1. Use the previous conversation above to follow the context.\n")
	b.WriteString("2. When the document content is relevant to the question, base your answer on it first.\n")
	b.WriteString("3. If you used document content, briefly mention which document you drew on.\n")
	b.WriteString("4. When the documents are not relevant, answer helpfully from general knowledge.\n")
	fmt.Fprintf(&b, "5. Answer in %s.\n", r.language)
	b.WriteString("\nAnswer:")

	return []ai.ChatMessage{
		{Role: "system", Content: "You are a friendly AI assistant. You may draw on the documents the user has uploaded when answering."},
		{Role: "user", Content: b.String()},
	}
}

func (r *Responder) generalPrompt(query string, history []model.Message) []ai.ChatMessage {
	var b strings.Builder
	if block := historyBlock(history); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}
	b.WriteString("User question: ")
	b.WriteString(query)
	b.WriteString("\n\nGuidelines:\n")
	b.WriteString("1. Use the previous conversation above to follow the context.\n")
	b.WriteString("2. Answer helpfully and accurately.\n")
	fmt.Fprintf(&b, "3. Answer in %s.\n", r.language)
	b.WriteString("4. If you do not know, say so honestly.\n")
	b.WriteString("\nAnswer:")

	return []ai.ChatMessage{
		{Role: "system", Content: "You are a friendly AI assistant."},
		{Role: "user", Content: b.String()},
	}
}

func historyBlock(history []model.Message) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, msg := range history {
		role := "User"
		if msg.Role == model.MessageRoleAssistant {
			role = "Assistant"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(truncateRunes(msg.Content, maxHistoryTurnRunes))
		b.WriteString("\n")
	}
	return b.String()
}

func buildSources(hits []vectorstore.Hit) []model.SourceInfo {
	sources := make([]model.SourceInfo, len(hits))
	for i, hit := range hits {
		sources[i] = model.SourceInfo{
			DocumentID:     hit.DocumentID,
			DocumentName:   hit.Filename,
			ChunkID:        fmt.Sprintf("%d_%d", hit.DocumentID, hit.ChunkIndex),
			Similarity:     hit.Score,
			ContentPreview: previewRunes(hit.Content, sourcePreviewRunes),
		}
	}
	return sources
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func previewRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
