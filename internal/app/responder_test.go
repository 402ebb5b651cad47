package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/vectorstore"
	"docuchat/internal/vectorstore/memory"
)

func TestAnswerGroundedBuildsPromptAndSources(t *testing.T) {
	ctx := context.Background()
	index := memory.New()
	longChunk := strings.Repeat("x", 250)
	err := index.Add(ctx, []vectorstore.Entry{
		{PointID: "p1", DocumentID: 7, ChunkIndex: 2, Content: longChunk, Filename: "report.pdf", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("seed index: %v", err)
	}

	completer := &fakeCompleter{completeFn: func(ctx context.Context, _ []ai.ChatMessage) (string, error) {
		return "  The answer.  ", nil
	}}
	r := NewResponder(&fakeEmbedder{}, completer, index, ResponderConfig{})

	docs := []model.Document{{ID: 7, Filename: "report.pdf", Status: model.DocumentStatusCompleted}}
	history := []model.Message{
		{Role: model.MessageRoleUser, Content: "earlier question"},
		{Role: model.MessageRoleAssistant, Content: "earlier answer"},
	}

	answer, err := r.Answer(ctx, "what grew?", docs, history)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Content != "The answer." {
		t.Errorf("content = %q, want trimmed completion", answer.Content)
	}

	if len(answer.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(answer.Sources))
	}
	src := answer.Sources[0]
	if src.DocumentID != 7 || src.DocumentName != "report.pdf" {
		t.Errorf("source identity = %d/%q", src.DocumentID, src.DocumentName)
	}
	if src.ChunkID != "7_2" {
		t.Errorf("chunk id = %q, want 7_2", src.ChunkID)
	}
	if src.Similarity != 1 {
		t.Errorf("similarity = %v, want 1", src.Similarity)
	}
	if src.ContentPreview != strings.Repeat("x", 200) {
		t.Errorf("preview length = %d, want 200 with no ellipsis", len(src.ContentPreview))
	}

	if len(completer.got) != 1 {
		t.Fatalf("completer called %d times, want 1", len(completer.got))
	}
	msgs := completer.got[0]
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("prompt shape wrong: %d messages", len(msgs))
	}
	if msgs[0].Content != "You are a friendly AI assistant. You may draw on the documents the user has uploaded when answering." {
		t.Errorf("system prompt = %q", msgs[0].Content)
	}

	user := msgs[1].Content
	for _, want := range []string{
		"Previous conversation:\nUser: earlier question\nAssistant: earlier answer\n",
		"Reference document content:",
		"[Document: report.pdf]",
		"User question: what grew?",
		"Answer in English.",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(user, "\nAnswer:") {
		t.Error("prompt does not end with the answer cue")
	}
}

func TestAnswerGeneralWithoutDocuments(t *testing.T) {
	embedder := &fakeEmbedder{embedFn: func(ctx context.Context, text string) ([]float32, error) {
		t.Error("embedder called with no grounding documents")
		return nil, errors.New("unexpected")
	}}
	completer := &fakeCompleter{}
	r := NewResponder(embedder, completer, memory.New(), ResponderConfig{})

	answer, err := r.Answer(context.Background(), "hello", nil, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Sources != nil {
		t.Errorf("got %d sources, want none", len(answer.Sources))
	}

	msgs := completer.got[0]
	if msgs[0].Content != "You are a friendly AI assistant." {
		t.Errorf("system prompt = %q", msgs[0].Content)
	}
	if strings.Contains(msgs[1].Content, "Reference document content") {
		t.Error("general prompt carries document blocks")
	}
}

func TestAnswerGeneralWhenNoChunksMatch(t *testing.T) {
	completer := &fakeCompleter{}
	r := NewResponder(&fakeEmbedder{}, completer, memory.New(), ResponderConfig{})

	docs := []model.Document{{ID: 1, Filename: "empty.pdf", Status: model.DocumentStatusCompleted}}
	answer, err := r.Answer(context.Background(), "anything?", docs, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Sources != nil {
		t.Errorf("got %d sources from an empty index, want none", len(answer.Sources))
	}
	if completer.got[0][0].Content != "You are a friendly AI assistant." {
		t.Error("expected fallback to the general prompt")
	}
}

func TestAnswerTruncatesLongHistoryTurns(t *testing.T) {
	completer := &fakeCompleter{}
	r := NewResponder(&fakeEmbedder{}, completer, memory.New(), ResponderConfig{})

	history := []model.Message{{Role: model.MessageRoleUser, Content: strings.Repeat("h", 600)}}
	if _, err := r.Answer(context.Background(), "q", nil, history); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	user := completer.got[0][1].Content
	if !strings.Contains(user, strings.Repeat("h", 500)+"...") {
		t.Error("long history turn was not truncated with ellipsis")
	}
	if strings.Contains(user, strings.Repeat("h", 501)) {
		t.Error("history turn exceeds the cap")
	}
}

func TestAnswerScopesSearchToGivenDocuments(t *testing.T) {
	ctx := context.Background()
	index := memory.New()
	err := index.Add(ctx, []vectorstore.Entry{
		{PointID: "p1", DocumentID: 1, ChunkIndex: 0, Content: "mine", Filename: "a.txt", Vector: []float32{1, 0}},
		{PointID: "p2", DocumentID: 2, ChunkIndex: 0, Content: "other", Filename: "b.txt", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("seed index: %v", err)
	}
	r := NewResponder(&fakeEmbedder{}, &fakeCompleter{}, index, ResponderConfig{})

	docs := []model.Document{{ID: 1, Filename: "a.txt", Status: model.DocumentStatusCompleted}}
	answer, err := r.Answer(ctx, "q", docs, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].DocumentID != 1 {
		t.Errorf("sources = %+v, want only document 1", answer.Sources)
	}
}

func TestAnswerHonorsTopK(t *testing.T) {
	ctx := context.Background()
	index := memory.New()
	entries := []vectorstore.Entry{
		{PointID: "p1", DocumentID: 1, ChunkIndex: 0, Content: "a", Filename: "a.txt", Vector: []float32{1, 0}},
		{PointID: "p2", DocumentID: 1, ChunkIndex: 1, Content: "b", Filename: "a.txt", Vector: []float32{0.9, 0.1}},
		{PointID: "p3", DocumentID: 1, ChunkIndex: 2, Content: "c", Filename: "a.txt", Vector: []float32{0.8, 0.2}},
	}
	if err := index.Add(ctx, entries); err != nil {
		t.Fatalf("seed index: %v", err)
	}
	r := NewResponder(&fakeEmbedder{}, &fakeCompleter{}, index, ResponderConfig{TopK: 2})

	docs := []model.Document{{ID: 1, Filename: "a.txt", Status: model.DocumentStatusCompleted}}
	answer, err := r.Answer(ctx, "q", docs, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(answer.Sources) != 2 {
		t.Errorf("got %d sources, want top 2", len(answer.Sources))
	}
}

func TestAnswerLanguageConfigurable(t *testing.T) {
	completer := &fakeCompleter{}
	r := NewResponder(&fakeEmbedder{}, completer, memory.New(), ResponderConfig{AnswerLanguage: "Korean"})

	if _, err := r.Answer(context.Background(), "q", nil, nil); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(completer.got[0][1].Content, "Answer in Korean.") {
		t.Error("configured answer language not in prompt")
	}
}

func TestAnswerAppliesTimeout(t *testing.T) {
	completer := &fakeCompleter{completeFn: func(ctx context.Context, _ []ai.ChatMessage) (string, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("generation context has no deadline")
		}
		return "ok", nil
	}}
	r := NewResponder(&fakeEmbedder{}, completer, memory.New(), ResponderConfig{Timeout: 30 * time.Second})

	if _, err := r.Answer(context.Background(), "q", nil, nil); err != nil {
		t.Fatalf("Answer: %v", err)
	}
}

func TestAnswerPropagatesCompleterError(t *testing.T) {
	completer := &fakeCompleter{completeFn: func(ctx context.Context, _ []ai.ChatMessage) (string, error) {
		return "", errors.New("model unavailable")
	}}
	r := NewResponder(&fakeEmbedder{}, completer, memory.New(), ResponderConfig{})

	if _, err := r.Answer(context.Background(), "q", nil, nil); err == nil {
		t.Error("completer failure did not surface")
	}
}
