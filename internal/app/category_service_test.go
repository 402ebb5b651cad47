package app

import (
	"errors"
	"strings"
	"testing"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

type categoryEnv struct {
	catRepo  *repository.CategoryRepository
	chatRepo *repository.ChatRepository
	svc      *CategoryService
}

func newCategoryEnv(t *testing.T) *categoryEnv {
	t.Helper()
	db := newTestDB(t)
	env := &categoryEnv{
		catRepo:  repository.NewCategoryRepository(db),
		chatRepo: repository.NewChatRepository(db),
	}
	env.svc = NewCategoryService(env.catRepo, env.chatRepo)
	return env
}

func TestCategoryCreate(t *testing.T) {
	env := newCategoryEnv(t)

	created, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "  work  ", Description: "projects"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Name != "work" {
		t.Errorf("name = %q, want trimmed", created.Name)
	}
	if created.Description != "projects" {
		t.Errorf("description = %q", created.Description)
	}

	if _, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "work"}); !errors.Is(err, ErrCategoryExists) {
		t.Errorf("duplicate name error = %v, want ErrCategoryExists", err)
	}
	// Same name under another user is fine.
	if _, err := env.svc.Create(CreateCategoryInput{UserID: 2, Name: "work"}); err != nil {
		t.Errorf("cross-user duplicate rejected: %v", err)
	}
}

func TestCategoryCreateValidation(t *testing.T) {
	env := newCategoryEnv(t)

	cases := []struct {
		name  string
		input CreateCategoryInput
	}{
		{"missing user", CreateCategoryInput{UserID: 0, Name: "x"}},
		{"blank name", CreateCategoryInput{UserID: 1, Name: "   "}},
		{"name too long", CreateCategoryInput{UserID: 1, Name: strings.Repeat("n", 51)}},
		{"description too long", CreateCategoryInput{UserID: 1, Name: "ok", Description: strings.Repeat("d", 201)}},
	}
	for _, tc := range cases {
		if _, err := env.svc.Create(tc.input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: error = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestCategoryListCountsChats(t *testing.T) {
	env := newCategoryEnv(t)

	busy, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "busy"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "idle"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := env.chatRepo.Create(&model.Chat{UserID: 1, Title: "c", CategoryID: &busy.ID}); err != nil {
			t.Fatalf("create chat: %v", err)
		}
	}

	res, err := env.svc.List(1, 1, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 2 || len(res.Categories) != 2 {
		t.Fatalf("list = %d categories (total %d), want 2", len(res.Categories), res.Total)
	}
	counts := map[string]int64{}
	for _, c := range res.Categories {
		counts[c.Name] = c.ChatCount
	}
	if counts["busy"] != 2 || counts["idle"] != 0 {
		t.Errorf("chat counts = %v, want busy=2 idle=0", counts)
	}
}

func TestCategoryGetListsChats(t *testing.T) {
	env := newCategoryEnv(t)
	created, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "reading"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.chatRepo.Create(&model.Chat{UserID: 1, Title: "paper notes", CategoryID: &created.ID}); err != nil {
		t.Fatalf("create chat: %v", err)
	}

	detail, err := env.svc.Get(1, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.ChatCount != 1 || len(detail.Chats) != 1 || detail.Chats[0].Title != "paper notes" {
		t.Errorf("detail = count %d with %d chats", detail.ChatCount, len(detail.Chats))
	}

	if _, err := env.svc.Get(2, created.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("foreign Get error = %v, want ErrCategoryNotFound", err)
	}
}

func TestCategoryUpdate(t *testing.T) {
	env := newCategoryEnv(t)
	first, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "first"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "second"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Renaming onto another category's name conflicts.
	taken := "first"
	if _, err := env.svc.Update(UpdateCategoryInput{UserID: 1, CategoryID: second.ID, Name: &taken}); !errors.Is(err, ErrCategoryExists) {
		t.Errorf("conflicting rename error = %v, want ErrCategoryExists", err)
	}

	// Re-submitting its own name is not a conflict.
	own := "second"
	if _, err := env.svc.Update(UpdateCategoryInput{UserID: 1, CategoryID: second.ID, Name: &own}); err != nil {
		t.Errorf("self rename rejected: %v", err)
	}

	desc := "updated description"
	updated, err := env.svc.Update(UpdateCategoryInput{UserID: 1, CategoryID: first.ID, Description: &desc})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "first" || updated.Description != desc {
		t.Errorf("updated = %q/%q", updated.Name, updated.Description)
	}
}

func TestCategoryDeleteCascadesToChats(t *testing.T) {
	env := newCategoryEnv(t)
	created, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "doomed"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	var chatID uint
	for i := 0; i < 3; i++ {
		chat := &model.Chat{UserID: 1, Title: "filed", CategoryID: &created.ID}
		if err := env.chatRepo.Create(chat); err != nil {
			t.Fatalf("create chat: %v", err)
		}
		chatID = chat.ID
	}
	loose := &model.Chat{UserID: 1, Title: "loose"}
	if err := env.chatRepo.Create(loose); err != nil {
		t.Fatalf("create chat: %v", err)
	}

	res, err := env.svc.Delete(1, created.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.DeletedChatCount != 3 {
		t.Errorf("deleted %d chats, want 3", res.DeletedChatCount)
	}

	if got, _ := env.catRepo.GetByIDAndUserID(created.ID, 1); got != nil {
		t.Error("category still visible after delete")
	}
	if got, _ := env.chatRepo.GetByIDAndUserID(chatID, 1); got != nil {
		t.Error("filed chat still visible after category delete")
	}
	if got, _ := env.chatRepo.GetByIDAndUserID(loose.ID, 1); got == nil {
		t.Error("uncategorized chat was deleted too")
	}

	// The freed name can be reused.
	if _, err := env.svc.Create(CreateCategoryInput{UserID: 1, Name: "doomed"}); err != nil {
		t.Errorf("reusing a soft-deleted name rejected: %v", err)
	}
}
