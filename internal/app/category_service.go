package app

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category name already exists")
)

const (
	maxCategoryNameRunes        = 50
	maxCategoryDescriptionRunes = 200
)

// CategoryService manages the folders chats are filed under. Deleting a
// category deletes its chats with it.
type CategoryService struct {
	categoryRepo *repository.CategoryRepository
	chatRepo     *repository.ChatRepository
}

func NewCategoryService(categoryRepo *repository.CategoryRepository, chatRepo *repository.ChatRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, chatRepo: chatRepo}
}

type CategorySummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ChatCount   int64     `json:"chat_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryChatRef struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryDetail struct {
	CategorySummary
	Chats []CategoryChatRef `json:"chats"`
}

type CategoryListResult struct {
	Categories []CategorySummary `json:"categories"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

type CreateCategoryInput struct {
	UserID      uint
	Name        string
	Description string
}

func (s *CategoryService) Create(input CreateCategoryInput) (*CategorySummary, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > maxCategoryNameRunes {
		return nil, ErrInvalidInput
	}
	if utf8.RuneCountInString(input.Description) > maxCategoryDescriptionRunes {
		return nil, ErrInvalidInput
	}

	existing, err := s.categoryRepo.GetByNameAndUserID(name, input.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCategoryExists
	}

	category := &model.Category{
		UserID:      input.UserID,
		Name:        name,
		Description: input.Description,
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, err
	}

	return &CategorySummary{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}, nil
}

func (s *CategoryService) List(userID uint, page, limit int) (*CategoryListResult, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	categories, total, err := s.categoryRepo.ListByUserID(userID, page, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]CategorySummary, len(categories))
	for i, category := range categories {
		count, err := s.chatRepo.CountByCategoryID(category.ID)
		if err != nil {
			return nil, err
		}
		summaries[i] = CategorySummary{
			ID:          category.ID,
			Name:        category.Name,
			Description: category.Description,
			ChatCount:   count,
			CreatedAt:   category.CreatedAt,
			UpdatedAt:   category.UpdatedAt,
		}
	}

	return &CategoryListResult{
		Categories: summaries,
		Total:      total,
		Page:       page,
		Limit:      limit,
	}, nil
}

func (s *CategoryService) Get(userID, categoryID uint) (*CategoryDetail, error) {
	if userID == 0 || categoryID == 0 {
		return nil, ErrInvalidInput
	}
	category, err := s.categoryRepo.GetByIDAndUserID(categoryID, userID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	chats, err := s.chatRepo.ListByCategoryID(categoryID)
	if err != nil {
		return nil, err
	}
	refs := make([]CategoryChatRef, len(chats))
	for i, chat := range chats {
		refs[i] = CategoryChatRef{ID: chat.ID, Title: chat.Title, CreatedAt: chat.CreatedAt}
	}

	return &CategoryDetail{
		CategorySummary: CategorySummary{
			ID:          category.ID,
			Name:        category.Name,
			Description: category.Description,
			ChatCount:   int64(len(chats)),
			CreatedAt:   category.CreatedAt,
			UpdatedAt:   category.UpdatedAt,
		},
		Chats: refs,
	}, nil
}

type UpdateCategoryInput struct {
	UserID      uint
	CategoryID  uint
	Name        *string
	Description *string
}

func (s *CategoryService) Update(input UpdateCategoryInput) (*CategorySummary, error) {
	if input.UserID == 0 || input.CategoryID == 0 {
		return nil, ErrInvalidInput
	}
	category, err := s.categoryRepo.GetByIDAndUserID(input.CategoryID, input.UserID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || utf8.RuneCountInString(name) > maxCategoryNameRunes {
			return nil, ErrInvalidInput
		}
		existing, err := s.categoryRepo.GetByNameAndUserID(name, input.UserID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != category.ID {
			return nil, ErrCategoryExists
		}
		category.Name = name
	}
	if input.Description != nil {
		if utf8.RuneCountInString(*input.Description) > maxCategoryDescriptionRunes {
			return nil, ErrInvalidInput
		}
		category.Description = *input.Description
	}

	if err := s.categoryRepo.Update(category); err != nil {
		return nil, err
	}

	count, err := s.chatRepo.CountByCategoryID(category.ID)
	if err != nil {
		return nil, err
	}
	return &CategorySummary{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		ChatCount:   count,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}, nil
}

type DeleteCategoryResult struct {
	DeletedChatCount int64 `json:"deleted_chat_count"`
}

// Delete removes the category and every chat filed under it.
func (s *CategoryService) Delete(userID, categoryID uint) (*DeleteCategoryResult, error) {
	if userID == 0 || categoryID == 0 {
		return nil, ErrInvalidInput
	}
	category, err := s.categoryRepo.GetByIDAndUserID(categoryID, userID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	deleted, err := s.chatRepo.SoftDeleteByCategoryID(categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.SoftDelete(categoryID); err != nil {
		return nil, err
	}

	return &DeleteCategoryResult{DeletedChatCount: deleted}, nil
}
