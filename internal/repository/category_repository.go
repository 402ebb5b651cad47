package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(category *model.Category) error {
	if err := r.db.Create(category).Error; err != nil {
		return fmt.Errorf("create category failed: %w", err)
	}
	return nil
}

func (r *CategoryRepository) ListByUserID(userID uint, page, limit int) ([]model.Category, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := r.db.Model(&model.Category{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count categories failed: %w", err)
	}

	var list []model.Category
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list categories failed: %w", err)
	}
	return list, total, nil
}

func (r *CategoryRepository) GetByIDAndUserID(id, userID uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category failed: %w", err)
	}
	return &category, nil
}

// GetByNameAndUserID is the duplicate-name probe; soft-deleted categories
// do not block reuse of their name.
func (r *CategoryRepository) GetByNameAndUserID(name string, userID uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("name = ? AND user_id = ?", name, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category by name failed: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) Update(category *model.Category) error {
	if err := r.db.Save(category).Error; err != nil {
		return fmt.Errorf("update category failed: %w", err)
	}
	return nil
}

func (r *CategoryRepository) TouchUpdatedAt(id uint) error {
	if err := r.db.Model(&model.Category{}).Where("id = ?", id).
		Update("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch category failed: %w", err)
	}
	return nil
}

func (r *CategoryRepository) SoftDelete(id uint) error {
	if err := r.db.Where("id = ?", id).Delete(&model.Category{}).Error; err != nil {
		return fmt.Errorf("delete category failed: %w", err)
	}
	return nil
}
