package model

import (
	"time"

	"gorm.io/gorm"
)

type Chat struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	CategoryID *uint          `gorm:"index" json:"category_id"`
	Title      string         `gorm:"size:256;not null" json:"title"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
