// internal/models/store.go
package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Store struct {
	BaseModel
	Name        string    `json:"name" gorm:"size:100;not null"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	Logo        string    `json:"logo" gorm:"size:500"`
	Banner      string    `json:"banner" gorm:"size:500"`
	ThemeColor  string    `json:"theme_color" gorm:"size:20;default:'#000000'"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`

	// Relationships
	Owner    *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Products []Product `json:"products,omitempty" gorm:"foreignKey:StoreID"`
	Orders   []Order   `json:"orders,omitempty" gorm:"foreignKey:StoreID"`
}

// Slugs are always stored lowercase.
func (s *Store) BeforeSave(tx *gorm.DB) error {
	s.Slug = strings.ToLower(strings.TrimSpace(s.Slug))
	return nil
}
