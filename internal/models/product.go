// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Product struct {
	BaseModel
	StoreID     uuid.UUID      `json:"store_id" gorm:"type:uuid;not null;index:idx_products_store_slug,unique"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Slug        string         `json:"slug" gorm:"size:255;not null;index:idx_products_store_slug,unique"`
	Description string         `json:"description" gorm:"type:text"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2);not null"`
	Type        ProductType    `json:"type" gorm:"type:varchar(20);not null;index"`
	Images      pq.StringArray `json:"images" gorm:"type:text[]"`
	DigitalFile string         `json:"digital_file,omitempty" gorm:"size:500"`
	Stock       *int           `json:"stock" gorm:""`
	IsPublished bool           `json:"is_published" gorm:"default:true;index"`

	// Relationships
	Store *Store `json:"store,omitempty" gorm:"foreignKey:StoreID"`
}

// Digital products never carry stock; physical products always do.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Type == ProductTypeDigital {
		p.Stock = nil
	} else if p.Stock == nil {
		zero := 0
		p.Stock = &zero
	}
	return nil
}
