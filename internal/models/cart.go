// internal/models/cart.go
package models

import (
	"github.com/google/uuid"
)

// Cart is created lazily on the first add and is never deleted; checkout
// empties its items.
type Cart struct {
	BaseModel
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`

	Items []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

type CartItem struct {
	BaseModel
	CartID    uuid.UUID `json:"cart_id" gorm:"type:uuid;not null;index:idx_cart_items_cart_product,unique"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:idx_cart_items_cart_product,unique"`
	Quantity  int       `json:"quantity" gorm:"not null"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
