// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingAddress is embedded on the order; nil-equivalent when every field
// is empty (digital-only orders).
type ShippingAddress struct {
	Name    string `json:"name" gorm:"column:shipping_name;size:100"`
	Phone   string `json:"phone" gorm:"column:shipping_phone;size:30"`
	Address string `json:"address" gorm:"column:shipping_address;size:255"`
	City    string `json:"city" gorm:"column:shipping_city;size:100"`
}

type Order struct {
	BaseModel
	UserID  uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	StoreID uuid.UUID `json:"store_id" gorm:"type:uuid;not null;index:idx_orders_store_created;index:idx_orders_store_payment"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty" gorm:"embedded"`

	TotalAmount float64 `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Currency    string  `json:"currency" gorm:"size:10;default:'usd'"`

	OrderStatus OrderStatus `json:"order_status" gorm:"type:varchar(20);default:'pending';index"`

	PaymentMethod     PaymentMethod `json:"payment_method" gorm:"type:varchar(20);default:'cod'"`
	PaymentStatus     PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'unpaid';index:idx_orders_store_payment"`
	PaymentGateway    string        `json:"payment_gateway,omitempty" gorm:"size:50"`
	PaymentIntentID   string        `json:"payment_intent_id,omitempty" gorm:"size:255"`
	CheckoutSessionID string        `json:"checkout_session_id,omitempty" gorm:"size:255"`

	PlatformFee  float64 `json:"platform_fee" gorm:"type:decimal(10,2);default:0"`
	StoreEarning float64 `json:"store_earning" gorm:"type:decimal(10,2);default:0"`

	InvoiceNumber *string `json:"invoice_number,omitempty" gorm:"uniqueIndex;size:50"`

	PaidAt      *time.Time `json:"paid_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	// Relationships
	User  *User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Store *Store `json:"store,omitempty" gorm:"foreignKey:StoreID"`
}

// OrderItem is a snapshot taken at order time; later catalog edits never
// touch it.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	UnitPrice float64   `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
}

// ComputeTotal derives the order total from its snapshotted line items. It
// is called at every construction and update site; the total is never taken
// from a caller.
func ComputeTotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// SplitRevenue divides a settled total between the platform commission and
// the store's share. Every settlement path goes through it so the two parts
// always sum back to the total.
func SplitRevenue(total, feePercent float64) (platformFee, storeEarning float64) {
	platformFee = total * (feePercent / 100)
	return platformFee, total - platformFee
}
