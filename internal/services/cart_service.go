// internal/services/cart_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/models"
)

// CartService owns the per-customer cart. Carts are created lazily on the
// first add and survive checkout with their items emptied.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

func (s *CartService) GetCart(userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.Preload("Items").Preload("Items.Product").
		Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// An absent cart reads as an empty one.
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}

	return &cart, nil
}

func (s *CartService) AddItem(userID uuid.UUID, req *AddToCartRequest) (*models.Cart, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.NewValidation("quantity must be positive")
	}

	var product models.Product
	if err := s.db.Where("id = ? AND is_published = ?", req.ProductID, true).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("product")
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cart = models.Cart{UserID: userID}
			if err := tx.Create(&cart).Error; err != nil {
				return fmt.Errorf("failed to create cart: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to fetch cart: %w", err)
		}

		var item models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, req.ProductID).
			First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item = models.CartItem{
				CartID:    cart.ID,
				ProductID: req.ProductID,
				Quantity:  req.Quantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to fetch cart item: %w", err)
		}

		return tx.Model(&item).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", req.Quantity)).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(userID)
}

func (s *CartService) RemoveItem(userID uuid.UUID, productID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := s.db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("cart")
		}
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}

	if err := s.db.Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		Delete(&models.CartItem{}).Error; err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	return s.GetCart(userID)
}

// Clear empties the cart without deleting it. Called after a successful
// checkout.
func (s *CartService) Clear(userID uuid.UUID) error {
	var cart models.Cart
	err := s.db.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch cart: %w", err)
	}

	if err := s.db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
