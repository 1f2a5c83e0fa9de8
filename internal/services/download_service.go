// internal/services/download_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/tenant"
)

const downloadLinkTTL = 15 * time.Minute

// DownloadService gates access to digital product files: a customer needs a
// paid order containing the product, owners and platform admins pass
// directly.
type DownloadService struct {
	db      *gorm.DB
	storage *StorageService
}

func NewDownloadService(db *gorm.DB, storage *StorageService) *DownloadService {
	return &DownloadService{
		db:      db,
		storage: storage,
	}
}

type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *DownloadService) GetDownloadLink(principal tenant.Principal, productID uuid.UUID) (*DownloadLink, error) {
	var product models.Product
	err := s.db.Where("id = ? AND type = ?", productID, models.ProductTypeDigital).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("digital product")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}

	if product.DigitalFile == "" {
		return nil, apperrors.NewNotFound("digital file")
	}

	if err := s.authorize(principal, &product); err != nil {
		return nil, err
	}

	url, err := s.storage.GeneratePresignedURL(product.DigitalFile, downloadLinkTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate download link: %w", err)
	}

	return &DownloadLink{
		URL:       url,
		ExpiresAt: time.Now().Add(downloadLinkTTL),
	}, nil
}

func (s *DownloadService) authorize(principal tenant.Principal, product *models.Product) error {
	if principal.Role == models.RoleSuperadmin {
		return nil
	}

	if principal.Role == models.RoleStoreOwner {
		storeID, err := principal.RequireStore()
		if err != nil {
			return err
		}
		if storeID == product.StoreID {
			return nil
		}
		return apperrors.NewAuthorization("product belongs to a different store")
	}

	// Customers must hold a paid order for this product.
	var count int64
	err := s.db.Model(&models.Order{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND orders.payment_status = ?", principal.UserID, models.PaymentStatusPaid).
		Where("order_items.product_id = ?", product.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check purchase: %w", err)
	}

	if count == 0 {
		return apperrors.NewAuthorization("you have not purchased this product")
	}

	return nil
}
