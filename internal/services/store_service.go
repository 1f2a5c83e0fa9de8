// internal/services/store_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/tenant"
)

// StoreService is the tenant registry: slug-addressed store records and
// their owners.
type StoreService struct {
	db *gorm.DB
}

func NewStoreService(db *gorm.DB) *StoreService {
	return &StoreService{db: db}
}

type UpdateStoreRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty"`
	Logo        *string `json:"logo,omitempty"`
	Banner      *string `json:"banner,omitempty"`
	ThemeColor  *string `json:"theme_color,omitempty"`
}

// GetBySlug resolves a public storefront.
func (s *StoreService) GetBySlug(slug string) (*models.Store, error) {
	var store models.Store
	err := s.db.Where("slug = ? AND is_active = ?", strings.ToLower(slug), true).
		First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("store")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store: %w", err)
	}

	return &store, nil
}

// GetMyStore returns the caller's store record.
func (s *StoreService) GetMyStore(principal tenant.Principal) (*models.Store, error) {
	scope, err := principal.StoreScope()
	if err != nil {
		return nil, err
	}

	var store models.Store
	err = s.db.Scopes(scope).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("store")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store: %w", err)
	}

	return &store, nil
}

// UpdateSettings lets an owner change branding; the slug is fixed at
// registration.
func (s *StoreService) UpdateSettings(principal tenant.Principal, req *UpdateStoreRequest) (*models.Store, error) {
	store, err := s.GetMyStore(principal)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		store.Name = *req.Name
	}
	if req.Description != nil {
		store.Description = *req.Description
	}
	if req.Logo != nil {
		store.Logo = *req.Logo
	}
	if req.Banner != nil {
		store.Banner = *req.Banner
	}
	if req.ThemeColor != nil {
		store.ThemeColor = *req.ThemeColor
	}

	if err := s.db.Save(store).Error; err != nil {
		return nil, fmt.Errorf("failed to update store: %w", err)
	}

	return store, nil
}

// ListStores is the superadmin view of the tenant registry.
func (s *StoreService) ListStores(principal tenant.Principal) ([]models.Store, error) {
	if principal.Role != models.RoleSuperadmin {
		return nil, apperrors.NewAuthorization("only platform admins can list stores")
	}

	var stores []models.Store
	if err := s.db.Preload("Owner").Order("created_at DESC").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch stores: %w", err)
	}

	return stores, nil
}

// SetActive suspends or reactivates a store (superadmin action).
func (s *StoreService) SetActive(principal tenant.Principal, slug string, active bool) (*models.Store, error) {
	if principal.Role != models.RoleSuperadmin {
		return nil, apperrors.NewAuthorization("only platform admins can change store state")
	}

	var store models.Store
	err := s.db.Where("slug = ?", strings.ToLower(slug)).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("store")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store: %w", err)
	}

	store.IsActive = active
	if err := s.db.Model(&store).UpdateColumn("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update store: %w", err)
	}

	return &store, nil
}
