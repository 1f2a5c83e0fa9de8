// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/cache"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/tenant"
	"github.com/shopora/shopora-backend/internal/utils"
)

// ProductService manages the catalog. All owner-side operations compose
// with the tenant scope; public storefront reads are published-only and go
// through the redis cache.
type ProductService struct {
	db    *gorm.DB
	cache *cache.ProductCache
}

func NewProductService(db *gorm.DB, productCache *cache.ProductCache) *ProductService {
	return &ProductService{
		db:    db,
		cache: productCache,
	}
}

type CreateProductRequest struct {
	Title       string   `json:"title" validate:"required,min=2,max=255"`
	Slug        string   `json:"slug,omitempty" validate:"omitempty,slug"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price" validate:"min=0"`
	Type        string   `json:"type" validate:"required,oneof=digital physical"`
	Images      []string `json:"images,omitempty"`
	DigitalFile string   `json:"digital_file,omitempty"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,min=0"`
	IsPublished *bool    `json:"is_published,omitempty"`
}

type UpdateProductRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=2,max=255"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,min=0"`
	Images      []string `json:"images,omitempty"`
	DigitalFile *string  `json:"digital_file,omitempty"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,min=0"`
	IsPublished *bool    `json:"is_published,omitempty"`
}

func (s *ProductService) CreateProduct(principal tenant.Principal, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("validation failed: %v", err)
	}

	storeID, err := principal.RequireStore()
	if err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(req.Title)
	}

	var count int64
	s.db.Model(&models.Product{}).
		Where("store_id = ? AND slug = ?", storeID, slug).Count(&count)
	if count > 0 {
		return nil, apperrors.NewValidation("a product with slug %q already exists in this store", slug)
	}

	product := &models.Product{
		StoreID:     storeID,
		Title:       req.Title,
		Slug:        slug,
		Description: req.Description,
		Price:       req.Price,
		Type:        models.ProductType(strings.ToLower(req.Type)),
		Images:      pq.StringArray(req.Images),
		DigitalFile: req.DigitalFile,
		Stock:       req.Stock,
		IsPublished: true,
	}
	if req.IsPublished != nil {
		product.IsPublished = *req.IsPublished
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidateStorefront(storeID)
	return product, nil
}

func (s *ProductService) UpdateProduct(principal tenant.Principal, productID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("validation failed: %v", err)
	}

	product, err := s.getScopedProduct(principal, productID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		product.Title = *req.Title
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Images != nil {
		product.Images = pq.StringArray(req.Images)
	}
	if req.DigitalFile != nil {
		product.DigitalFile = *req.DigitalFile
	}
	if req.Stock != nil {
		product.Stock = req.Stock
	}
	if req.IsPublished != nil {
		product.IsPublished = *req.IsPublished
	}

	if err := s.db.Save(product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidateStorefront(product.StoreID)
	return product, nil
}

func (s *ProductService) DeleteProduct(principal tenant.Principal, productID uuid.UUID) error {
	product, err := s.getScopedProduct(principal, productID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(product).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.invalidateStorefront(product.StoreID)
	return nil
}

// GetMyProducts lists the owner's catalog, published or not.
func (s *ProductService) GetMyProducts(principal tenant.Principal, params utils.PaginationParams) ([]models.Product, int64, error) {
	scope, err := principal.ProductScope()
	if err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Product{}).Scopes(scope)
	if params.Search != "" {
		query = query.Where("title ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"created_at", "price", "title"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

// GetStorefront returns a store's published products for public browsing,
// redis-cached.
func (s *ProductService) GetStorefront(ctx context.Context, storeSlug string) ([]models.Product, error) {
	var store models.Store
	err := s.db.Where("slug = ? AND is_active = ?", strings.ToLower(storeSlug), true).
		First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("store")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store: %w", err)
	}

	if s.cache != nil {
		if products, err := s.cache.GetStorefront(ctx, store.ID.String()); err == nil {
			return products, nil
		}
	}

	var products []models.Product
	if err := s.db.Where("store_id = ? AND is_published = ?", store.ID, true).
		Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetStorefront(ctx, store.ID.String(), products); err != nil {
			logrus.WithError(err).Debug("Failed to cache storefront listing")
		}
	}

	return products, nil
}

// GetStorefrontProduct resolves a single published product by store slug and
// product slug.
func (s *ProductService) GetStorefrontProduct(storeSlug, productSlug string) (*models.Product, error) {
	var product models.Product
	err := s.db.
		Joins("JOIN stores ON stores.id = products.store_id").
		Where("stores.slug = ? AND stores.is_active = ?", strings.ToLower(storeSlug), true).
		Where("products.slug = ? AND products.is_published = ?", strings.ToLower(productSlug), true).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("product")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}

	return &product, nil
}

func (s *ProductService) getScopedProduct(principal tenant.Principal, productID uuid.UUID) (*models.Product, error) {
	scope, err := principal.ProductScope()
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = s.db.Scopes(scope).Where("products.id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("product")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}

	return &product, nil
}

func (s *ProductService) invalidateStorefront(storeID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStorefront(context.Background(), storeID.String()); err != nil {
		logrus.WithError(err).Debug("Failed to invalidate storefront cache")
	}
}
