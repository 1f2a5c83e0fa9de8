// internal/services/auth_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/config"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/utils"
)

type AuthService struct {
	db     *gorm.DB
	config *config.Config
}

func NewAuthService(db *gorm.DB, config *config.Config) *AuthService {
	return &AuthService{
		db:     db,
		config: config,
	}
}

type RegisterRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	StoreName string `json:"store_name" validate:"required,min=2,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	StoreSlug    string       `json:"store_slug,omitempty"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// Register creates a store owner and their store as one unit. A user without
// a store or a store without an owner never exists, even transiently.
func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("validation failed: %v", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	slug := utils.Slugify(req.StoreName)
	if slug == "" {
		return nil, apperrors.NewValidation("store name must contain letters or numbers")
	}

	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, apperrors.NewValidation("user already exists")
	}

	s.db.Model(&models.Store{}).Where("slug = ?", slug).Count(&count)
	if count > 0 {
		return nil, apperrors.NewValidation("store name already taken")
	}

	user := &models.User{
		Name:   req.Name,
		Email:  email,
		Role:   models.RoleStoreOwner,
		Status: models.UserStatusActive,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	store := &models.Store{
		Name:     req.StoreName,
		Slug:     slug,
		IsActive: true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		store.OwnerID = user.ID
		if err := tx.Create(store).Error; err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}

		user.StoreID = &store.ID
		if err := tx.Model(user).UpdateColumn("store_id", store.ID).Error; err != nil {
			return fmt.Errorf("failed to attach store to owner: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(user, store.Slug)
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("validation failed: %v", err)
	}

	var user models.User
	err := s.db.Preload("Store").
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewAuthentication("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, apperrors.NewAuthentication("invalid email or password")
	}

	if user.Status != models.UserStatusActive {
		return nil, apperrors.NewAuthorization("account is suspended")
	}

	storeSlug := ""
	if user.Store != nil {
		storeSlug = user.Store.Slug
	}

	return s.issueTokens(&user, storeSlug)
}

func (s *AuthService) RefreshToken(refreshToken string) (*AuthResponse, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.NewAuthentication("invalid refresh token")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, apperrors.NewAuthentication("invalid refresh token")
	}

	var user models.User
	if err := s.db.Preload("Store").First(&user, "id = ?", userID).Error; err != nil {
		return nil, apperrors.NewAuthentication("user not found")
	}

	if user.Status != models.UserStatusActive {
		return nil, apperrors.NewAuthorization("account is suspended")
	}

	storeSlug := ""
	if user.Store != nil {
		storeSlug = user.Store.Slug
	}

	return s.issueTokens(&user, storeSlug)
}

func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Store").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User, storeSlug string) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, string(user.Role), user.StoreID, s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.config.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		StoreSlug:    storeSlug,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
