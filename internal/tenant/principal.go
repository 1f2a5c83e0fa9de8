// internal/tenant/principal.go
package tenant

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/models"
)

// Principal is the caller's resolved identity and tenant scope. It is built
// exactly once per request by the auth middleware and passed into every core
// operation; handlers and services never reach back into request context for
// identity.
type Principal struct {
	UserID  uuid.UUID
	Role    models.UserRole
	StoreID *uuid.UUID
}

type Scope func(*gorm.DB) *gorm.DB

func unscoped(db *gorm.DB) *gorm.DB { return db }

// RequireStore returns the principal's store id or an authorization error.
// A store-owner token without a store id is a hard failure, never an empty
// result set.
func (p Principal) RequireStore() (uuid.UUID, error) {
	if p.StoreID == nil || *p.StoreID == uuid.Nil {
		return uuid.Nil, apperrors.NewAuthorization("no store attached to this account")
	}
	return *p.StoreID, nil
}

// OrderScope restricts order queries to the caller's tenant: store owners
// see their store's orders, customers their own, superadmins everything.
// Every order query in the services composes with this scope; there is no
// way to build an unscoped order query for a scoped role.
func (p Principal) OrderScope() (Scope, error) {
	switch p.Role {
	case models.RoleSuperadmin:
		return unscoped, nil
	case models.RoleStoreOwner:
		storeID, err := p.RequireStore()
		if err != nil {
			return nil, err
		}
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("orders.store_id = ?", storeID)
		}, nil
	case models.RoleCustomer:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("orders.user_id = ?", p.UserID)
		}, nil
	}
	return nil, apperrors.NewAuthorization("unknown role")
}

// ProductScope restricts catalog writes and owner reads to the caller's
// store. Customers have no product scope; storefront reads go through the
// published-only public queries instead.
func (p Principal) ProductScope() (Scope, error) {
	switch p.Role {
	case models.RoleSuperadmin:
		return unscoped, nil
	case models.RoleStoreOwner:
		storeID, err := p.RequireStore()
		if err != nil {
			return nil, err
		}
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("products.store_id = ?", storeID)
		}, nil
	}
	return nil, apperrors.NewAuthorization("catalog access requires a store role")
}

// StoreScope restricts store-record access to the caller's own store.
func (p Principal) StoreScope() (Scope, error) {
	switch p.Role {
	case models.RoleSuperadmin:
		return unscoped, nil
	case models.RoleStoreOwner:
		storeID, err := p.RequireStore()
		if err != nil {
			return nil, err
		}
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("stores.id = ?", storeID)
		}, nil
	}
	return nil, apperrors.NewAuthorization("store access requires a store role")
}
