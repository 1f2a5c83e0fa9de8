// internal/tenant/principal_test.go
package tenant

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/models"
)

func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return db.Session(&gorm.Session{DryRun: true})
}

func orderSQL(t *testing.T, db *gorm.DB, scope Scope) string {
	t.Helper()
	var orders []models.Order
	stmt := db.Scopes(func(d *gorm.DB) *gorm.DB { return scope(d) }).
		Find(&orders).Statement
	return stmt.SQL.String()
}

func TestRequireStore(t *testing.T) {
	storeID := uuid.New()
	p := Principal{UserID: uuid.New(), Role: models.RoleStoreOwner, StoreID: &storeID}

	got, err := p.RequireStore()
	require.NoError(t, err)
	assert.Equal(t, storeID, got)
}

func TestRequireStoreMissing(t *testing.T) {
	var authzErr *apperrors.AuthorizationError

	p := Principal{UserID: uuid.New(), Role: models.RoleStoreOwner}
	_, err := p.RequireStore()
	require.ErrorAs(t, err, &authzErr)

	nilID := uuid.Nil
	p.StoreID = &nilID
	_, err = p.RequireStore()
	require.ErrorAs(t, err, &authzErr)
}

func TestOrderScopeStoreOwner(t *testing.T) {
	db := newDryRunDB(t)
	storeID := uuid.New()
	p := Principal{UserID: uuid.New(), Role: models.RoleStoreOwner, StoreID: &storeID}

	scope, err := p.OrderScope()
	require.NoError(t, err)

	assert.Contains(t, orderSQL(t, db, scope), "orders.store_id")
}

func TestOrderScopeCustomer(t *testing.T) {
	db := newDryRunDB(t)
	p := Principal{UserID: uuid.New(), Role: models.RoleCustomer}

	scope, err := p.OrderScope()
	require.NoError(t, err)

	assert.Contains(t, orderSQL(t, db, scope), "orders.user_id")
}

func TestOrderScopeSuperadmin(t *testing.T) {
	db := newDryRunDB(t)
	p := Principal{UserID: uuid.New(), Role: models.RoleSuperadmin}

	scope, err := p.OrderScope()
	require.NoError(t, err)

	sql := orderSQL(t, db, scope)
	assert.NotContains(t, sql, "orders.store_id")
	assert.NotContains(t, sql, "orders.user_id")
}

// A store owner token without a store id must fail hard, not degrade to an
// empty result set.
func TestOrderScopeStoreOwnerWithoutStore(t *testing.T) {
	var authzErr *apperrors.AuthorizationError

	p := Principal{UserID: uuid.New(), Role: models.RoleStoreOwner}
	_, err := p.OrderScope()
	require.ErrorAs(t, err, &authzErr)
}

func TestProductScopeCustomerDenied(t *testing.T) {
	var authzErr *apperrors.AuthorizationError

	p := Principal{UserID: uuid.New(), Role: models.RoleCustomer}
	_, err := p.ProductScope()
	require.ErrorAs(t, err, &authzErr)
}

func TestStoreScopeCustomerDenied(t *testing.T) {
	var authzErr *apperrors.AuthorizationError

	p := Principal{UserID: uuid.New(), Role: models.RoleCustomer}
	_, err := p.StoreScope()
	require.ErrorAs(t, err, &authzErr)
}

func TestOrderScopeUnknownRole(t *testing.T) {
	var authzErr *apperrors.AuthorizationError

	p := Principal{UserID: uuid.New(), Role: models.UserRole("robot")}
	_, err := p.OrderScope()
	require.ErrorAs(t, err, &authzErr)
}
