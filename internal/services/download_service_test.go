// internal/services/download_service_test.go
package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/tenant"
)

func digitalProductRows(id, storeID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "store_id", "title", "type", "digital_file"}).
		AddRow(id.String(), storeID.String(), "E-book", "digital", "digital/ebook.pdf")
}

func TestDownloadRejectsNonDigitalProduct(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDownloadService(db, nil)

	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+type = .+`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	principal := tenant.Principal{UserID: uuid.New(), Role: models.RoleCustomer}
	_, err := svc.GetDownloadLink(principal, uuid.New())

	var notFoundErr *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDownloadDeniedWithoutPurchase(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDownloadService(db, nil)

	productID := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+type = .+`).
		WillReturnRows(digitalProductRows(productID, uuid.New()))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	principal := tenant.Principal{UserID: uuid.New(), Role: models.RoleCustomer}
	_, err := svc.GetDownloadLink(principal, productID)

	var authzErr *apperrors.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDownloadDeniedForForeignStoreOwner(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDownloadService(db, nil)

	productID := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+type = .+`).
		WillReturnRows(digitalProductRows(productID, uuid.New()))

	otherStore := uuid.New()
	principal := tenant.Principal{UserID: uuid.New(), Role: models.RoleStoreOwner, StoreID: &otherStore}
	_, err := svc.GetDownloadLink(principal, productID)

	var authzErr *apperrors.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}
