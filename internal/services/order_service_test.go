// internal/services/order_service_test.go
package services

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
	"github.com/shopora/shopora-backend/internal/config"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/tenant"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return db, mock
}

func newTestOrderService(t *testing.T) (*OrderService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	cfg := &config.Config{
		Payment: config.PaymentConfig{PlatformFeePercent: 10.0},
	}
	return NewOrderService(db, NewCartService(db), cfg), mock
}

func productRows(id, storeID uuid.UUID, title string, price float64, productType models.ProductType, stock interface{}) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "store_id", "title", "price", "type", "stock", "is_published"})
	return rows.AddRow(id.String(), storeID.String(), title, price, string(productType), stock, true)
}

// Expectations shared by every successful checkout: the order and item
// inserts are plain execs, and the committed order is followed by a cart
// lookup.
func expectOrderInsert(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`INSERT INTO "orders"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "order_items"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectCartClear(mock sqlmock.Sqlmock) {
	// No cart row is fine; the clear is best-effort.
	mock.ExpectQuery(`SELECT .+ FROM "carts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))
}

func TestPlaceOrderCODPhysical(t *testing.T) {
	svc, mock := newTestOrderService(t)

	customerID := uuid.New()
	productID := uuid.New()
	storeID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+ FOR UPDATE`).
		WillReturnRows(productRows(productID, storeID, "Ceramic Mug", 20.00, models.ProductTypePhysical, 5))
	mock.ExpectExec(`UPDATE "products" SET "stock"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectOrderInsert(mock)
	mock.ExpectCommit()
	expectCartClear(mock)

	order, err := svc.PlaceOrder(customerID, &PlaceOrderRequest{
		Items:         []PlaceOrderItem{{ProductID: productID, Quantity: 2}},
		PaymentMethod: "COD",
		ShippingAddress: &models.ShippingAddress{
			Name: "Dana Reyes", Phone: "555-0101", Address: "12 Elm St", City: "Springfield",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, customerID, order.UserID)
	assert.Equal(t, storeID, order.StoreID)
	assert.Equal(t, 40.0, order.TotalAmount)
	assert.Equal(t, models.OrderStatusProcessing, order.OrderStatus)
	assert.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Ceramic Mug", order.Items[0].Name)
	assert.Equal(t, 20.0, order.Items[0].UnitPrice)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderStripeDigital(t *testing.T) {
	svc, mock := newTestOrderService(t)

	customerID := uuid.New()
	productID := uuid.New()
	storeID := uuid.New()

	// Digital products carry no stock; no decrement must be issued.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+ FOR UPDATE`).
		WillReturnRows(productRows(productID, storeID, "E-book", 12.99, models.ProductTypeDigital, nil))
	expectOrderInsert(mock)
	mock.ExpectCommit()
	expectCartClear(mock)

	order, err := svc.PlaceOrder(customerID, &PlaceOrderRequest{
		Items:         []PlaceOrderItem{{ProductID: productID, Quantity: 1}},
		PaymentMethod: "stripe",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, models.PaymentMethodStripe, order.PaymentMethod)
	assert.InDelta(t, 12.99, order.TotalAmount, 0.0001)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderDefaultsToCOD(t *testing.T) {
	svc, mock := newTestOrderService(t)

	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+ FOR UPDATE`).
		WillReturnRows(productRows(productID, uuid.New(), "E-book", 5.00, models.ProductTypeDigital, nil))
	expectOrderInsert(mock)
	mock.ExpectCommit()
	expectCartClear(mock)

	order, err := svc.PlaceOrder(uuid.New(), &PlaceOrderRequest{
		Items: []PlaceOrderItem{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	assert.Equal(t, models.OrderStatusProcessing, order.OrderStatus)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderRejectsMultipleStores(t *testing.T) {
	svc, mock := newTestOrderService(t)

	p1 := uuid.New()
	p2 := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+ FOR UPDATE`).
		WillReturnRows(productRows(p1, uuid.New(), "E-book", 5.00, models.ProductTypeDigital, nil))
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+ FOR UPDATE`).
		WillReturnRows(productRows(p2, uuid.New(), "Poster", 9.00, models.ProductTypeDigital, nil))
	mock.ExpectRollback()

	_, err := svc.PlaceOrder(uuid.New(), &PlaceOrderRequest{
		Items: []PlaceOrderItem{
			{ProductID: p1, Quantity: 1},
			{ProductID: p2, Quantity: 1},
		},
	})

	var multiStoreErr *apperrors.MultiStoreViolation
	require.ErrorAs(t, err, &multiStoreErr)
	assert.Equal(t, "Poster", multiStoreErr.Product)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	svc, mock := newTestOrderService(t)

	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+ FOR UPDATE`).
		WillReturnRows(productRows(productID, uuid.New(), "Ceramic Mug", 20.00, models.ProductTypePhysical, 1))
	mock.ExpectRollback()

	_, err := svc.PlaceOrder(uuid.New(), &PlaceOrderRequest{
		Items: []PlaceOrderItem{{ProductID: productID, Quantity: 2}},
	})

	var stockErr *apperrors.InsufficientStock
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Ceramic Mug", stockErr.Product)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// The conditional UPDATE is the last line of defense: the locked read said
// the stock was there, but the decrement matched no row.
func TestPlaceOrderStockDecrementRace(t *testing.T) {
	svc, mock := newTestOrderService(t)

	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+ FOR UPDATE`).
		WillReturnRows(productRows(productID, uuid.New(), "Ceramic Mug", 20.00, models.ProductTypePhysical, 5))
	mock.ExpectExec(`UPDATE "products" SET "stock"=`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.PlaceOrder(uuid.New(), &PlaceOrderRequest{
		Items: []PlaceOrderItem{{ProductID: productID, Quantity: 2}},
	})

	var stockErr *apperrors.InsufficientStock
	require.ErrorAs(t, err, &stockErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	svc, mock := newTestOrderService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "products" WHERE .+ FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.PlaceOrder(uuid.New(), &PlaceOrderRequest{
		Items: []PlaceOrderItem{{ProductID: uuid.New(), Quantity: 1}},
	})

	var notFoundErr *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, mock := newTestOrderService(t)

	var validationErr *apperrors.ValidationError

	_, err := svc.PlaceOrder(uuid.New(), &PlaceOrderRequest{})
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.PlaceOrder(uuid.New(), &PlaceOrderRequest{
		Items: []PlaceOrderItem{{ProductID: uuid.New(), Quantity: 0}},
	})
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.PlaceOrder(uuid.New(), &PlaceOrderRequest{
		Items:         []PlaceOrderItem{{ProductID: uuid.New(), Quantity: 1}},
		PaymentMethod: "wire_transfer",
	})
	require.ErrorAs(t, err, &validationErr)

	// None of the rejections may touch the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusDeliveredSettlesCOD(t *testing.T) {
	svc, mock := newTestOrderService(t)

	orderID := uuid.New()
	storeID := uuid.New()
	principal := tenant.Principal{UserID: uuid.New(), Role: models.RoleStoreOwner, StoreID: &storeID}

	mock.ExpectQuery(`SELECT .+ FROM "orders" WHERE .+store_id.+`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "order_status", "payment_method", "payment_status"}).
			AddRow(orderID.String(), storeID.String(), "shipped", "cod", "pending"))
	mock.ExpectQuery(`SELECT .+ FROM "order_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "unit_price", "quantity"}).
			AddRow(uuid.New().String(), orderID.String(), uuid.New().String(), "Ceramic Mug", 20.0, 2))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.UpdateOrderStatus(principal, orderID, models.OrderStatusDelivered)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusDelivered, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.NotNil(t, order.DeliveredAt)
	assert.NotNil(t, order.PaidAt)
	assert.Equal(t, 40.0, order.TotalAmount)

	// Settling at the door records the same split the gateway path would.
	assert.Equal(t, 4.0, order.PlatformFee)
	assert.Equal(t, 36.0, order.StoreEarning)
	assert.Equal(t, order.TotalAmount, order.PlatformFee+order.StoreEarning)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusTerminal(t *testing.T) {
	svc, mock := newTestOrderService(t)

	orderID := uuid.New()
	storeID := uuid.New()
	principal := tenant.Principal{UserID: uuid.New(), Role: models.RoleStoreOwner, StoreID: &storeID}

	mock.ExpectQuery(`SELECT .+ FROM "orders" WHERE .+store_id.+`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "order_status", "payment_method", "payment_status"}).
			AddRow(orderID.String(), storeID.String(), "cancelled", "cod", "pending"))
	mock.ExpectQuery(`SELECT .+ FROM "order_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.UpdateOrderStatus(principal, orderID, models.OrderStatusShipped)

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCanonicalPaymentMethod(t *testing.T) {
	cases := map[string]models.PaymentMethod{
		"":        models.PaymentMethodCOD,
		"cod":     models.PaymentMethodCOD,
		"COD":     models.PaymentMethodCOD,
		" Stripe": models.PaymentMethodStripe,
		"stripe":  models.PaymentMethodStripe,
	}
	for raw, want := range cases {
		got, err := canonicalPaymentMethod(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := canonicalPaymentMethod("paypal")
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
