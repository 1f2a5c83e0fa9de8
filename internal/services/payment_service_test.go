// internal/services/payment_service_test.go
package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/config"
)

const testWebhookSecret = "whsec_test_secret"

func newTestPaymentService(t *testing.T) (*PaymentService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	cfg := &config.Config{
		Payment: config.PaymentConfig{
			StripeWebhookSecret: testWebhookSecret,
			PlatformFeePercent:  10.0,
		},
	}
	return NewPaymentService(db, cfg), mock
}

func signWebhookPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutCompletedPayload(orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"payment_intent": {"id": "pi_test_1"},
				"metadata": {"order_id": "%s"}
			}
		}
	}`, orderID))
}

func TestHandleWebhookSettlesOrder(t *testing.T) {
	svc, mock := newTestPaymentService(t)

	orderID := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM "orders" WHERE id = .+`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total_amount", "payment_status"}).
			AddRow(orderID.String(), 100.0, "unpaid"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET`).
		WithArgs(
			sqlmock.AnyArg(), // paid_at
			"stripe",
			"pi_test_1",
			"paid",
			10.0, // platform fee at 10%
			90.0, // store earning
			sqlmock.AnyArg(), // updated_at
			orderID,
			"paid",
			"refunded",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payload := checkoutCompletedPayload(orderID.String())
	err := svc.HandleWebhook(payload, signWebhookPayload(payload, testWebhookSecret))
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Redelivered events reach the conditional update and match no row; the
// handler still acknowledges.
func TestHandleWebhookDuplicateDelivery(t *testing.T) {
	svc, mock := newTestPaymentService(t)

	orderID := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM "orders" WHERE id = .+`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total_amount", "payment_status"}).
			AddRow(orderID.String(), 100.0, "paid"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	payload := checkoutCompletedPayload(orderID.String())
	err := svc.HandleWebhook(payload, signWebhookPayload(payload, testWebhookSecret))
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A redelivery that arrives after an admin refund must leave the refund in
// place; the conditional update matches no row.
func TestHandleWebhookAfterRefund(t *testing.T) {
	svc, mock := newTestPaymentService(t)

	orderID := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM "orders" WHERE id = .+`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total_amount", "payment_status"}).
			AddRow(orderID.String(), 100.0, "refunded"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET`).
		WithArgs(
			sqlmock.AnyArg(), // paid_at
			"stripe",
			"pi_test_1",
			"paid",
			10.0,
			90.0,
			sqlmock.AnyArg(), // updated_at
			orderID,
			"paid",
			"refunded",
		).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	payload := checkoutCompletedPayload(orderID.String())
	err := svc.HandleWebhook(payload, signWebhookPayload(payload, testWebhookSecret))
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAmountInCents(t *testing.T) {
	assert.Equal(t, int64(1999), amountInCents(19.99))
	assert.Equal(t, int64(1000), amountInCents(10.00))
	assert.Equal(t, int64(5), amountInCents(0.049))
	assert.Equal(t, int64(0), amountInCents(0))
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	svc, mock := newTestPaymentService(t)

	payload := checkoutCompletedPayload(uuid.New().String())
	err := svc.HandleWebhook(payload, signWebhookPayload(payload, "whsec_wrong_secret"))

	var sigErr *apperrors.SignatureVerificationError
	require.ErrorAs(t, err, &sigErr)

	// Nothing may be written on a failed signature check.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhookTamperedPayload(t *testing.T) {
	svc, mock := newTestPaymentService(t)

	payload := checkoutCompletedPayload(uuid.New().String())
	header := signWebhookPayload(payload, testWebhookSecret)
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '

	err := svc.HandleWebhook(tampered, header)

	var sigErr *apperrors.SignatureVerificationError
	require.ErrorAs(t, err, &sigErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	svc, mock := newTestPaymentService(t)

	payload := []byte(`{
		"id": "evt_2",
		"api_version": "2022-11-15",
		"type": "payment_intent.created",
		"data": {"object": {"id": "pi_test_2"}}
	}`)
	err := svc.HandleWebhook(payload, signWebhookPayload(payload, testWebhookSecret))
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A completed session without our correlation id is not one of ours;
// acknowledge so the provider stops retrying.
func TestHandleWebhookMissingOrderID(t *testing.T) {
	svc, mock := newTestPaymentService(t)

	payload := []byte(`{
		"id": "evt_3",
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_3", "metadata": {}}}
	}`)
	err := svc.HandleWebhook(payload, signWebhookPayload(payload, testWebhookSecret))
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	svc, mock := newTestPaymentService(t)

	mock.ExpectQuery(`SELECT .+ FROM "orders" WHERE id = .+`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	payload := checkoutCompletedPayload(uuid.New().String())
	err := svc.HandleWebhook(payload, signWebhookPayload(payload, testWebhookSecret))
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
