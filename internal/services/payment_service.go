// internal/services/payment_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/refund"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/gorm"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/config"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/tenant"
)

type PaymentService struct {
	db     *gorm.DB
	config *config.Config
}

type CheckoutSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

type RefundRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Reason  string    `json:"reason" validate:"required"`
}

func NewPaymentService(db *gorm.DB, config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:     db,
		config: config,
	}
}

// amountInCents converts a decimal price to the gateway's integer minor
// unit. Rounding, not truncation: 19.99 must become 1999, never 1998.
func amountInCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateCheckoutSession opens a Stripe checkout session for a previously
// placed stripe-method order. The order id rides along as session metadata;
// it is the correlation id the webhook uses to find the order again.
func (s *PaymentService) CreateCheckoutSession(principal tenant.Principal, orderID uuid.UUID) (*CheckoutSessionResponse, error) {
	scope, err := principal.OrderScope()
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.db.Scopes(scope).Preload("Items").
		Where("orders.id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("order")
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, apperrors.NewValidation("order is already paid")
	}
	if order.PaymentMethod != models.PaymentMethodStripe {
		return nil, apperrors.NewValidation("order is not payable through stripe")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(order.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(amountInCents(item.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(s.config.Frontend.BaseURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(s.config.Frontend.BaseURL + "/checkout"),
	}
	params.AddMetadata("order_id", order.ID.String())

	checkoutSession, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.db.Model(&models.Order{}).Where("id = ?", order.ID).
		UpdateColumn("checkout_session_id", checkoutSession.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to store checkout session id: %w", err)
	}

	return &CheckoutSessionResponse{
		URL:       checkoutSession.URL,
		SessionID: checkoutSession.ID,
	}, nil
}

// HandleWebhook reconciles an asynchronous provider event against the order
// ledger. The signature check is the sole authentication for this entry
// point; everything after it must be safe to run more than once.
func (s *PaymentService) HandleWebhook(payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.config.Payment.StripeWebhookSecret)
	if err != nil {
		return &apperrors.SignatureVerificationError{Err: err}
	}

	if event.Type != "checkout.session.completed" {
		return nil
	}

	var checkoutSession stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
		return fmt.Errorf("failed to parse checkout session event: %w", err)
	}

	orderID, err := uuid.Parse(checkoutSession.Metadata["order_id"])
	if err != nil {
		// Not one of ours; acknowledge so the provider stops retrying.
		logrus.WithField("session_id", checkoutSession.ID).
			Warn("Checkout session completed without an order_id")
		return nil
	}

	paymentIntentID := ""
	if checkoutSession.PaymentIntent != nil {
		paymentIntentID = checkoutSession.PaymentIntent.ID
	}

	return s.settleOrder(orderID, paymentIntentID)
}

func (s *PaymentService) settleOrder(orderID uuid.UUID, paymentIntentID string) error {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("order_id", orderID.String()).
				Warn("Payment event for unknown order")
			return nil
		}
		return fmt.Errorf("failed to fetch order: %w", err)
	}

	commission, storeEarning := models.SplitRevenue(order.TotalAmount, s.config.Payment.PlatformFeePercent)
	now := time.Now()

	// Conditional update is the idempotency guard: duplicate deliveries all
	// reach this point, exactly one performs the write. Refunded orders are
	// excluded so a late redelivery can never reverse a refund.
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND payment_status NOT IN ?", order.ID,
			[]models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusRefunded}).
		Updates(map[string]interface{}{
			"payment_status":    models.PaymentStatusPaid,
			"payment_gateway":   "stripe",
			"payment_intent_id": paymentIntentID,
			"platform_fee":      commission,
			"store_earning":     storeEarning,
			"paid_at":           now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to settle order: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		logrus.WithField("order_id", order.ID.String()).
			Info("Duplicate payment event ignored; order already settled")
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"order_id":      order.ID.String(),
		"platform_fee":  commission,
		"store_earning": storeEarning,
	}).Info("Order settled")

	return nil
}

// Refund reverses a paid order through the gateway. Inventory is not
// restocked and the recorded revenue split is left as settled; restocking
// is a catalog action.
func (s *PaymentService) Refund(principal tenant.Principal, req *RefundRequest) (*models.Order, error) {
	if principal.Role != models.RoleSuperadmin {
		return nil, apperrors.NewAuthorization("only platform admins can process refunds")
	}

	var order models.Order
	if err := s.db.First(&order, "id = ?", req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("order")
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	if order.PaymentStatus != models.PaymentStatusPaid {
		return nil, apperrors.NewValidation("can only refund paid orders")
	}

	if order.PaymentIntentID != "" {
		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(order.PaymentIntentID),
			Reason:        stripe.String("requested_by_customer"),
		}
		if _, err := refund.New(params); err != nil {
			return nil, fmt.Errorf("failed to process refund: %w", err)
		}
	}

	now := time.Now()
	if err := s.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusRefunded,
			"refunded_at":    now,
		}).Error; err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	order.PaymentStatus = models.PaymentStatusRefunded
	order.RefundedAt = &now
	return &order, nil
}
