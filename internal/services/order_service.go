// internal/services/order_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopora/shopora-backend/internal/apperrors"
	"github.com/shopora/shopora-backend/internal/config"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/tenant"
	"github.com/shopora/shopora-backend/internal/utils"
)

type OrderService struct {
	db          *gorm.DB
	cartService *CartService
	config      *config.Config
}

func NewOrderService(db *gorm.DB, cartService *CartService, config *config.Config) *OrderService {
	return &OrderService{
		db:          db,
		cartService: cartService,
		config:      config,
	}
}

type PlaceOrderItem struct {
	ProductID uuid.UUID `json:"product" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type PlaceOrderRequest struct {
	Items           []PlaceOrderItem        `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *models.ShippingAddress `json:"shipping_address,omitempty"`
	PaymentMethod   string                  `json:"payment_method,omitempty"`
}

// PlaceOrder converts a cart into a priced, stock-decremented, store-bound
// order. Product lookups, the single-store check, stock decrements and the
// order insert run in one transaction; nothing is visible to the caller
// until it commits. Prices and names are snapshotted from the catalog inside
// the transaction, never taken from the client.
func (s *OrderService) PlaceOrder(customerID uuid.UUID, req *PlaceOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.NewValidation("no order items")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, apperrors.NewValidation("item quantity must be positive")
		}
	}

	method, err := canonicalPaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	var order *models.Order

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var storeID uuid.UUID
		items := make([]models.OrderItem, 0, len(req.Items))

		for _, reqItem := range req.Items {
			// Authoritative product record, locked for the duration of the
			// transaction so concurrent checkouts serialize on the stock
			// check-and-decrement.
			var product models.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND is_published = ?", reqItem.ProductID, true).
				First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NewNotFound("product")
				}
				return fmt.Errorf("failed to fetch product: %w", err)
			}

			// The first item fixes the order's store; an order never spans
			// stores.
			if storeID == uuid.Nil {
				storeID = product.StoreID
			} else if product.StoreID != storeID {
				return &apperrors.MultiStoreViolation{Product: product.Title}
			}

			if product.Type == models.ProductTypePhysical {
				if product.Stock == nil || *product.Stock < reqItem.Quantity {
					return &apperrors.InsufficientStock{Product: product.Title}
				}

				// Conditional decrement: the stock floor is enforced in the
				// UPDATE itself, so two concurrent orders can never both
				// take the last unit even under read committed.
				res := tx.Model(&models.Product{}).
					Where("id = ? AND stock >= ?", product.ID, reqItem.Quantity).
					UpdateColumn("stock", gorm.Expr("stock - ?", reqItem.Quantity))
				if res.Error != nil {
					return fmt.Errorf("failed to decrement stock: %w", res.Error)
				}
				if res.RowsAffected == 0 {
					return &apperrors.InsufficientStock{Product: product.Title}
				}
			}

			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Title,
				UnitPrice: product.Price,
				Quantity:  reqItem.Quantity,
			})
		}

		orderStatus := models.OrderStatusPending
		paymentStatus := models.PaymentStatusUnpaid
		if method == models.PaymentMethodCOD {
			// Cash on delivery needs no external confirmation: fulfillment
			// starts immediately, payment is pending until delivery.
			orderStatus = models.OrderStatusProcessing
			paymentStatus = models.PaymentStatusPending
		}

		order = &models.Order{
			UserID:          customerID,
			StoreID:         storeID,
			Items:           items,
			ShippingAddress: req.ShippingAddress,
			TotalAmount:     models.ComputeTotal(items),
			Currency:        "usd",
			OrderStatus:     orderStatus,
			PaymentMethod:   method,
			PaymentStatus:   paymentStatus,
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	// The order is committed; a failed cart clear is logged, never surfaced
	// as an order failure.
	if err := s.cartService.Clear(customerID); err != nil {
		logrus.WithError(err).WithField("user_id", customerID.String()).
			Warn("Failed to clear cart after checkout")
	}

	return order, nil
}

func canonicalPaymentMethod(raw string) (models.PaymentMethod, error) {
	switch models.PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return models.PaymentMethodCOD, nil
	case models.PaymentMethodCOD:
		return models.PaymentMethodCOD, nil
	case models.PaymentMethodStripe:
		return models.PaymentMethodStripe, nil
	}
	return "", apperrors.NewValidation("unsupported payment method %q", raw)
}

// GetOrders lists orders visible to the caller, newest first.
func (s *OrderService) GetOrders(principal tenant.Principal, params utils.PaginationParams) ([]models.Order, int64, error) {
	scope, err := principal.OrderScope()
	if err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Order{}).Scopes(scope)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	allowedSortFields := []string{"created_at", "total_amount", "order_status", "payment_status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var orders []models.Order
	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}

	return orders, total, nil
}

// GetOrder fetches a single order within the caller's tenant scope.
func (s *OrderService) GetOrder(principal tenant.Principal, orderID uuid.UUID) (*models.Order, error) {
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

	return &order, nil
}

// UpdateOrderStatus is the store-owner fulfillment action. The scope keeps
// owners inside their own store's ledger.
func (s *OrderService) UpdateOrderStatus(principal tenant.Principal, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidation("invalid order status %q", status)
	}

	if principal.Role != models.RoleStoreOwner && principal.Role != models.RoleSuperadmin {
		return nil, apperrors.NewAuthorization("only store owners can update order status")
	}

	order, err := s.GetOrder(principal, orderID)
	if err != nil {
		return nil, err
	}

	// Delivered and cancelled are terminal.
	if order.OrderStatus == models.OrderStatusDelivered || order.OrderStatus == models.OrderStatusCancelled {
		return nil, apperrors.NewValidation("order is already %s", order.OrderStatus)
	}

	order.OrderStatus = status
	order.TotalAmount = models.ComputeTotal(order.Items)
	if status == models.OrderStatusDelivered && order.DeliveredAt == nil {
		now := time.Now()
		order.DeliveredAt = &now

		// Cash-on-delivery settles at the door, fee split included.
		if order.PaymentMethod == models.PaymentMethodCOD && order.PaymentStatus == models.PaymentStatusPending {
			order.PaymentStatus = models.PaymentStatusPaid
			order.PaidAt = &now
			order.PlatformFee, order.StoreEarning = models.SplitRevenue(order.TotalAmount, s.config.Payment.PlatformFeePercent)
		}
	}

	if err := s.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"order_status":   order.OrderStatus,
			"payment_status": order.PaymentStatus,
			"total_amount":   order.TotalAmount,
			"delivered_at":   order.DeliveredAt,
			"paid_at":        order.PaidAt,
			"platform_fee":   order.PlatformFee,
			"store_earning":  order.StoreEarning,
		}).Error; err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return order, nil
}

// EnsureInvoiceNumber lazily assigns the invoice number on the first
// invoice request and returns the order for rendering.
func (s *OrderService) EnsureInvoiceNumber(principal tenant.Principal, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(principal, orderID)
	if err != nil {
		return nil, err
	}

	if order.InvoiceNumber != nil {
		return order, nil
	}

	number := utils.GenerateInvoiceNumber(order.ID, order.CreatedAt)

	// Assign only if still unset; a concurrent invoice request may have won.
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND invoice_number IS NULL", order.ID).
		UpdateColumn("invoice_number", number)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to assign invoice number: %w", res.Error)
	}

	return s.GetOrder(principal, orderID)
}
