// internal/handlers/payment.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shopora/shopora-backend/internal/middleware"
	"github.com/shopora/shopora-backend/internal/services"
	"github.com/shopora/shopora-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /orders/:id/checkout
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	session, err := h.paymentService.CreateCheckoutSession(principal, orderID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, session)
}

// POST /payments/webhook
// Signature verification needs the exact raw body, so this handler reads it
// itself instead of binding.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read request body", nil)
		return
	}

	if err := h.paymentService.HandleWebhook(payload, c.GetHeader("Stripe-Signature")); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// POST /admin/refunds
func (h *PaymentHandler) Refund(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.paymentService.Refund(principal, &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"admin_id": principal.UserID,
	}).Info("Order refunded")

	utils.SuccessResponse(c, order)
}
