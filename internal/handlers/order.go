// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopora/shopora-backend/internal/middleware"
	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/services"
	"github.com/shopora/shopora-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.orderService.PlaceOrder(principal.UserID, &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, order)
}

// GET /orders (customer) and GET /dashboard/orders (store owner)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	orders, total, err := h.orderService.GetOrders(principal, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
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

	order, err := h.orderService.GetOrder(principal, orderID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// PATCH /dashboard/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
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

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.orderService.UpdateOrderStatus(principal, orderID, models.OrderStatus(req.Status))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /orders/:id/invoice
func (h *OrderHandler) GetInvoice(c *gin.Context) {
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

	order, err := h.orderService.EnsureInvoiceNumber(principal, orderID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"invoice_number": order.InvoiceNumber,
		"order":          order,
	})
}
