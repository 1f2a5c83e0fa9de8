// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopora/shopora-backend/internal/middleware"
	"github.com/shopora/shopora-backend/internal/services"
	"github.com/shopora/shopora-backend/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	cart, err := h.cartService.GetCart(principal.UserID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	cart, err := h.cartService.AddItem(principal.UserID, &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// DELETE /cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	cart, err := h.cartService.RemoveItem(principal.UserID, productID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	if err := h.cartService.Clear(principal.UserID); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Cart cleared"})
}
