package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/application/service"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/request"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/response"
)

// CartHandler handles cart HTTP requests
type CartHandler struct {
	cartService *service.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// Get returns the till's cart
func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.cartService.Get(c.Request.Context(), tillParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart retrieved successfully", cart)
}

// AddLine adds one unit of an item by its code
func (h *CartHandler) AddLine(c *gin.Context) {
	var req request.AddCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	cart, err := h.cartService.AddByCode(c.Request.Context(), tillParam(c), req.ItemCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item added to cart", cart)
}

// UpdateLine edits a line's quantity, price or unit
func (h *CartHandler) UpdateLine(c *gin.Context) {
	var req request.UpdateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	cart, err := h.cartService.UpdateLine(c.Request.Context(), tillParam(c), c.Param("item_code"), service.UpdateLineInput{
		Quantity: *req.Quantity,
		Price:    req.Price,
		Unit:     req.Unit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart line updated", cart)
}

// RemoveLine removes a line from the cart
func (h *CartHandler) RemoveLine(c *gin.Context) {
	cart, err := h.cartService.RemoveLine(c.Request.Context(), tillParam(c), c.Param("item_code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart line removed", cart)
}

// Clear empties the cart
func (h *CartHandler) Clear(c *gin.Context) {
	cart, err := h.cartService.Clear(c.Request.Context(), tillParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart cleared", cart)
}
