package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/application/service"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/request"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/response"
)

// CustomerHandler handles the till's customer context
type CustomerHandler struct {
	customerService *service.CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// Search lists registered customers matching the search query
func (h *CustomerHandler) Search(c *gin.Context) {
	customers, err := h.customerService.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Customers retrieved successfully", customers)
}

// Current returns the customer selected on the till
func (h *CustomerHandler) Current(c *gin.Context) {
	customer := h.customerService.Current(c.Request.Context(), tillParam(c))
	response.OK(c, "Customer retrieved successfully", customer)
}

// Select makes a registered customer the till's customer
func (h *CustomerHandler) Select(c *gin.Context) {
	var req request.SelectCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	customer, err := h.customerService.Select(c.Request.Context(), tillParam(c), req.CustomerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Customer selected", customer)
}

// Reset returns the till to the walk-in customer
func (h *CustomerHandler) Reset(c *gin.Context) {
	tillID := tillParam(c)
	h.customerService.ResetToWalkIn(tillID)
	response.OK(c, "Customer reset to walk-in", h.customerService.Current(c.Request.Context(), tillID))
}
