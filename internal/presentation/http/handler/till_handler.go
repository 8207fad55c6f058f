package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/application/service"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/request"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/response"
)

// TillHandler handles till shift HTTP requests
type TillHandler struct {
	tillService *service.TillService
}

// NewTillHandler creates a new till handler
func NewTillHandler(tillService *service.TillService) *TillHandler {
	return &TillHandler{tillService: tillService}
}

// List returns every till the agent knows about
func (h *TillHandler) List(c *gin.Context) {
	response.OK(c, "Tills retrieved successfully", h.tillService.List())
}

// Get returns one till
func (h *TillHandler) Get(c *gin.Context) {
	till, err := h.tillService.Get(tillParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Till retrieved successfully", till)
}

// Open starts a shift on the till for the authenticated cashier
func (h *TillHandler) Open(c *gin.Context) {
	cashierID := GetCashierID(c)
	if cashierID == nil {
		response.Unauthorized(c, "Cashier not authenticated")
		return
	}

	var req request.OpenTillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	till, err := h.tillService.Open(tillParam(c), req.Warehouse, *cashierID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Till opened successfully", till)
}

// Close ends the shift on the till
func (h *TillHandler) Close(c *gin.Context) {
	till, err := h.tillService.Close(tillParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Till closed successfully", till)
}

// Switch moves the cashier to the till in the path
func (h *TillHandler) Switch(c *gin.Context) {
	cashierID := GetCashierID(c)
	if cashierID == nil {
		response.Unauthorized(c, "Cashier not authenticated")
		return
	}

	var req request.SwitchTillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	till, err := h.tillService.Switch(req.From, tillParam(c), req.Warehouse, *cashierID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Till switched successfully", till)
}
