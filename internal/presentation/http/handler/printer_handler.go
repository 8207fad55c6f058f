package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/application/service"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/request"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/response"
)

// PrinterHandler handles printer and receipt HTTP requests.
type PrinterHandler struct {
	receiptService *service.ReceiptService
}

// NewPrinterHandler creates a new printer handler.
func NewPrinterHandler(receiptService *service.ReceiptService) *PrinterHandler {
	return &PrinterHandler{receiptService: receiptService}
}

// GetStatus returns the current printer connection status.
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	status := h.receiptService.GetStatus()
	response.OK(c, "Printer status retrieved", status)
}

// TestPrint sends a test page to the printer.
func (h *PrinterHandler) TestPrint(c *gin.Context) {
	receipt, err := h.receiptService.TestPrint()
	if err != nil {
		// Return the receipt data anyway (useful when printer type is "none")
		response.OK(c, "Test print completed (printer may be disabled)", gin.H{
			"receipt": receipt,
			"warning": err.Error(),
		})
		return
	}

	response.OK(c, "Test page sent to printer", gin.H{
		"receipt": receipt,
	})
}

// PrintReceipt reprints the receipt of a posted settlement.
func (h *PrinterHandler) PrintReceipt(c *gin.Context) {
	receipt, err := h.receiptService.Print(c.Request.Context(), c.Param("sales_id"))
	if err != nil {
		// If receipt was built but printing failed, return receipt with warning
		if receipt != nil {
			response.OK(c, "Receipt generated but printing failed", gin.H{
				"receipt": receipt,
				"warning": err.Error(),
			})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt printed successfully", gin.H{
		"receipt": receipt,
	})
}

// SendReceipt sends the receipt of a posted settlement to the customer.
func (h *PrinterHandler) SendReceipt(c *gin.Context) {
	var req request.SendReceiptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	if err := h.receiptService.Send(c.Request.Context(), c.Param("sales_id"), req.Mobile); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Receipt sent", nil)
}
