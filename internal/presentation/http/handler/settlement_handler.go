package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/application/service"
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/domain/settlement"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/request"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/response"
	"github.com/sangkips/investify-till/pkg/pagination"
)

// SettlementHandler handles payment collection HTTP requests
type SettlementHandler struct {
	settlementService *service.SettlementService
	mobileService     *service.MobileMoneyService
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(settlementService *service.SettlementService, mobileService *service.MobileMoneyService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		mobileService:     mobileService,
	}
}

// Open starts collecting payment for the cart or an invoice
func (h *SettlementHandler) Open(c *gin.Context) {
	var req request.OpenSettlementRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	view, err := h.settlementService.Open(c.Request.Context(), tillParam(c), service.OpenInput{
		InvoiceID: req.InvoiceID,
		Mobile:    req.Mobile,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Settlement opened", view)
}

// Get returns the till's settlement
func (h *SettlementHandler) Get(c *gin.Context) {
	view, err := h.settlementService.Get(c.Request.Context(), tillParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Settlement retrieved successfully", view)
}

// Close abandons the till's settlement
func (h *SettlementHandler) Close(c *gin.Context) {
	if err := h.settlementService.Close(tillParam(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSplit appends a payment line
func (h *SettlementHandler) AddSplit(c *gin.Context) {
	view, err := h.settlementService.AddSplit(c.Request.Context(), tillParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment line added", view)
}

// UpdateSplit edits one field of a payment line
func (h *SettlementHandler) UpdateSplit(c *gin.Context) {
	splitID, err := splitParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.UpdateSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	view, err := h.settlementService.UpdateSplit(c.Request.Context(), tillParam(c), splitID, settlement.Field(req.Field), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment line updated", view)
}

// RemoveSplit deletes a payment line
func (h *SettlementHandler) RemoveSplit(c *gin.Context) {
	splitID, err := splitParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.settlementService.RemoveSplit(c.Request.Context(), tillParam(c), splitID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment line removed", view)
}

// SetCredit applies store credit
func (h *SettlementHandler) SetCredit(c *gin.Context) {
	var req request.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	view, err := h.settlementService.SetCreditUsed(c.Request.Context(), tillParam(c), *req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Credit applied", view)
}

// SetPoints redeems loyalty points
func (h *SettlementHandler) SetPoints(c *gin.Context) {
	var req request.PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	view, err := h.settlementService.SetPointsRedeemed(c.Request.Context(), tillParam(c), *req.Points)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Loyalty points applied", view)
}

// SetMobile records the customer's mobile on the settlement
func (h *SettlementHandler) SetMobile(c *gin.Context) {
	var req request.MobileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	view, err := h.settlementService.SetMobile(c.Request.Context(), tillParam(c), req.Mobile)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Mobile updated", view)
}

// ConfirmMobile pushes a mobile-money prompt for a payment line and waits
// for the outcome
func (h *SettlementHandler) ConfirmMobile(c *gin.Context) {
	splitID, err := splitParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.ConfirmMobileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	view, err := h.mobileService.Confirm(c.Request.Context(), tillParam(c), splitID, req.Phone)
	if err != nil {
		response.Error(c, err)
		return
	}

	// A declined prompt is recorded on the line, not returned as an error.
	message := "Mobile payment confirmed"
	for _, split := range view.Splits {
		if split.ID == splitID && split.State != enum.ConfirmationSuccess {
			message = "Mobile payment not confirmed: " + split.Error
		}
	}
	response.OK(c, message, view)
}

// Submit posts the settlement to the backend
func (h *SettlementHandler) Submit(c *gin.Context) {
	cashierID := GetCashierID(c)
	if cashierID == nil {
		response.Unauthorized(c, "Cashier not authenticated")
		return
	}

	var req request.SubmitSettlementRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	result, err := h.settlementService.Submit(c.Request.Context(), tillParam(c), service.SubmitInput{
		Kind:           enum.SubmissionKind(req.Kind),
		ConfirmPartial: req.ConfirmPartial,
		Print:          req.Print,
		Send:           req.Send,
		CashierID:      *cashierID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Settlement posted successfully"
	if result.Kind == enum.SubmissionDraftSave {
		message = "Sale saved as draft"
	}
	response.Created(c, message, result)
}

// History lists posted settlements (supports both page-based and cursor-based pagination)
func (h *SettlementHandler) History(c *gin.Context) {
	var req request.SettlementHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	var kind *enum.SubmissionKind
	if req.Kind != "" {
		k := enum.SubmissionKind(req.Kind)
		kind = &k
	}

	// Check if cursor-based pagination is requested
	if cursor := c.Query("cursor"); cursor != "" || c.Query("limit") != "" {
		h.historyWithCursor(c, req.TillID, kind)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))

	params := &repository.SettlementFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    page,
			PerPage: perPage,
		},
		TillID: req.TillID,
		Kind:   kind,
	}

	switch req.Status {
	case "Complete":
		status := enum.SettlementStatusComplete
		params.Status = &status
	case "Partial":
		status := enum.SettlementStatusPartial
		params.Status = &status
	}

	if req.From != "" {
		if t, err := time.Parse("2006-01-02", req.From); err == nil {
			params.StartDate = &t
		}
	}
	if req.To != "" {
		if t, err := time.Parse("2006-01-02", req.To); err == nil {
			// Inclusive of the whole end day.
			end := t.Add(24*time.Hour - time.Nanosecond)
			params.EndDate = &end
		}
	}

	result, err := h.settlementService.History(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Settlements retrieved successfully", result)
}

// historyWithCursor handles listing settlements with cursor-based pagination
func (h *SettlementHandler) historyWithCursor(c *gin.Context, tillID string, kind *enum.SubmissionKind) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "15"))

	params := &repository.SettlementCursorFilterParams{
		Cursor: &pagination.CursorParams{
			Cursor:    c.Query("cursor"),
			Direction: pagination.CursorDirection(c.DefaultQuery("direction", "next")),
			Limit:     limit,
		},
		TillID: tillID,
		Kind:   kind,
	}

	result, err := h.settlementService.HistoryCursor(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, 200, "Settlements retrieved successfully", result)
}
