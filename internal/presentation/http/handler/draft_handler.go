package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/application/service"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/request"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/response"
)

// DraftHandler handles parked sale HTTP requests
type DraftHandler struct {
	draftService *service.DraftService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(draftService *service.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

// List returns the drafts parked for the till's warehouse
func (h *DraftHandler) List(c *gin.Context) {
	drafts, err := h.draftService.List(c.Request.Context(), tillParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Drafts retrieved successfully", drafts)
}

// Queue parks the till's cart as a draft
func (h *DraftHandler) Queue(c *gin.Context) {
	var req request.QueueDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	result, err := h.draftService.Queue(c.Request.Context(), tillParam(c), service.QueueInput{Mobile: req.Mobile})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Sale queued", result)
}

// Resume loads a draft back into the till's cart
func (h *DraftHandler) Resume(c *gin.Context) {
	result, err := h.draftService.Resume(c.Request.Context(), tillParam(c), c.Param("draft_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Draft resumed"
	if !result.OpenSettlement {
		message = "Draft already paid; loaded for viewing"
	}
	response.OK(c, message, result)
}

// Cancel deletes a draft
func (h *DraftHandler) Cancel(c *gin.Context) {
	if err := h.draftService.Cancel(c.Request.Context(), tillParam(c), c.Param("draft_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Draft cancelled", nil)
}
