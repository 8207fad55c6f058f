package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/investify-till/internal/presentation/http/middleware"
	"github.com/sangkips/investify-till/pkg/apperror"
)

// GetCashierID extracts the cashier ID from the Gin context
func GetCashierID(c *gin.Context) *uuid.UUID {
	value, exists := c.Get(middleware.CashierIDKey)
	if !exists {
		return nil
	}
	cashierID, ok := value.(uuid.UUID)
	if !ok || cashierID == uuid.Nil {
		return nil
	}
	return &cashierID
}

// GetCashierName extracts the cashier display name from the Gin context
func GetCashierName(c *gin.Context) string {
	return c.GetString(middleware.CashierNameKey)
}

// tillParam returns the trimmed :till_id path parameter.
func tillParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("till_id"))
}

// splitParam parses the :split_id path parameter.
func splitParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("split_id"))
	if err != nil || id < 1 {
		return 0, apperror.NewBadRequestError("Invalid split ID")
	}
	return id, nil
}
