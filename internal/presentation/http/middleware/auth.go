package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/investify-till/internal/presentation/http/dto/response"
	"github.com/sangkips/investify-till/pkg/utils"
)

// Context keys set by AuthMiddleware.
const (
	CashierIDKey   = "cashier_id"
	CashierNameKey = "cashier_name"
	claimsKey      = "cashier_claims"
)

// AuthMiddleware creates a JWT authentication middleware
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(CashierIDKey, claims.CashierID)
		c.Set(CashierNameKey, claims.Name)
		c.Set(claimsKey, claims)

		c.Next()
	}
}

// RequireTillAccess rejects requests for a till the cashier's token does not
// list. Routes without a :till_id parameter pass through.
func RequireTillAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		tillID := c.Param("till_id")
		if tillID == "" {
			c.Next()
			return
		}

		value, exists := c.Get(claimsKey)
		if !exists {
			response.Forbidden(c, "Access denied")
			c.Abort()
			return
		}
		claims, ok := value.(*utils.JWTClaims)
		if !ok || !claims.CanUseTill(tillID) {
			response.Forbidden(c, "You are not assigned to this till")
			c.Abort()
			return
		}

		c.Next()
	}
}
