package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTClaims represents the claims in a cashier access token. Tokens are
// issued by the back office; the till agent only validates them.
type JWTClaims struct {
	CashierID uuid.UUID `json:"cashier_id"`
	Name      string    `json:"name"`
	Tills     []string  `json:"tills,omitempty"`
	jwt.RegisteredClaims
}

// CanUseTill reports whether the token grants access to tillID. A token
// without a till list may use any till.
func (c *JWTClaims) CanUseTill(tillID string) bool {
	if len(c.Tills) == 0 {
		return true
	}
	for _, t := range c.Tills {
		if t == tillID {
			return true
		}
	}
	return false
}

// JWTManager handles JWT token validation
type JWTManager struct {
	secretKey []byte
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secretKey: []byte(secret)}
}

// ValidateAccessToken validates an access token and returns the claims
func (m *JWTManager) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.CashierID == uuid.Nil {
		// Older back-office tokens carry the cashier only in the subject.
		id, err := uuid.Parse(claims.Subject)
		if err != nil {
			return nil, errors.New("invalid cashier ID in token")
		}
		claims.CashierID = id
	}

	return claims, nil
}
