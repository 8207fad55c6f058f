package entity

import "github.com/shopspring/decimal"

// Customer is who a sale is attributed to, with the balances the settlement
// engine may draw on.
type Customer struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Mobile        string          `json:"mobile,omitempty"`
	Email         string          `json:"email,omitempty"`
	Credit        decimal.Decimal `json:"credit"`
	LoyaltyPoints decimal.Decimal `json:"loyalty_points"`
	WalkIn        bool            `json:"walk_in"`
}

// NewWalkInCustomer builds the anonymous default identity. It carries no
// credit and no points.
func NewWalkInCustomer(label string) *Customer {
	return &Customer{
		ID:            label,
		Name:          label,
		Credit:        decimal.Zero,
		LoyaltyPoints: decimal.Zero,
		WalkIn:        true,
	}
}
