package request

import "github.com/shopspring/decimal"

// AddCartLineRequest adds one unit of the scanned or typed item code
type AddCartLineRequest struct {
	ItemCode string `json:"item_code" binding:"required,max=100"`
}

// UpdateCartLineRequest represents a cashier edit of a cart line
type UpdateCartLineRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
	Price    *decimal.Decimal `json:"price"`
	Unit     *string          `json:"unit" binding:"omitempty,max=50"`
}

// SelectCustomerRequest represents a customer selection
type SelectCustomerRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
}
