package entity

import "github.com/shopspring/decimal"

// ReceiptHeader holds the store/business header printed at the top of a receipt.
type ReceiptHeader struct {
	StoreName string `json:"store_name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ReceiptItem represents a single line item on a receipt.
type ReceiptItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// ReceiptPayment is one tender line on a receipt.
type ReceiptPayment struct {
	Mode      string          `json:"mode"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// Receipt is a value object representing a printable receipt.
// It is NOT a database entity; it is composed from the settlement journal at print time.
type Receipt struct {
	Header         ReceiptHeader    `json:"header"`
	SalesID        string           `json:"sales_id"`
	Date           string           `json:"date"`
	Till           string           `json:"till,omitempty"`
	Customer       string           `json:"customer,omitempty"`
	Items          []ReceiptItem    `json:"items"`
	Payments       []ReceiptPayment `json:"payments,omitempty"`
	Total          decimal.Decimal  `json:"total"`
	CreditUsed     decimal.Decimal  `json:"credit_used"`
	PointsRedeemed decimal.Decimal  `json:"loyalty_points_redeemed"`
	Paid           decimal.Decimal  `json:"paid"`
	Due            decimal.Decimal  `json:"due"`
}
