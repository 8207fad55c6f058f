package entity

import "github.com/shopspring/decimal"

// SaleItem is a cart line as the backend receives it in drafts and sales.
type SaleItem struct {
	ItemCode string          `json:"item_code"`
	ItemName string          `json:"item_name"`
	Qty      decimal.Decimal `json:"qty"`
	Rate     decimal.Decimal `json:"rate"`
	UOM      string          `json:"uom"`
	Amount   decimal.Decimal `json:"amount"`
}

// PaymentDetail is one non-credit payment line in a sale or invoice payment.
type PaymentDetail struct {
	ModeOfPayment string          `json:"mode_of_payment"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference,omitempty"`
}

// DraftRequest parks the current cart. SalesID, when set, overwrites an
// existing draft instead of creating another one.
type DraftRequest struct {
	Items      []SaleItem      `json:"items"`
	Warehouse  string          `json:"warehouse"`
	Customer   string          `json:"customer"`
	CustomerID string          `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	Mobile     string          `json:"mobile"`
	SalesID    string          `json:"sales_id,omitempty"`
}

// SaleRequest posts a new sale.
type SaleRequest struct {
	InvoiceItems          []SaleItem      `json:"invoice_items"`
	Warehouse             string          `json:"warehouse"`
	CustomerName          string          `json:"customer_name"`
	CustomerID            string          `json:"customer_id"`
	TotalSalesPrice       decimal.Decimal `json:"total_sales_price"`
	MobileNumber          string          `json:"mobile_number"`
	PaymentDetails        []PaymentDetail `json:"payment_details,omitempty"`
	CreditUsed            decimal.Decimal `json:"credit_used"`
	LoyaltyPointsRedeemed decimal.Decimal `json:"loyalty_points_redeemed"`
	SalesDate             string          `json:"sales_date"`
	SalesID               string          `json:"sales_id,omitempty"`
}

// InvoicePaymentRequest collects a balance due on an existing invoice.
// PaymentDetails is omitted when credit covers the whole amount.
type InvoicePaymentRequest struct {
	SalesID        string          `json:"sales_id"`
	PaymentDetails []PaymentDetail `json:"payment_details,omitempty"`
}

// SaleResult is what the backend returns for a posted sale or draft.
type SaleResult struct {
	SalesID string `json:"sales_id"`
	Message string `json:"message,omitempty"`
}

// Invoice is an outstanding sale the cashier can collect against.
type Invoice struct {
	SalesID           string          `json:"sales_id"`
	Customer          string          `json:"customer"`
	CustomerID        string          `json:"customer_id,omitempty"`
	Mobile            string          `json:"mobile,omitempty"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
}

// MobilePushRequest prompts a customer's phone for a wallet payment.
type MobilePushRequest struct {
	MobileNumber   string          `json:"mobile_number"`
	PaymentDetails []PaymentDetail `json:"payment_details"`
}

// MobilePushResult is the gateway's answer to a single push attempt.
type MobilePushResult struct {
	StatusCode        int    `json:"status_code"`
	Message           string `json:"message,omitempty"`
	Reference         string `json:"reference,omitempty"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
}

// Accepted reports whether the gateway acknowledged the push.
func (r *MobilePushResult) Accepted() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// TransactionReference prefers the wallet transaction id and falls back to
// the checkout request id.
func (r *MobilePushResult) TransactionReference() string {
	if r.Reference != "" {
		return r.Reference
	}
	return r.CheckoutRequestID
}

// SendReceiptRequest asks the backend to message a receipt to the customer.
type SendReceiptRequest struct {
	MobileNumber string `json:"mobile_number"`
}
