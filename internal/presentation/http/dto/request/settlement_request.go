package request

import "github.com/shopspring/decimal"

// OpenSettlementRequest represents the open settlement request. With
// InvoiceID set the settlement collects an existing invoice.
type OpenSettlementRequest struct {
	InvoiceID string `json:"invoice_id" binding:"omitempty,max=100"`
	Mobile    string `json:"mobile" binding:"omitempty,max=20"`
}

// UpdateSplitRequest edits one field of a payment line
type UpdateSplitRequest struct {
	Field string `json:"field" binding:"required,oneof=mode amount phone reference"`
	Value string `json:"value"`
}

// CreditRequest sets the store credit applied to the settlement
type CreditRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// PointsRequest sets the loyalty points redeemed
type PointsRequest struct {
	Points *decimal.Decimal `json:"points" binding:"required"`
}

// MobileRequest sets the settlement's customer mobile
type MobileRequest struct {
	Mobile string `json:"mobile" binding:"max=20"`
}

// ConfirmMobileRequest starts a mobile-money push for a payment line. An
// empty phone uses the line's phone, then the settlement mobile.
type ConfirmMobileRequest struct {
	Phone string `json:"phone" binding:"omitempty,max=20"`
}

// SubmitSettlementRequest represents the submit settlement request
type SubmitSettlementRequest struct {
	Kind           string `json:"kind" binding:"omitempty,oneof=new_sale draft_save invoice_payment"`
	ConfirmPartial bool   `json:"confirm_partial"`
	Print          bool   `json:"print"`
	Send           bool   `json:"send"`
}

// SettlementHistoryRequest represents journal filter parameters
type SettlementHistoryRequest struct {
	TillID string `form:"till_id"`
	Kind   string `form:"kind" binding:"omitempty,oneof=new_sale draft_save invoice_payment"`
	Status string `form:"status" binding:"omitempty,oneof=Complete Partial"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}
