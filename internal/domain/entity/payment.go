package entity

import (
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// PaymentMode is one instrument configured for the till.
type PaymentMode struct {
	Name   string `json:"mode_of_payment"`
	Mobile bool   `json:"mobile"`
	Credit bool   `json:"credit"`
}

// PaymentSplit is one line of a split payment. ID is stable for the life of
// the settlement session.
type PaymentSplit struct {
	ID        int                    `json:"id"`
	Mode      string                 `json:"mode"`
	Amount    decimal.Decimal        `json:"amount"`
	Confirmed bool                   `json:"confirmed"`
	Phone     string                 `json:"phone,omitempty"`
	Reference string                 `json:"reference,omitempty"`
	State     enum.ConfirmationState `json:"state"`
	Error     string                 `json:"error,omitempty"`
}

// ReadOnly reports whether the line was confirmed and can no longer change.
func (s *PaymentSplit) ReadOnly() bool {
	return s.State == enum.ConfirmationSuccess
}

// Busy reports whether a confirmation attempt is outstanding.
func (s *PaymentSplit) Busy() bool {
	return s.State == enum.ConfirmationProcessing
}
