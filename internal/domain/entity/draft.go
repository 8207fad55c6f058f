package entity

import (
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// Draft is a parked sale held by the backend.
type Draft struct {
	SalesID     string           `json:"sales_id"`
	Customer    string           `json:"customer"`
	CustomerID  string           `json:"customer_id,omitempty"`
	Mobile      string           `json:"mobile,omitempty"`
	Items       []SaleItem       `json:"items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Status      enum.DraftStatus `json:"status"`
	Date        string           `json:"date"`
	Time        string           `json:"time"`
}

// IsPaid reports whether the draft was settled outside this till.
func (d *Draft) IsPaid() bool {
	return d.Status == enum.DraftStatusPaid
}
