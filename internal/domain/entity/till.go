package entity

import (
	"time"

	"github.com/google/uuid"
)

// TillSession is the operational context a sale is posted under. It is
// passed explicitly to settlement operations rather than read from ambient
// state.
type TillSession struct {
	TillID    string     `json:"till_id"`
	Warehouse string     `json:"warehouse"`
	CashierID uuid.UUID  `json:"cashier_id"`
	Open      bool       `json:"open"`
	OpenedAt  *time.Time `json:"opened_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// HasWarehouse reports whether drafts and carts can be fetched for this till.
func (t *TillSession) HasWarehouse() bool {
	return t != nil && t.TillID != "" && t.Warehouse != ""
}
