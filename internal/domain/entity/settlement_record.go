package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementRecord is the local journal entry written after the backend
// accepts a sale or an invoice payment. Receipts are reprinted from it.
type SettlementRecord struct {
	ID             uuid.UUID             `gorm:"type:uuid;primary_key" json:"id"`
	SalesID        string                `gorm:"size:100;not null;index" json:"sales_id"`
	TillID         string                `gorm:"size:100;not null;index" json:"till_id"`
	Warehouse      string                `gorm:"size:255" json:"warehouse"`
	CashierID      uuid.UUID             `gorm:"type:uuid;index" json:"cashier_id"`
	Kind           enum.SubmissionKind   `gorm:"size:32;not null" json:"kind"`
	Status         enum.SettlementStatus `gorm:"default:0" json:"status"`
	CustomerID     string                `gorm:"size:100" json:"customer_id,omitempty"`
	CustomerName   string                `gorm:"size:255" json:"customer_name"`
	CustomerEmail  string                `gorm:"size:255" json:"-"`
	Mobile         string                `gorm:"size:50" json:"mobile,omitempty"`
	DraftID        string                `gorm:"size:100" json:"draft_id,omitempty"`
	Total          decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"total"`
	Paid           decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"paid"`
	Due            decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"due"`
	CreditUsed     decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"credit_used"`
	PointsRedeemed decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"loyalty_points_redeemed"`
	Items          []SaleItem            `gorm:"serializer:json" json:"items,omitempty"`
	Payments       []PaymentDetail       `gorm:"serializer:json" json:"payments,omitempty"`
	SalesDate      time.Time             `gorm:"not null" json:"sales_date"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	DeletedAt      gorm.DeletedAt        `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new record
func (r *SettlementRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SettlementRecord model
func (SettlementRecord) TableName() string {
	return "settlement_records"
}

// CartSnapshot is the SQL variant of the persisted cart blob.
type CartSnapshot struct {
	TillID    string    `gorm:"size:100;primary_key"`
	Payload   []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the CartSnapshot model
func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
