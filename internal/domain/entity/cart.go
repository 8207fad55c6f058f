package entity

import (
	"strings"
	"time"

	"github.com/sangkips/investify-till/pkg/money"
	"github.com/shopspring/decimal"
)

// CartLine is one product in the cart. ItemCode identifies the line; a
// product never appears on two lines.
type CartLine struct {
	ItemCode       string          `json:"item_code"`
	Name           string          `json:"item_name"`
	Quantity       decimal.Decimal `json:"qty"`
	Unit           string          `json:"uom"`
	UnitPrice      decimal.Decimal `json:"rate"`
	Subtotal       decimal.Decimal `json:"amount"`
	TrackInventory bool            `json:"track_inventory"`
	OnHand         decimal.Decimal `json:"on_hand"`
	PriceTiers     []PriceTier     `json:"price_tiers,omitempty"`
}

// Recalculate refreshes the subtotal from quantity and unit price.
func (l *CartLine) Recalculate() {
	l.Subtotal = money.Round(l.Quantity.Mul(l.UnitPrice))
}

// ExceedsStock reports whether qty is above the on-hand cap. Service
// (non-tracked) lines have no cap.
func (l *CartLine) ExceedsStock(qty decimal.Decimal) bool {
	return l.TrackInventory && qty.GreaterThan(l.OnHand)
}

// PriceForUnit looks up the tier price for unit.
func (l *CartLine) PriceForUnit(unit string) (decimal.Decimal, bool) {
	for _, tier := range l.PriceTiers {
		if strings.EqualFold(tier.Unit, unit) {
			return tier.Price, true
		}
	}
	return decimal.Zero, false
}

// Cart is the in-progress sale for one till.
type Cart struct {
	TillID    string          `json:"till_id"`
	Lines     []CartLine      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	DraftID   string          `json:"draft_id,omitempty"`
	Mobile    string          `json:"mobile,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`

	// PaidDraftID is set when the lines show a draft already paid
	// elsewhere. Such a cart is for viewing and printing only.
	PaidDraftID string `json:"paid_draft_id,omitempty"`
}

// NewCart returns an empty cart for tillID.
func NewCart(tillID string) *Cart {
	return &Cart{TillID: tillID, Lines: []CartLine{}, Total: decimal.Zero}
}

// Recalculate sets Total to the sum of line subtotals.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for i := range c.Lines {
		total = total.Add(c.Lines[i].Subtotal)
	}
	c.Total = total
	c.UpdatedAt = time.Now()
}

// Find returns the index of the line for itemCode, or -1.
func (c *Cart) Find(itemCode string) int {
	for i := range c.Lines {
		if c.Lines[i].ItemCode == itemCode {
			return i
		}
	}
	return -1
}

// ViewOnly reports whether the cart shows a paid draft.
func (c *Cart) ViewOnly() bool {
	return c.PaidDraftID != ""
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Reset empties the cart and forgets any resumed draft.
func (c *Cart) Reset() {
	c.Lines = []CartLine{}
	c.DraftID = ""
	c.PaidDraftID = ""
	c.Mobile = ""
	c.Recalculate()
}

// Clone returns a deep copy safe to hand outside the owning service.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Lines = make([]CartLine, len(c.Lines))
	for i, l := range c.Lines {
		out.Lines[i] = l
		if l.PriceTiers != nil {
			out.Lines[i].PriceTiers = append([]PriceTier(nil), l.PriceTiers...)
		}
	}
	return &out
}

// SaleItems renders the lines in the shape drafts and sales expect.
func (c *Cart) SaleItems() []SaleItem {
	items := make([]SaleItem, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = SaleItem{
			ItemCode: l.ItemCode,
			ItemName: l.Name,
			Qty:      l.Quantity,
			Rate:     l.UnitPrice,
			UOM:      l.Unit,
			Amount:   l.Subtotal,
		}
	}
	return items
}
