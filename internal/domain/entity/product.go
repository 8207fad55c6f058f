package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PriceTier is a selling price for one unit of measure.
type PriceTier struct {
	Unit  string          `json:"unit"`
	Price decimal.Decimal `json:"price"`
}

// Product is the catalog view of an item as the till needs it. It is read
// from the backend catalog and never persisted locally on its own.
type Product struct {
	ItemCode       string          `json:"item_code"`
	Name           string          `json:"item_name"`
	BasePrice      decimal.Decimal `json:"price"`
	DefaultUnit    string          `json:"uom,omitempty"`
	PriceTiers     []PriceTier     `json:"price_tiers,omitempty"`
	TrackInventory bool            `json:"track_inventory"`
	OnHand         decimal.Decimal `json:"on_hand"`
}

// DefaultPricing returns the unit and price a new cart line starts with: the
// first configured price tier if there is one, else the base price in the
// product's own unit (or fallbackUnit).
func (p *Product) DefaultPricing(fallbackUnit string) (string, decimal.Decimal) {
	if len(p.PriceTiers) > 0 {
		tier := p.PriceTiers[0]
		unit := tier.Unit
		if unit == "" {
			unit = p.unitOr(fallbackUnit)
		}
		return unit, tier.Price
	}
	return p.unitOr(fallbackUnit), p.BasePrice
}

func (p *Product) unitOr(fallback string) string {
	if strings.TrimSpace(p.DefaultUnit) != "" {
		return p.DefaultUnit
	}
	return fallback
}
