// Package money holds the currency rounding rules shared by the cart and the
// settlement engine. Amounts are shopspring decimals rounded to two places.
package money

import "github.com/shopspring/decimal"

// Places is the number of decimal places a currency amount carries.
const Places = 2

var (
	// Tolerance is the smallest difference treated as a real imbalance.
	Tolerance = decimal.New(1, -Places)
	// MinQuantity is the smallest quantity a cart line may hold.
	MinQuantity = decimal.New(1, -2)
)

// Round rounds to currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Clamp bounds d to [lo, hi]. If hi < lo the result is lo.
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if hi.LessThan(lo) {
		return lo
	}
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// NearlyEqual reports whether a and b differ by less than Tolerance.
func NearlyEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Format renders an amount with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
