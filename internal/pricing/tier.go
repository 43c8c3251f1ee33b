package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utafrali/partsquote/internal/domain"
)

// Tier is a cart-wide quantity bracket. The bracket starts at MinQuantity
// units summed over every line in the cart.
type Tier struct {
	MinQuantity int `json:"min_quantity"`
	Percent     int `json:"percent"`
}

// Label renders the tier for display, e.g. "10+ items: 15% off".
func (t Tier) Label() string {
	return fmt.Sprintf("%d+ items: %d%% off", t.MinQuantity, t.Percent)
}

// tiers must stay sorted by MinQuantity.
var tiers = []Tier{
	{MinQuantity: 2, Percent: 5},
	{MinQuantity: 5, Percent: 10},
	{MinQuantity: 10, Percent: 15},
}

var hundred = decimal.NewFromInt(100)

// Tiers returns the discount brackets in ascending order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierFor returns the discount percentage for the total number of units in
// the cart. A quantity on a boundary takes the higher tier.
func TierFor(totalQuantity int) int {
	percent := 0
	for _, t := range tiers {
		if totalQuantity >= t.MinQuantity {
			percent = t.Percent
		}
	}
	return percent
}

// NextTier returns the next bracket above totalQuantity and how many more
// units are needed to reach it. ok is false once the top tier applies.
func NextTier(totalQuantity int) (next Tier, unitsNeeded int, ok bool) {
	if totalQuantity < 0 {
		totalQuantity = 0
	}
	for _, t := range tiers {
		if totalQuantity < t.MinQuantity {
			return t, t.MinQuantity - totalQuantity, true
		}
	}
	return Tier{}, 0, false
}

// DiscountedUnitPrice applies the tier for totalQuantity to price. The
// result is not rounded; use Round at display time.
func DiscountedUnitPrice(price domain.Price, totalQuantity int) domain.Price {
	amount, ok := price.Amount()
	if !ok {
		return domain.Unpriced
	}
	return domain.PriceOf(applyDiscount(amount, TierFor(totalQuantity)))
}

func applyDiscount(amount decimal.Decimal, percent int) decimal.Decimal {
	if percent == 0 {
		return amount
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(percent))).Div(hundred)
	return amount.Mul(factor)
}

// Round rounds an amount to cents for display.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// RoundPrice rounds a priced amount to cents and leaves Unpriced untouched.
func RoundPrice(p domain.Price) domain.Price {
	amount, ok := p.Amount()
	if !ok {
		return p
	}
	return domain.PriceOf(Round(amount))
}
