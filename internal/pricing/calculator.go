package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/utafrali/partsquote/internal/domain"
)

// Config holds the configurable charges applied on top of line prices.
type Config struct {
	CertificateFee decimal.Decimal
	TaxRate        decimal.Decimal
}

// DefaultConfig returns a $350 certificate fee and 10% GST.
func DefaultConfig() Config {
	return Config{
		CertificateFee: decimal.NewFromInt(350),
		TaxRate:        decimal.RequireFromString("0.10"),
	}
}

// UnitPrice returns the line's snapshot price.
func UnitPrice(item domain.QuoteItem) domain.Price {
	return item.UnitPrice()
}

// Subtotal is unit price times quantity, or Unpriced.
func Subtotal(item domain.QuoteItem) domain.Price {
	amount, ok := item.UnitPrice().Amount()
	if !ok {
		return domain.Unpriced
	}
	return domain.PriceOf(amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
}

// DiscountedSubtotal applies the cart-wide tier for totalQuantity to the line.
func DiscountedSubtotal(item domain.QuoteItem, totalQuantity int) domain.Price {
	unit, ok := DiscountedUnitPrice(item.UnitPrice(), totalQuantity).Amount()
	if !ok {
		return domain.Unpriced
	}
	return domain.PriceOf(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
}

// Savings is Subtotal minus DiscountedSubtotal; zero for unpriced lines.
func Savings(item domain.QuoteItem, totalQuantity int) decimal.Decimal {
	full, ok := Subtotal(item).Amount()
	if !ok {
		return decimal.Zero
	}
	discounted, _ := DiscountedSubtotal(item, totalQuantity).Amount()
	return full.Sub(discounted)
}

// CertificateCount counts lines with a material test certificate. The fee
// is charged per line, not per unit.
func CertificateCount(items []domain.QuoteItem) int {
	var n int
	for _, item := range items {
		if item.MaterialTestCert {
			n++
		}
	}
	return n
}

// CertificateFee is the per-line fee times CertificateCount.
func CertificateFee(items []domain.QuoteItem, cfg Config) decimal.Decimal {
	return cfg.CertificateFee.Mul(decimal.NewFromInt(int64(CertificateCount(items))))
}

// TotalQuantity sums quantities across every line.
func TotalQuantity(items []domain.QuoteItem) int {
	var n int
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Line is the pricing breakdown of a single cart line.
type Line struct {
	Item               domain.QuoteItem
	UnitPrice          domain.Price
	DiscountedUnit     domain.Price
	Subtotal           domain.Price
	DiscountedSubtotal domain.Price
	Savings            decimal.Decimal
}

// PriceLines prices every line against the cart-wide quantity.
func PriceLines(items []domain.QuoteItem) []Line {
	total := TotalQuantity(items)
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			Item:               item,
			UnitPrice:          item.UnitPrice(),
			DiscountedUnit:     DiscountedUnitPrice(item.UnitPrice(), total),
			Subtotal:           Subtotal(item),
			DiscountedSubtotal: DiscountedSubtotal(item, total),
			Savings:            Savings(item, total),
		})
	}
	return lines
}

// Totals aggregates a cart. Dollar amounts cover priced lines only and are
// unrounded.
type Totals struct {
	ItemCount        int
	TotalQuantity    int
	DiscountPercent  int
	PricedSubtotal   decimal.Decimal
	DiscountedTotal  decimal.Decimal
	TotalSavings     decimal.Decimal
	CertificateCount int
	CertificateFee   decimal.Decimal
	GrandTotal       decimal.Decimal
	Tax              decimal.Decimal
	GrandTotalIncTax decimal.Decimal
	HasUnpricedItems bool
	UnpricedCount    int
}

// Summarize computes cart totals. It never fails: unpriced lines are
// counted and excluded from the dollar sums.
func Summarize(items []domain.QuoteItem, cfg Config) Totals {
	total := TotalQuantity(items)
	t := Totals{
		ItemCount:       len(items),
		TotalQuantity:   total,
		DiscountPercent: TierFor(total),
		PricedSubtotal:  decimal.Zero,
		DiscountedTotal: decimal.Zero,
		TotalSavings:    decimal.Zero,
	}

	for _, item := range items {
		full, ok := Subtotal(item).Amount()
		if !ok {
			t.UnpricedCount++
			continue
		}
		discounted, _ := DiscountedSubtotal(item, total).Amount()
		t.PricedSubtotal = t.PricedSubtotal.Add(full)
		t.DiscountedTotal = t.DiscountedTotal.Add(discounted)
		t.TotalSavings = t.TotalSavings.Add(full.Sub(discounted))
	}

	t.HasUnpricedItems = t.UnpricedCount > 0
	t.CertificateCount = CertificateCount(items)
	t.CertificateFee = CertificateFee(items, cfg)
	t.GrandTotal = t.DiscountedTotal.Add(t.CertificateFee)
	t.Tax = t.GrandTotal.Mul(cfg.TaxRate)
	t.GrandTotalIncTax = t.GrandTotal.Add(t.Tax)
	return t
}
