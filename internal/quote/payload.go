// Package quote builds the quote-intake wire payload from a cart and sends
// it to the intake endpoint.
package quote

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utafrali/partsquote/internal/cart"
	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/internal/pricing"
)

// Money is a dollar amount encoded as a JSON number with two decimals.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money{pricing.Round(d)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}

// Payload is the cart snapshot sent to the intake endpoint. Field names
// follow the intake contract.
type Payload struct {
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

// Item is one cart line on the wire.
type Item struct {
	ID               string     `json:"id"`
	ProductID        string     `json:"productId"`
	Name             string     `json:"name"`
	SKU              string     `json:"sku,omitempty"`
	Brand            string     `json:"brand,omitempty"`
	Category         string     `json:"category,omitempty"`
	Size             string     `json:"size"`
	Quantity         int        `json:"quantity"`
	MaterialTestCert bool       `json:"materialTestCert"`
	Variation        *Variation `json:"variation,omitempty"`
	CustomSpecs      *Specs     `json:"customSpecs,omitempty"`
	LeadTime         string     `json:"leadTime,omitempty"`
}

// Variation is the size snapshot on the wire. Price is null when the size
// has to be quoted manually.
type Variation struct {
	SKU       string       `json:"sku,omitempty"`
	SizeLabel string       `json:"sizeLabel"`
	Price     domain.Price `json:"price"`
}

// Specs mirrors domain.CustomSpecs on the wire.
type Specs struct {
	PipeOD         string `json:"pipeOd,omitempty"`
	RubberMaterial string `json:"rubberMaterial,omitempty"`
	Pressure       string `json:"pressure,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// Totals is the aggregate block. PricedTotal is the discounted total of
// priced lines and excludes certificate fees.
type Totals struct {
	ItemCount        int   `json:"itemCount"`
	TotalQuantity    int   `json:"totalQuantity"`
	DiscountPercent  int   `json:"discountPercent"`
	PricedTotal      Money `json:"pricedTotal"`
	Savings          Money `json:"savings"`
	HasUnpricedItems bool  `json:"hasUnpricedItems"`
	UnpricedCount    int   `json:"unpricedCount"`
	CertFee          Money `json:"certFee"`
	CertCount        int   `json:"certCount"`
}

// Serialize snapshots the cart into a Payload. It does not modify the cart.
func Serialize(store *cart.Store) Payload {
	items := store.Items()
	out := Payload{
		Items:  make([]Item, 0, len(items)),
		Totals: totalsFrom(store.Totals()),
	}
	for _, item := range items {
		out.Items = append(out.Items, itemFrom(item))
	}
	return out
}

func itemFrom(item domain.QuoteItem) Item {
	w := Item{
		ID:               item.ID,
		ProductID:        item.ProductID,
		Name:             item.Name,
		SKU:              item.SKU,
		Brand:            item.Brand,
		Category:         item.Category,
		Size:             item.Size,
		Quantity:         item.Quantity,
		MaterialTestCert: item.MaterialTestCert,
		LeadTime:         item.LeadTime,
	}
	if v := item.Variation; v != nil {
		w.Variation = &Variation{SKU: v.SKU, SizeLabel: v.SizeLabel, Price: v.UnitPrice}
		if v.SKU != "" {
			w.SKU = v.SKU
		}
	}
	if s := item.CustomSpecs; !s.IsEmpty() {
		w.CustomSpecs = &Specs{
			PipeOD:         s.PipeOD,
			RubberMaterial: s.RubberMaterial,
			Pressure:       s.Pressure,
			Notes:          s.Notes,
		}
	}
	return w
}

func totalsFrom(t pricing.Totals) Totals {
	return Totals{
		ItemCount:        t.ItemCount,
		TotalQuantity:    t.TotalQuantity,
		DiscountPercent:  t.DiscountPercent,
		PricedTotal:      NewMoney(t.DiscountedTotal),
		Savings:          NewMoney(t.TotalSavings),
		HasUnpricedItems: t.HasUnpricedItems,
		UnpricedCount:    t.UnpricedCount,
		CertFee:          NewMoney(t.CertificateFee),
		CertCount:        t.CertificateCount,
	}
}

// Reconstruct recomputes the totals block from the payload's own lines.
func Reconstruct(p Payload, cfg pricing.Config) Totals {
	items := make([]domain.QuoteItem, 0, len(p.Items))
	for _, w := range p.Items {
		item := domain.QuoteItem{
			ID:               w.ID,
			ProductID:        w.ProductID,
			Name:             w.Name,
			Quantity:         w.Quantity,
			MaterialTestCert: w.MaterialTestCert,
		}
		if w.Variation != nil {
			item.Variation = &domain.ItemVariation{SKU: w.Variation.SKU, SizeLabel: w.Variation.SizeLabel, UnitPrice: w.Variation.Price}
		}
		items = append(items, item)
	}
	return totalsFrom(pricing.Summarize(items, cfg))
}

// Verify checks that the totals block matches what the lines add up to.
func Verify(p Payload, cfg pricing.Config) error {
	got := Reconstruct(p, cfg)
	want := p.Totals
	switch {
	case got.ItemCount != want.ItemCount, got.TotalQuantity != want.TotalQuantity:
		return fmt.Errorf("payload counts mismatch: lines give %d/%d, totals say %d/%d",
			got.ItemCount, got.TotalQuantity, want.ItemCount, want.TotalQuantity)
	case !got.PricedTotal.Equal(want.PricedTotal.Decimal):
		return fmt.Errorf("payload priced total mismatch: lines give %s, totals say %s", got.PricedTotal, want.PricedTotal)
	case !got.Savings.Equal(want.Savings.Decimal):
		return fmt.Errorf("payload savings mismatch: lines give %s, totals say %s", got.Savings, want.Savings)
	case !got.CertFee.Equal(want.CertFee.Decimal):
		return fmt.Errorf("payload certificate fee mismatch: lines give %s, totals say %s", got.CertFee, want.CertFee)
	}
	return nil
}
