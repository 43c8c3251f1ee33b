package domain

import (
	"fmt"
)

// UnsizedLabel is the size label given to products sold without size options.
const UnsizedLabel = "POA"

// QuoteItem is one line of a quote cart: a product in one size.
type QuoteItem struct {
	ID               string         `json:"id"`
	ProductID        string         `json:"product_id"`
	Name             string         `json:"name"`
	Brand            string         `json:"brand,omitempty"`
	Category         string         `json:"category,omitempty"`
	Image            string         `json:"image,omitempty"`
	SKU              string         `json:"sku,omitempty"`
	Size             string         `json:"size"`
	Variation        *ItemVariation `json:"variation,omitempty"`
	Quantity         int            `json:"quantity"`
	MaterialTestCert bool           `json:"material_test_cert"`
	CustomSpecs      *CustomSpecs   `json:"custom_specs,omitempty"`
	LeadTime         string         `json:"lead_time,omitempty"`
}

// ItemVariation is the size snapshot taken when the item was added. Later
// catalog price changes do not affect it.
type ItemVariation struct {
	SKU       string `json:"sku,omitempty"`
	SizeLabel string `json:"size_label"`
	UnitPrice Price  `json:"unit_price"`
}

// CustomSpecs holds free-form technical notes for made-to-order lines.
type CustomSpecs struct {
	PipeOD         string `json:"pipe_od,omitempty"`
	RubberMaterial string `json:"rubber_material,omitempty"`
	Pressure       string `json:"pressure,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// IsEmpty reports whether no spec field is filled in.
func (s *CustomSpecs) IsEmpty() bool {
	return s == nil || (s.PipeOD == "" && s.RubberMaterial == "" && s.Pressure == "" && s.Notes == "")
}

// UnitPrice returns the snapshot price, or Unpriced when none was taken.
func (i *QuoteItem) UnitPrice() Price {
	if i.Variation == nil {
		return Unpriced
	}
	return i.Variation.UnitPrice
}

// SizeLabel returns the human readable size of the line.
func (i *QuoteItem) SizeLabel() string {
	if i.Variation != nil && i.Variation.SizeLabel != "" {
		return i.Variation.SizeLabel
	}
	return i.Size
}

// Validate checks the structural invariants of a line.
func (i *QuoteItem) Validate() error {
	switch {
	case i.ID == "":
		return fmt.Errorf("%w: id is empty", ErrInvalidItem)
	case i.ProductID == "":
		return fmt.Errorf("%w: product id is empty", ErrInvalidItem)
	case i.Name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidItem)
	case i.Quantity < 1:
		return fmt.Errorf("%w: quantity %d is below 1", ErrInvalidItem, i.Quantity)
	}
	if amount, ok := i.UnitPrice().Amount(); ok && amount.IsNegative() {
		return fmt.Errorf("%w: negative unit price %s", ErrInvalidItem, amount)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate cart state through it.
func (i QuoteItem) Clone() QuoteItem {
	if i.Variation != nil {
		v := *i.Variation
		i.Variation = &v
	}
	if i.CustomSpecs != nil {
		s := *i.CustomSpecs
		i.CustomSpecs = &s
	}
	return i
}
