package domain

// Product is a read-only catalog entry. A product either has a flat price,
// one or more size variations, or neither (price on application).
type Product struct {
	ID             string          `json:"id"`
	Slug           string          `json:"slug"`
	SKU            string          `json:"sku,omitempty"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand,omitempty"`
	Category       string          `json:"category,omitempty"`
	Description    string          `json:"description,omitempty"`
	Image          string          `json:"image,omitempty"`
	Price          Price           `json:"price"`
	SizeVariations []SizeVariation `json:"size_variations,omitempty"`
	LeadTime       string          `json:"lead_time,omitempty"`
}

// SizeVariation is one orderable size of a product.
type SizeVariation struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Price Price  `json:"price"`
	SKU   string `json:"sku,omitempty"`
}

// HasSizes reports whether the product must be ordered in a specific size.
func (p *Product) HasSizes() bool {
	return len(p.SizeVariations) > 0
}

// FindVariation returns the variation whose Value equals size.
func (p *Product) FindVariation(size string) (SizeVariation, bool) {
	for _, v := range p.SizeVariations {
		if v.Value == size {
			return v, true
		}
	}
	return SizeVariation{}, false
}

// DisplayLabel returns the label, falling back to the size value.
func (v SizeVariation) DisplayLabel() string {
	if v.Label != "" {
		return v.Label
	}
	return v.Value
}
