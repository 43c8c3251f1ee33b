// Package quoteitem turns a catalog product and a size selection into a
// canonical quote line.
package quoteitem

import (
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/internal/pricing"
)

// itemNamespace seeds the UUIDv5 line IDs. Changing it changes every ID.
var itemNamespace = uuid.MustParse("6f1c2a54-8d0e-4b7a-9a43-2a5e1c7d9b10")

// Selection is what the customer picked on the product page.
type Selection struct {
	SelectedSize     string
	Quantity         int
	MaterialTestCert bool
	CustomSpecs      *domain.CustomSpecs
}

// ItemID derives the line ID from the product and size only. Certificate
// flag and custom specs are line attributes, not identity.
func ItemID(productID, size string) string {
	return uuid.NewSHA1(itemNamespace, []byte(productID+"\x1f"+size)).String()
}

// ToQuoteItem validates sel against product and builds the cart line,
// snapshotting the variation price, or the flat price of an unsized product.
// It has no side effects.
func ToQuoteItem(product domain.Product, sel Selection) (domain.QuoteItem, error) {
	if product.ID == "" {
		return domain.QuoteItem{}, domain.InvalidSelection("product has no id")
	}
	if sel.Quantity < 1 {
		return domain.QuoteItem{}, domain.InvalidSelection("quantity must be at least 1, got %d", sel.Quantity)
	}

	size := strings.TrimSpace(sel.SelectedSize)
	item := domain.QuoteItem{
		ProductID:        product.ID,
		Name:             product.Name,
		Brand:            product.Brand,
		Category:         product.Category,
		Image:            product.Image,
		SKU:              product.SKU,
		Quantity:         sel.Quantity,
		MaterialTestCert: sel.MaterialTestCert,
		LeadTime:         product.LeadTime,
	}
	if !sel.CustomSpecs.IsEmpty() {
		specs := *sel.CustomSpecs
		item.CustomSpecs = &specs
	}

	if product.HasSizes() {
		v, err := resolveVariation(product, size)
		if err != nil {
			return domain.QuoteItem{}, err
		}
		sku := v.SKU
		if sku == "" {
			sku = product.SKU
		}
		item.Size = v.Value
		item.Variation = &domain.ItemVariation{
			SKU:       sku,
			SizeLabel: v.DisplayLabel(),
			UnitPrice: v.Price,
		}
	} else {
		if size == "" {
			size = domain.UnsizedLabel
		}
		item.Size = size
		// A flat catalog price is snapshotted like a variation price.
		if product.Price.IsPriced() {
			item.Variation = &domain.ItemVariation{
				SKU:       product.SKU,
				SizeLabel: size,
				UnitPrice: product.Price,
			}
		}
	}

	item.ID = ItemID(product.ID, item.Size)
	return item, nil
}

func resolveVariation(product domain.Product, size string) (domain.SizeVariation, error) {
	if size == "" {
		if len(product.SizeVariations) == 1 {
			return product.SizeVariations[0], nil
		}
		return domain.SizeVariation{}, domain.InvalidSelection("please select a size for %s", product.Name)
	}
	v, ok := product.FindVariation(size)
	if !ok {
		return domain.SizeVariation{}, domain.InvalidSelection("size %q is not available for %s", size, product.Name)
	}
	return v, nil
}

// Preview is the price a customer would see before adding to the cart.
type Preview struct {
	UnitPrice       domain.Price
	DiscountPercent int
	DiscountedUnit  domain.Price
	LineTotal       domain.Price
	CartQuantity    int
}

// PreviewPrice prices quantity units of product in size as if they were
// added to a cart already holding cartQuantity units. Products without
// sizes fall back to their flat price for display only.
func PreviewPrice(product domain.Product, size string, quantity, cartQuantity int) (Preview, error) {
	if quantity < 1 {
		return Preview{}, domain.InvalidSelection("quantity must be at least 1, got %d", quantity)
	}

	unit := product.Price
	if product.HasSizes() {
		v, err := resolveVariation(product, strings.TrimSpace(size))
		if err != nil {
			return Preview{}, err
		}
		unit = v.Price
	}

	after := cartQuantity + quantity
	p := Preview{
		UnitPrice:       unit,
		DiscountPercent: pricing.TierFor(after),
		DiscountedUnit:  pricing.DiscountedUnitPrice(unit, after),
		LineTotal:       domain.Unpriced,
		CartQuantity:    after,
	}
	if _, ok := unit.Amount(); ok {
		p.LineTotal = pricing.Subtotal(domain.QuoteItem{
			Quantity:  quantity,
			Variation: &domain.ItemVariation{UnitPrice: p.DiscountedUnit},
		})
	}
	return p, nil
}
