package http

import (
	"time"

	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/internal/pricing"
	"github.com/utafrali/partsquote/internal/quote"
	"github.com/utafrali/partsquote/internal/quoteitem"
	"github.com/utafrali/partsquote/internal/search"
	"github.com/utafrali/partsquote/internal/service"
)

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the quote.
type AddItemRequest struct {
	ProductID        string              `json:"product_id" validate:"required_without=ProductSlug,max=100"`
	ProductSlug      string              `json:"product_slug" validate:"required_without=ProductID,max=200"`
	SelectedSize     string              `json:"selected_size" validate:"max=100"`
	Quantity         int                 `json:"quantity" validate:"required,gte=1"`
	MaterialTestCert bool                `json:"material_test_cert"`
	CustomSpecs      *domain.CustomSpecs `json:"custom_specs"`
}

// UpdateQuantityRequest is the JSON request body for changing a line's
// quantity. Values below 1 are clamped to 1.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// --- Response DTOs ---

// CartResponse is the cart view returned by every quote endpoint.
type CartResponse struct {
	ID               string            `json:"id"`
	Version          int               `json:"version"`
	Lines            []LineResponse    `json:"lines"`
	Totals           TotalsResponse    `json:"totals"`
	Tiers            []TierResponse    `json:"tiers"`
	NextTier         *NextTierResponse `json:"next_tier,omitempty"`
	DiscountUnlocked bool              `json:"discount_unlocked"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// LineResponse is one quote line with its pricing breakdown. Prices are
// rounded to cents and null when the line is price on application.
type LineResponse struct {
	ID                  string              `json:"id"`
	ProductID           string              `json:"product_id"`
	Name                string              `json:"name"`
	Brand               string              `json:"brand,omitempty"`
	Category            string              `json:"category,omitempty"`
	Image               string              `json:"image,omitempty"`
	SKU                 string              `json:"sku,omitempty"`
	Size                string              `json:"size"`
	SizeLabel           string              `json:"size_label"`
	Quantity            int                 `json:"quantity"`
	MaterialTestCert    bool                `json:"material_test_cert"`
	CustomSpecs         *domain.CustomSpecs `json:"custom_specs,omitempty"`
	LeadTime            string              `json:"lead_time,omitempty"`
	Priced              bool                `json:"priced"`
	UnitPrice           domain.Price        `json:"unit_price"`
	DiscountedUnitPrice domain.Price        `json:"discounted_unit_price"`
	Subtotal            domain.Price        `json:"subtotal"`
	DiscountedSubtotal  domain.Price        `json:"discounted_subtotal"`
	Savings             quote.Money         `json:"savings"`
}

// TotalsResponse carries the cart-wide totals.
type TotalsResponse struct {
	ItemCount        int         `json:"item_count"`
	TotalQuantity    int         `json:"total_quantity"`
	DiscountPercent  int         `json:"discount_percent"`
	PricedSubtotal   quote.Money `json:"priced_subtotal"`
	DiscountedTotal  quote.Money `json:"discounted_total"`
	TotalSavings     quote.Money `json:"total_savings"`
	CertificateCount int         `json:"certificate_count"`
	CertificateFee   quote.Money `json:"certificate_fee"`
	GrandTotal       quote.Money `json:"grand_total"`
	Tax              quote.Money `json:"tax"`
	GrandTotalIncTax quote.Money `json:"grand_total_inc_tax"`
	HasUnpricedItems bool        `json:"has_unpriced_items"`
	UnpricedCount    int         `json:"unpriced_count"`
}

// TierResponse describes one volume discount tier.
type TierResponse struct {
	MinQuantity int    `json:"min_quantity"`
	Percent     int    `json:"percent"`
	Label       string `json:"label"`
	Active      bool   `json:"active"`
}

// NextTierResponse tells the customer how many more units unlock the next
// discount.
type NextTierResponse struct {
	MinQuantity int    `json:"min_quantity"`
	Percent     int    `json:"percent"`
	UnitsNeeded int    `json:"units_needed"`
	Label       string `json:"label"`
}

// PreviewResponse is the price preview for a product selection.
type PreviewResponse struct {
	ProductID           string       `json:"product_id"`
	ProductName         string       `json:"product_name"`
	Size                string       `json:"size,omitempty"`
	Quantity            int          `json:"quantity"`
	Priced              bool         `json:"priced"`
	UnitPrice           domain.Price `json:"unit_price"`
	DiscountPercent     int          `json:"discount_percent"`
	DiscountedUnitPrice domain.Price `json:"discounted_unit_price"`
	LineTotal           domain.Price `json:"line_total"`
	CartQuantity        int          `json:"cart_quantity"`
}

// SubmitResponse acknowledges an accepted quote request.
type SubmitResponse struct {
	Reference    string       `json:"reference"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	Totals       quote.Totals `json:"totals"`
	Flags        quote.Flags  `json:"flags"`
	FlagsSummary string       `json:"flags_summary"`
}

// SearchResponse wraps search results. Superseded is set when a newer
// query from the same client replaced this one.
type SearchResponse struct {
	Query      string          `json:"query"`
	Results    []search.Result `json:"results"`
	Superseded bool            `json:"superseded,omitempty"`
}

// --- Mappers ---

func toCartResponse(view *service.CartView) CartResponse {
	totals := view.Store.Totals()
	lines := view.Store.Lines()

	resp := CartResponse{
		ID:               view.Cart.ID,
		Version:          view.Cart.Version,
		Lines:            make([]LineResponse, 0, len(lines)),
		Totals:           toTotalsResponse(totals),
		Tiers:            toTierResponses(totals.TotalQuantity),
		DiscountUnlocked: view.DiscountUnlocked,
		UpdatedAt:        view.Cart.UpdatedAt,
	}
	for _, line := range lines {
		resp.Lines = append(resp.Lines, toLineResponse(line))
	}
	if next, need, ok := pricing.NextTier(totals.TotalQuantity); ok {
		resp.NextTier = &NextTierResponse{
			MinQuantity: next.MinQuantity,
			Percent:     next.Percent,
			UnitsNeeded: need,
			Label:       next.Label(),
		}
	}
	return resp
}

func toLineResponse(line pricing.Line) LineResponse {
	item := line.Item
	return LineResponse{
		ID:                  item.ID,
		ProductID:           item.ProductID,
		Name:                item.Name,
		Brand:               item.Brand,
		Category:            item.Category,
		Image:               item.Image,
		SKU:                 lineSKU(item),
		Size:                item.Size,
		SizeLabel:           item.SizeLabel(),
		Quantity:            item.Quantity,
		MaterialTestCert:    item.MaterialTestCert,
		CustomSpecs:         item.CustomSpecs,
		LeadTime:            item.LeadTime,
		Priced:              line.UnitPrice.IsPriced(),
		UnitPrice:           pricing.RoundPrice(line.UnitPrice),
		DiscountedUnitPrice: pricing.RoundPrice(line.DiscountedUnit),
		Subtotal:            pricing.RoundPrice(line.Subtotal),
		DiscountedSubtotal:  pricing.RoundPrice(line.DiscountedSubtotal),
		Savings:             quote.NewMoney(line.Savings),
	}
}

func lineSKU(item domain.QuoteItem) string {
	if item.Variation != nil && item.Variation.SKU != "" {
		return item.Variation.SKU
	}
	return item.SKU
}

func toTotalsResponse(t pricing.Totals) TotalsResponse {
	return TotalsResponse{
		ItemCount:        t.ItemCount,
		TotalQuantity:    t.TotalQuantity,
		DiscountPercent:  t.DiscountPercent,
		PricedSubtotal:   quote.NewMoney(t.PricedSubtotal),
		DiscountedTotal:  quote.NewMoney(t.DiscountedTotal),
		TotalSavings:     quote.NewMoney(t.TotalSavings),
		CertificateCount: t.CertificateCount,
		CertificateFee:   quote.NewMoney(t.CertificateFee),
		GrandTotal:       quote.NewMoney(t.GrandTotal),
		Tax:              quote.NewMoney(t.Tax),
		GrandTotalIncTax: quote.NewMoney(t.GrandTotalIncTax),
		HasUnpricedItems: t.HasUnpricedItems,
		UnpricedCount:    t.UnpricedCount,
	}
}

func toTierResponses(totalQuantity int) []TierResponse {
	active := pricing.TierFor(totalQuantity)
	tiers := pricing.Tiers()
	out := make([]TierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, TierResponse{
			MinQuantity: t.MinQuantity,
			Percent:     t.Percent,
			Label:       t.Label(),
			Active:      t.Percent == active,
		})
	}
	return out
}

func toPreviewResponse(p quoteitem.Preview, product *domain.Product, size string, quantity int) PreviewResponse {
	return PreviewResponse{
		ProductID:           product.ID,
		ProductName:         product.Name,
		Size:                size,
		Quantity:            quantity,
		Priced:              p.UnitPrice.IsPriced(),
		UnitPrice:           pricing.RoundPrice(p.UnitPrice),
		DiscountPercent:     p.DiscountPercent,
		DiscountedUnitPrice: pricing.RoundPrice(p.DiscountedUnit),
		LineTotal:           pricing.RoundPrice(p.LineTotal),
		CartQuantity:        p.CartQuantity,
	}
}

func toSubmitResponse(sub *quote.Submission) SubmitResponse {
	return SubmitResponse{
		Reference:    sub.Reference,
		SubmittedAt:  sub.SubmittedAt,
		Totals:       sub.Totals,
		Flags:        sub.Flags,
		FlagsSummary: sub.Flags.Summary(),
	}
}
