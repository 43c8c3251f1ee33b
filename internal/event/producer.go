package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/internal/pricing"
	"github.com/utafrali/partsquote/internal/quote"
	pkgkafka "github.com/utafrali/partsquote/pkg/kafka"
	"github.com/utafrali/partsquote/pkg/logger"
)

// Kafka topics for quote cart events.
var (
	TopicCartUpdated    = pkgkafka.Topic("cart", "updated")
	TopicCartCleared    = pkgkafka.Topic("cart", "cleared")
	TopicQuoteSubmitted = pkgkafka.Topic("quote", "submitted")
)

// AggregateTypeQuoteCart is the aggregate every event is keyed on. The
// aggregate ID is the session ID.
const AggregateTypeQuoteCart = "quote_cart"

// Source identifies this service in the event envelope.
const Source = "partsquote"

// Reasons carried by cart.cleared.
const (
	ClearedByCustomer  = "cleared"
	ClearedBySubmitted = "submitted"
)

// CartUpdatedData is the payload for cart.updated.
type CartUpdatedData struct {
	SessionID        string     `json:"session_id"`
	CartID           string     `json:"cart_id"`
	Items            []ItemData `json:"items"`
	ItemCount        int        `json:"item_count"`
	TotalQuantity    int        `json:"total_quantity"`
	DiscountPercent  int        `json:"discount_percent"`
	DiscountUnlocked bool       `json:"discount_unlocked"`
	PricedSubtotal   string     `json:"priced_subtotal"`
	DiscountedTotal  string     `json:"discounted_total"`
	HasUnpricedItems bool       `json:"has_unpriced_items"`
}

// ItemData is one cart line within cart events.
type ItemData struct {
	ItemID           string `json:"item_id"`
	ProductID        string `json:"product_id"`
	SKU              string `json:"sku,omitempty"`
	Size             string `json:"size"`
	Quantity         int    `json:"quantity"`
	UnitPrice        string `json:"unit_price,omitempty"`
	MaterialTestCert bool   `json:"material_test_cert"`
}

// CartClearedData is the payload for cart.cleared.
type CartClearedData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// QuoteSubmittedData is the payload for quote.submitted.
type QuoteSubmittedData struct {
	SessionID        string    `json:"session_id"`
	Reference        string    `json:"reference"`
	CompanyName      string    `json:"company_name,omitempty"`
	ContactName      string    `json:"contact_name"`
	Email            string    `json:"email"`
	ItemCount        int       `json:"item_count"`
	TotalQuantity    int       `json:"total_quantity"`
	DiscountPercent  int       `json:"discount_percent"`
	PricedTotal      string    `json:"priced_total"`
	HasUnpricedItems bool      `json:"has_unpriced_items"`
	DeliveryZone     string    `json:"delivery_zone"`
	LargeOrder       bool      `json:"large_order"`
	LongLeadTime     bool      `json:"long_lead_time"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// Publisher sends an envelope to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes quote cart domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishCartUpdated publishes cart.updated with the cart's current lines
// and totals.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.QuoteCart, totals pricing.Totals, unlocked bool) error {
	items := make([]ItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = ItemData{
			ItemID:           item.ID,
			ProductID:        item.ProductID,
			SKU:              item.SKU,
			Size:             item.Size,
			Quantity:         item.Quantity,
			MaterialTestCert: item.MaterialTestCert,
		}
		if amount, ok := item.UnitPrice().Amount(); ok {
			items[i].UnitPrice = amount.StringFixed(2)
		}
	}

	data := CartUpdatedData{
		SessionID:        cart.SessionID,
		CartID:           cart.ID,
		Items:            items,
		ItemCount:        totals.ItemCount,
		TotalQuantity:    totals.TotalQuantity,
		DiscountPercent:  totals.DiscountPercent,
		DiscountUnlocked: unlocked,
		PricedSubtotal:   totals.PricedSubtotal.StringFixed(2),
		DiscountedTotal:  totals.DiscountedTotal.StringFixed(2),
		HasUnpricedItems: totals.HasUnpricedItems,
	}

	return p.publish(ctx, TopicCartUpdated, "cart.updated", cart.SessionID, cart.Version, data)
}

// PublishCartCleared publishes cart.cleared.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID, reason string) error {
	data := CartClearedData{SessionID: sessionID, Reason: reason}
	return p.publish(ctx, TopicCartCleared, "cart.cleared", sessionID, 0, data)
}

// PublishQuoteSubmitted publishes quote.submitted once the intake endpoint
// has accepted the quote.
func (p *Producer) PublishQuoteSubmitted(ctx context.Context, sessionID string, sub quote.Submission) error {
	data := QuoteSubmittedData{
		SessionID:        sessionID,
		Reference:        sub.Reference,
		CompanyName:      sub.CompanyName,
		ContactName:      sub.ContactName,
		Email:            sub.Email,
		ItemCount:        sub.Totals.ItemCount,
		TotalQuantity:    sub.Totals.TotalQuantity,
		DiscountPercent:  sub.Totals.DiscountPercent,
		PricedTotal:      sub.Totals.PricedTotal.StringFixed(2),
		HasUnpricedItems: sub.Totals.HasUnpricedItems,
		DeliveryZone:     string(sub.Flags.DeliveryZone),
		LargeOrder:       sub.Flags.IsLargeOrder,
		LongLeadTime:     sub.Flags.HasLongLeadTime,
		SubmittedAt:      sub.SubmittedAt,
	}
	return p.publish(ctx, TopicQuoteSubmitted, "quote.submitted", sessionID, 0, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, sessionID string, version int, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, sessionID, AggregateTypeQuoteCart, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if version > 0 {
		evt.WithAggregateVersion(version)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published "+eventType+" event",
		slog.String("session_id", sessionID),
		slog.String("event_id", evt.EventID),
	)
	return nil
}

// NopPublisher drops events. It stands in for Kafka when no brokers are
// configured.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
