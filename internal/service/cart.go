package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/partsquote/internal/cart"
	"github.com/utafrali/partsquote/internal/catalog"
	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/internal/event"
	"github.com/utafrali/partsquote/internal/pricing"
	"github.com/utafrali/partsquote/internal/quote"
	"github.com/utafrali/partsquote/internal/quoteitem"
	"github.com/utafrali/partsquote/internal/repository"
	apperrors "github.com/utafrali/partsquote/pkg/errors"
)

// maxSaveAttempts bounds how often a mutation is replayed after losing an
// optimistic-lock race.
const maxSaveAttempts = 3

// Config holds the cart limits and charges.
type Config struct {
	CartTTL         time.Duration
	MaxLineQuantity int
	MaxCartLines    int
	Pricing         pricing.Config
}

// DefaultConfig returns a one-week TTL and the default charges.
func DefaultConfig() Config {
	return Config{
		CartTTL:         168 * time.Hour,
		MaxLineQuantity: 999,
		MaxCartLines:    50,
		Pricing:         pricing.DefaultConfig(),
	}
}

// AddItemInput holds the parameters for adding a product to the quote.
// Either ProductID or ProductSlug identifies the product.
type AddItemInput struct {
	ProductID        string              `json:"product_id" validate:"required_without=ProductSlug,max=100"`
	ProductSlug      string              `json:"product_slug" validate:"required_without=ProductID,max=200"`
	SelectedSize     string              `json:"selected_size" validate:"max=100"`
	Quantity         int                 `json:"quantity" validate:"required,gte=1"`
	MaterialTestCert bool                `json:"material_test_cert"`
	CustomSpecs      *domain.CustomSpecs `json:"custom_specs"`
}

// PreviewInput identifies the product, size and quantity to price.
type PreviewInput struct {
	ProductID    string
	ProductSlug  string
	SelectedSize string
	Quantity     int
}

// Submitter delivers a submission to the quote intake endpoint.
type Submitter interface {
	Submit(ctx context.Context, sub quote.Submission) error
}

// CartView is the state of a session's cart after an operation.
type CartView struct {
	Cart  *domain.QuoteCart
	Store *cart.Store

	// PreviousDiscount is the tier before the operation ran.
	PreviousDiscount int
	// DiscountUnlocked is set when the operation moved the cart into a
	// higher discount tier.
	DiscountUnlocked bool
}

// CartService implements the business logic for quote cart operations.
type CartService struct {
	repo      repository.CartRepository
	catalog   catalog.Repository
	producer  *event.Producer
	submitter Submitter
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time

	submitMu   sync.Mutex
	submitting map[string]struct{}
}

// NewCartService creates a new cart service.
func NewCartService(
	repo repository.CartRepository,
	products catalog.Repository,
	producer *event.Producer,
	submitter Submitter,
	logger *slog.Logger,
	cfg Config,
) *CartService {
	return &CartService{
		repo:       repo,
		catalog:    products,
		producer:   producer,
		submitter:  submitter,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		submitting: make(map[string]struct{}),
	}
}

// PricingConfig returns the charges the service prices carts with.
func (s *CartService) PricingConfig() pricing.Config {
	return s.cfg.Pricing
}

// GetCart returns the session's cart. A session without a stored cart gets
// an empty one, which is not persisted.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*CartView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	stored, store, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &CartView{Cart: stored, Store: store, PreviousDiscount: store.DiscountPercent()}, nil
}

// AddItem looks the product up in the catalog, normalizes the selection into
// a quote line and adds it. Re-adding the same product and size merges into
// the existing line.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if input.Quantity > s.cfg.MaxLineQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", s.cfg.MaxLineQuantity))
	}

	product, err := s.findProduct(ctx, input.ProductID, input.ProductSlug)
	if err != nil {
		return nil, err
	}

	item, err := quoteitem.ToQuoteItem(*product, quoteitem.Selection{
		SelectedSize:     input.SelectedSize,
		Quantity:         input.Quantity,
		MaterialTestCert: input.MaterialTestCert,
		CustomSpecs:      input.CustomSpecs,
	})
	if err != nil {
		return nil, err
	}

	view, err := s.mutate(ctx, sessionID, func(store *cart.Store) (bool, error) {
		existing, found := store.Item(item.ID)
		if !found && store.ItemCount() >= s.cfg.MaxCartLines {
			return false, apperrors.InvalidInput(fmt.Sprintf("a quote must not contain more than %d lines", s.cfg.MaxCartLines))
		}
		if found && existing.Quantity+item.Quantity > s.cfg.MaxLineQuantity {
			return false, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", s.cfg.MaxLineQuantity))
		}
		if err := store.AddItem(item); err != nil {
			return false, apperrors.Unprocessable("INVALID_ITEM", err.Error(), err)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to quote",
		slog.String("session_id", sessionID),
		slog.String("product_id", item.ProductID),
		slog.String("size", item.Size),
		slog.Int("quantity", item.Quantity),
	)
	return view, nil
}

// UpdateItemQuantity sets a line's quantity, clamped to at least 1. An
// unknown item ID leaves the cart unchanged.
func (s *CartService) UpdateItemQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*CartView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if quantity > s.cfg.MaxLineQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", s.cfg.MaxLineQuantity))
	}

	view, err := s.mutate(ctx, sessionID, func(store *cart.Store) (bool, error) {
		before, ok := store.Item(itemID)
		if !ok {
			return false, nil
		}
		store.UpdateQuantity(itemID, quantity)
		after, _ := store.Item(itemID)
		return after.Quantity != before.Quantity, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "quote line quantity updated",
		slog.String("session_id", sessionID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)
	return view, nil
}

// RemoveItem deletes a line. Removing an unknown item is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) (*CartView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	view, err := s.mutate(ctx, sessionID, func(store *cart.Store) (bool, error) {
		return store.RemoveItem(itemID), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "quote line removed",
		slog.String("session_id", sessionID),
		slog.String("item_id", itemID),
	)
	return view, nil
}

// ToggleMaterialCert flips the material test certificate flag of a line.
func (s *CartService) ToggleMaterialCert(ctx context.Context, sessionID, itemID string) (*CartView, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	return s.mutate(ctx, sessionID, func(store *cart.Store) (bool, error) {
		return store.ToggleMaterialCert(itemID), nil
	})
}

// ClearCart removes every line by deleting the stored cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete quote cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, sessionID, event.ClearedByCustomer); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "quote cart cleared",
		slog.String("session_id", sessionID),
	)
	return nil
}

// Payload returns the submission snapshot of the session's cart without
// submitting it.
func (s *CartService) Payload(ctx context.Context, sessionID string) (quote.Payload, error) {
	if sessionID == "" {
		return quote.Payload{}, apperrors.InvalidInput("session id is required")
	}

	_, store, err := s.load(ctx, sessionID)
	if err != nil {
		return quote.Payload{}, err
	}
	return quote.Serialize(store), nil
}

// Preview prices a product and size as if quantity units were added to the
// session's cart. The cart is not modified.
func (s *CartService) Preview(ctx context.Context, sessionID string, input PreviewInput) (quoteitem.Preview, *domain.Product, error) {
	if input.Quantity > s.cfg.MaxLineQuantity {
		return quoteitem.Preview{}, nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", s.cfg.MaxLineQuantity))
	}

	product, err := s.findProduct(ctx, input.ProductID, input.ProductSlug)
	if err != nil {
		return quoteitem.Preview{}, nil, err
	}

	cartQuantity := 0
	if sessionID != "" {
		_, store, err := s.load(ctx, sessionID)
		if err != nil {
			return quoteitem.Preview{}, nil, err
		}
		cartQuantity = store.TotalQuantity()
	}

	preview, err := quoteitem.PreviewPrice(*product, input.SelectedSize, input.Quantity, cartQuantity)
	if err != nil {
		return quoteitem.Preview{}, nil, err
	}
	return preview, product, nil
}

func (s *CartService) findProduct(ctx context.Context, id, slug string) (*domain.Product, error) {
	switch {
	case id != "":
		return s.catalog.GetByID(ctx, id)
	case slug != "":
		return s.catalog.GetBySlug(ctx, slug)
	default:
		return nil, apperrors.InvalidInput("product_id or product_slug is required")
	}
}

// load reads the stored cart and rebuilds a Store from it. A session
// without a stored cart gets a fresh, unsaved one.
func (s *CartService) load(ctx context.Context, sessionID string) (*domain.QuoteCart, *cart.Store, error) {
	stored, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("get quote cart: %w", err)
		}
		stored = s.newEmptyCart(sessionID)
	}

	store, dropped := cart.Restore(s.cfg.Pricing, stored.Items)
	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped invalid quote lines on restore",
			slog.String("session_id", sessionID),
			slog.Int("dropped", dropped),
		)
	}
	return stored, store, nil
}

// mutate loads the cart, applies fn and saves the result with an
// optimistic version check. When the save loses a race the whole cycle is
// replayed against the fresh state. fn reports whether it changed anything;
// unchanged carts are neither saved nor published.
func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*cart.Store) (bool, error)) (*CartView, error) {
	for attempt := 1; ; attempt++ {
		stored, store, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		before := store.DiscountPercent()
		changed, err := fn(store)
		if err != nil {
			return nil, err
		}

		view := &CartView{Cart: stored, Store: store, PreviousDiscount: before}
		if !changed {
			return view, nil
		}

		stored.Items = store.Items()
		stored.UpdatedAt = s.now()

		err = s.repo.Save(ctx, stored)
		if errors.Is(err, apperrors.ErrConflict) && attempt < maxSaveAttempts {
			s.logger.DebugContext(ctx, "quote cart save lost a race, retrying",
				slog.String("session_id", sessionID),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("save quote cart: %w", err)
		}

		after := store.DiscountPercent()
		view.DiscountUnlocked = after > before
		s.recordTierChange(ctx, sessionID, before, after)

		if err := s.producer.PublishCartUpdated(ctx, stored, store.Totals(), view.DiscountUnlocked); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
		return view, nil
	}
}

func (s *CartService) recordTierChange(ctx context.Context, sessionID string, before, after int) {
	switch {
	case after > before:
		discountTierChanges.WithLabelValues("up").Inc()
		s.logger.InfoContext(ctx, "discount tier unlocked",
			slog.String("session_id", sessionID),
			slog.Int("from_percent", before),
			slog.Int("to_percent", after),
		)
	case after < before:
		discountTierChanges.WithLabelValues("down").Inc()
	}
}

// newEmptyCart creates a new empty cart for the given session.
func (s *CartService) newEmptyCart(sessionID string) *domain.QuoteCart {
	now := s.now()
	return &domain.QuoteCart{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Schema:    domain.CartSchemaVersion,
		Items:     []domain.QuoteItem{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cfg.CartTTL),
	}
}
