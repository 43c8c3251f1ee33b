package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/partsquote/internal/catalog/memory"
	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/internal/event"
	"github.com/utafrali/partsquote/internal/quote"
	"github.com/utafrali/partsquote/internal/quoteitem"
	apperrors "github.com/utafrali/partsquote/pkg/errors"
	pkgkafka "github.com/utafrali/partsquote/pkg/kafka"
	"github.com/utafrali/partsquote/pkg/validator"
)

// --- Mock Repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, sessionID string) (*domain.QuoteCart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuoteCart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.QuoteCart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// --- Fakes ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pkgkafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, evt *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

type fakeSubmitter struct {
	mu      sync.Mutex
	got     []quote.Submission
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSubmitter) Submit(_ context.Context, sub quote.Submission) error {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, sub)
	return f.err
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testDeps struct {
	repo      *mockCartRepository
	publisher *recordingPublisher
	submitter *fakeSubmitter
}

func newTestService(cfg Config) (*CartService, *testDeps) {
	logger := newTestLogger()
	deps := &testDeps{
		repo:      new(mockCartRepository),
		publisher: &recordingPublisher{},
		submitter: &fakeSubmitter{},
	}
	svc := NewCartService(
		deps.repo,
		memory.New(memory.SeedProducts()...),
		event.NewProducer(deps.publisher, logger),
		deps.submitter,
		logger,
		cfg,
	)
	return svc, deps
}

func mustItem(t *testing.T, productID, size string, qty int) domain.QuoteItem {
	t.Helper()
	cat := memory.New(memory.SeedProducts()...)
	p, err := cat.GetByID(context.Background(), productID)
	require.NoError(t, err)
	item, err := quoteitem.ToQuoteItem(*p, quoteitem.Selection{SelectedSize: size, Quantity: qty})
	require.NoError(t, err)
	return item
}

func storedCart(version int, items ...domain.QuoteItem) *domain.QuoteCart {
	now := time.Now().UTC()
	return &domain.QuoteCart{
		ID:        "cart-123",
		SessionID: "sess-1",
		Schema:    domain.CartSchemaVersion,
		Version:   version,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func notFound() error {
	return apperrors.NotFound("quote cart", "sess-1")
}

func validContact() quote.Contact {
	return quote.Contact{
		CompanyName: "Acme Water",
		ContactName: "Jo Smith",
		Email:       "jo@example.com",
		Phone:       "0400 000 000",
		DeliveryAddress: quote.Address{
			Street: "12 Dock St", Suburb: "Fremantle", State: "WA", Postcode: "6160",
		},
		BillingSameAsDelivery: true,
	}
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// ============================================================================
// GetCart
// ============================================================================

func TestGetCart_Empty(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(nil, notFound())

	view, err := svc.GetCart(ctx, "sess-1")

	require.NoError(t, err)
	assert.NotEmpty(t, view.Cart.ID)
	assert.Equal(t, "sess-1", view.Cart.SessionID)
	assert.True(t, view.Store.IsEmpty())
	assert.NotZero(t, view.Cart.ExpiresAt)
	deps.repo.AssertExpectations(t)
	deps.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestGetCart_Existing(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(2, mustItem(t, "BFLYW316", "50mm", 3)), nil)

	view, err := svc.GetCart(ctx, "sess-1")

	require.NoError(t, err)
	assert.Equal(t, 2, view.Cart.Version)
	assert.Equal(t, 3, view.Store.TotalQuantity())
	assert.Equal(t, 5, view.Store.DiscountPercent())
}

func TestGetCart_SessionRequired(t *testing.T) {
	svc, _ := newTestService(DefaultConfig())

	_, err := svc.GetCart(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGetCart_RepositoryError(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(nil, errors.New("redis: connection refused"))

	_, err := svc.GetCart(ctx, "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get quote cart")
}

// ============================================================================
// AddItem
// ============================================================================

func TestAddItem_NewCart(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(nil, notFound())
	deps.repo.On("Save", ctx, mock.MatchedBy(func(c *domain.QuoteCart) bool {
		return len(c.Items) == 1 && c.Items[0].Quantity == 2 && c.Items[0].Size == "80mm"
	})).Return(nil)

	before := counterValue(t, discountTierChanges.WithLabelValues("up"))
	view, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: "BFLYW316", SelectedSize: "80mm", Quantity: 2})

	require.NoError(t, err)
	require.Equal(t, 1, view.Store.ItemCount())
	item := view.Store.Items()[0]
	assert.Equal(t, quoteitem.ItemID("BFLYW316", "80mm"), item.ID)
	assert.True(t, item.UnitPrice().Equal(domain.PriceFromFloat(375)))
	assert.Equal(t, 0, view.PreviousDiscount)
	assert.True(t, view.DiscountUnlocked)
	assert.Equal(t, before+1, counterValue(t, discountTierChanges.WithLabelValues("up")))
	assert.Equal(t, []string{"cart.updated"}, deps.publisher.types())
	deps.repo.AssertExpectations(t)
}

func TestAddItem_MergesSameProductAndSize(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, mustItem(t, "BFLYW316", "50mm", 1)), nil)
	deps.repo.On("Save", ctx, mock.AnythingOfType("*domain.QuoteCart")).Return(nil)

	view, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: "BFLYW316", SelectedSize: "50mm", Quantity: 2, MaterialTestCert: true})

	require.NoError(t, err)
	require.Equal(t, 1, view.Store.ItemCount())
	item := view.Store.Items()[0]
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, item.MaterialTestCert)
	assert.True(t, view.DiscountUnlocked)
}

func TestAddItem_NoUnlockWithinTier(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, mustItem(t, "BFLYW316", "50mm", 2)), nil)
	deps.repo.On("Save", ctx, mock.Anything).Return(nil)

	view, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductSlug: "flange-gasket-epdm", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, 2, view.Store.ItemCount())
	assert.Equal(t, 5, view.PreviousDiscount)
	assert.False(t, view.DiscountUnlocked)

	gasket := view.Store.Items()[1]
	assert.Equal(t, domain.UnsizedLabel, gasket.Size)
	assert.True(t, gasket.UnitPrice().Equal(domain.PriceFromFloat(18.9)))
}

func TestAddItem_InvalidSize(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())

	_, err := svc.AddItem(context.Background(), "sess-1", AddItemInput{ProductID: "BFLYW316", SelectedSize: "999mm", Quantity: 1})

	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.HTTPStatus(err))
	deps.repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestAddItem_MissingSizeOnMultiSizeProduct(t *testing.T) {
	svc, _ := newTestService(DefaultConfig())

	_, err := svc.AddItem(context.Background(), "sess-1", AddItemInput{ProductID: "BFLYW316", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _ := newTestService(DefaultConfig())

	_, err := svc.AddItem(context.Background(), "sess-1", AddItemInput{ProductID: "NOPE", Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddItem_NoProductReference(t *testing.T) {
	svc, _ := newTestService(DefaultConfig())

	_, err := svc.AddItem(context.Background(), "sess-1", AddItemInput{Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddItem_Limits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCartLines = 1
	cfg.MaxLineQuantity = 10

	tests := []struct {
		name  string
		input AddItemInput
	}{
		{name: "quantity above line limit", input: AddItemInput{ProductID: "BFLYW316", SelectedSize: "50mm", Quantity: 11}},
		{name: "merged quantity above line limit", input: AddItemInput{ProductID: "BFLYW316", SelectedSize: "50mm", Quantity: 5}},
		{name: "new line above cart limit", input: AddItemInput{ProductID: "BFLYW316", SelectedSize: "80mm", Quantity: 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, deps := newTestService(cfg)
			ctx := context.Background()
			deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, mustItem(t, "BFLYW316", "50mm", 6)), nil).Maybe()

			_, err := svc.AddItem(ctx, "sess-1", tc.input)

			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			deps.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestAddItem_RetriesAfterConflict(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	stale := storedCart(1, mustItem(t, "BFLYW316", "50mm", 1))
	fresh := storedCart(2, mustItem(t, "BFLYW316", "50mm", 4))

	deps.repo.On("Get", ctx, "sess-1").Return(stale, nil).Once()
	deps.repo.On("Save", ctx, stale).Return(apperrors.Conflict("CONFLICT", "modified concurrently")).Once()
	deps.repo.On("Get", ctx, "sess-1").Return(fresh, nil).Once()
	deps.repo.On("Save", ctx, fresh).Return(nil).Once()

	view, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: "BFLYW316", SelectedSize: "50mm", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, 5, view.Store.TotalQuantity())
	assert.Same(t, fresh, view.Cart)
	deps.repo.AssertExpectations(t)
	assert.Len(t, deps.publisher.types(), 1)
}

func TestAddItem_ConflictPersists(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(nil, notFound())
	deps.repo.On("Save", ctx, mock.Anything).Return(apperrors.Conflict("CONFLICT", "modified concurrently"))

	_, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: "DUCKBILL-CV", Quantity: 1})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(err))
	deps.repo.AssertNumberOfCalls(t, "Save", maxSaveAttempts)
	assert.Empty(t, deps.publisher.types())
}

func TestAddItem_PublishFailureIsIgnored(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()
	deps.publisher.err = errors.New("broker down")

	deps.repo.On("Get", ctx, "sess-1").Return(nil, notFound())
	deps.repo.On("Save", ctx, mock.Anything).Return(nil)

	_, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: "DJ-REPAIR-CLAMP", Quantity: 1})
	assert.NoError(t, err)
}

// ============================================================================
// UpdateItemQuantity / RemoveItem / ToggleMaterialCert
// ============================================================================

func TestUpdateItemQuantity(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()
	item := mustItem(t, "BFLYW316", "50mm", 1)

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, item), nil)
	deps.repo.On("Save", ctx, mock.Anything).Return(nil)

	view, err := svc.UpdateItemQuantity(ctx, "sess-1", item.ID, 10)

	require.NoError(t, err)
	assert.Equal(t, 10, view.Store.TotalQuantity())
	assert.Equal(t, 15, view.Store.DiscountPercent())
	assert.True(t, view.DiscountUnlocked)
}

func TestUpdateItemQuantity_ClampsToOne(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()
	item := mustItem(t, "BFLYW316", "50mm", 5)

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, item), nil)
	deps.repo.On("Save", ctx, mock.Anything).Return(nil)

	before := counterValue(t, discountTierChanges.WithLabelValues("down"))
	view, err := svc.UpdateItemQuantity(ctx, "sess-1", item.ID, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, view.Store.TotalQuantity())
	assert.False(t, view.DiscountUnlocked)
	assert.Equal(t, before+1, counterValue(t, discountTierChanges.WithLabelValues("down")))
}

func TestUpdateItemQuantity_UnknownItemIsNoop(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, mustItem(t, "BFLYW316", "50mm", 1)), nil)

	view, err := svc.UpdateItemQuantity(ctx, "sess-1", "missing", 4)

	require.NoError(t, err)
	assert.Equal(t, 1, view.Store.TotalQuantity())
	deps.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, deps.publisher.types())
}

func TestRemoveItem(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()
	a := mustItem(t, "BFLYW316", "50mm", 1)
	b := mustItem(t, "DUCKBILL-CV", "", 1)

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, a, b), nil)
	deps.repo.On("Save", ctx, mock.MatchedBy(func(c *domain.QuoteCart) bool {
		return len(c.Items) == 1 && c.Items[0].ID == b.ID
	})).Return(nil)

	view, err := svc.RemoveItem(ctx, "sess-1", a.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, view.Store.ItemCount())
	deps.repo.AssertExpectations(t)
}

func TestRemoveItem_Idempotent(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(nil, notFound())

	view, err := svc.RemoveItem(ctx, "sess-1", "missing")

	require.NoError(t, err)
	assert.True(t, view.Store.IsEmpty())
	deps.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestToggleMaterialCert(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()
	item := mustItem(t, "DJ-REPAIR-CLAMP", "", 2)

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, item), nil)
	deps.repo.On("Save", ctx, mock.Anything).Return(nil)

	view, err := svc.ToggleMaterialCert(ctx, "sess-1", item.ID)

	require.NoError(t, err)
	got, ok := view.Store.Item(item.ID)
	require.True(t, ok)
	assert.True(t, got.MaterialTestCert)
	assert.Equal(t, 1, view.Store.Totals().CertificateCount)
}

// ============================================================================
// ClearCart
// ============================================================================

func TestClearCart(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Delete", ctx, "sess-1").Return(nil)

	require.NoError(t, svc.ClearCart(ctx, "sess-1"))
	deps.repo.AssertExpectations(t)
	assert.Equal(t, []string{"cart.cleared"}, deps.publisher.types())
}

func TestClearCart_RepositoryError(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Delete", ctx, "sess-1").Return(errors.New("redis down"))

	err := svc.ClearCart(ctx, "sess-1")
	require.Error(t, err)
	assert.Empty(t, deps.publisher.types())
}

// ============================================================================
// Payload / Preview
// ============================================================================

func TestPayload(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1,
		mustItem(t, "BFLYW316", "50mm", 3),
		mustItem(t, "DJ-REPAIR-CLAMP", "", 1),
	), nil)

	payload, err := svc.Payload(ctx, "sess-1")

	require.NoError(t, err)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, 4, payload.Totals.TotalQuantity)
	assert.Equal(t, 5, payload.Totals.DiscountPercent)
	assert.True(t, payload.Totals.HasUnpricedItems)
	assert.Equal(t, "812.25", payload.Totals.PricedTotal.StringFixed(2))
	assert.NoError(t, quote.Verify(payload, svc.PricingConfig()))
}

func TestPreview_AgainstCart(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, mustItem(t, "DUCKBILL-CV", "", 3)), nil)

	preview, product, err := svc.Preview(ctx, "sess-1", PreviewInput{ProductID: "BFLYW316", SelectedSize: "50mm", Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, "BFLYW316", product.ID)
	assert.Equal(t, 5, preview.CartQuantity)
	assert.Equal(t, 10, preview.DiscountPercent)
	amount, ok := preview.DiscountedUnit.Amount()
	require.True(t, ok)
	assert.Equal(t, "256.50", amount.StringFixed(2))
}

func TestPreview_WithoutSession(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())

	preview, _, err := svc.Preview(context.Background(), "", PreviewInput{ProductSlug: "flange-gasket-epdm", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, 0, preview.DiscountPercent)
	assert.True(t, preview.UnitPrice.Equal(domain.PriceFromFloat(18.9)))
	deps.repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// ============================================================================
// Submit
// ============================================================================

func TestSubmit_Success(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(3,
		mustItem(t, "BFLYW316", "100mm", 4),
		mustItem(t, "DUCKBILL-CV", "", 8),
	), nil)
	deps.repo.On("Delete", ctx, "sess-1").Return(nil)

	sub, err := svc.Submit(ctx, "sess-1", validContact())

	require.NoError(t, err)
	assert.NotEmpty(t, sub.Reference)
	assert.Equal(t, 12, sub.Totals.TotalQuantity)
	assert.Equal(t, 15, sub.Totals.DiscountPercent)
	assert.True(t, sub.Flags.IsLargeOrder)
	assert.True(t, sub.Flags.HasLongLeadTime)
	assert.Equal(t, quote.ZoneMetro, sub.Flags.DeliveryZone)
	assert.Equal(t, sub.DeliveryAddress, sub.BillingAddress)

	require.Len(t, deps.submitter.got, 1)
	assert.Equal(t, sub.Reference, deps.submitter.got[0].Reference)
	assert.NoError(t, quote.Verify(deps.submitter.got[0].Payload, svc.PricingConfig()))
	deps.repo.AssertExpectations(t)
	assert.Equal(t, []string{"quote.submitted", "cart.cleared"}, deps.publisher.types())
}

func TestSubmit_FailureKeepsCart(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()
	deps.submitter.err = domain.SubmissionFailure(errors.New("intake returned 503"))

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, mustItem(t, "BFLYW316", "50mm", 1)), nil)

	_, err := svc.Submit(ctx, "sess-1", validContact())

	assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
	deps.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Empty(t, deps.publisher.types())
}

func TestSubmit_EmptyCart(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()

	deps.repo.On("Get", ctx, "sess-1").Return(nil, notFound())

	_, err := svc.Submit(ctx, "sess-1", validContact())

	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.HTTPStatus(err))
	assert.Empty(t, deps.submitter.got)
}

func TestSubmit_InvalidContact(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	contact := validContact()
	contact.Email = "not-an-email"
	contact.DeliveryAddress.Postcode = "61"

	_, err := svc.Submit(context.Background(), "sess-1", contact)

	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "email")
	assert.Contains(t, valErr.Fields(), "deliveryAddress.postcode")
	deps.repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSubmit_ConcurrentSubmitRejected(t *testing.T) {
	svc, deps := newTestService(DefaultConfig())
	ctx := context.Background()
	deps.submitter.started = make(chan struct{})
	deps.submitter.release = make(chan struct{})

	deps.repo.On("Get", ctx, "sess-1").Return(storedCart(1, mustItem(t, "BFLYW316", "50mm", 1)), nil)
	deps.repo.On("Delete", ctx, "sess-1").Return(nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, "sess-1", validContact())
		done <- err
	}()
	<-deps.submitter.started

	_, err := svc.Submit(ctx, "sess-1", validContact())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SUBMISSION_IN_PROGRESS", appErr.Code)

	close(deps.submitter.release)
	require.NoError(t, <-done)

	// The guard is released once the first submission finishes.
	deps.submitter.started = nil
	_, err = svc.Submit(ctx, "sess-1", validContact())
	assert.NoError(t, err)
}
