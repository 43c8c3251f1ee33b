package quote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/partsquote/internal/domain"
	apperrors "github.com/utafrali/partsquote/pkg/errors"
	"github.com/utafrali/partsquote/pkg/httpclient"
	"github.com/utafrali/partsquote/pkg/validator"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func validContact() Contact {
	return Contact{
		CompanyName:           "Acme Water",
		ContactName:           "Jordan Lee",
		Email:                 "jordan@example.com",
		Phone:                 "0400 000 000",
		DeliveryAddress:       metroAddress(),
		BillingSameAsDelivery: true,
	}
}

// ============================================================================
// Contact Validation Tests
// ============================================================================

func TestContact_Valid(t *testing.T) {
	assert.NoError(t, validator.Validate(validContact()))
}

func TestContact_InvalidFields(t *testing.T) {
	c := validContact()
	c.Email = "jordan"
	c.DeliveryAddress.Postcode = "60170"
	c.DeliveryAddress.State = "XX"

	err := validator.Validate(c)
	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "deliveryAddress.postcode")
	assert.Contains(t, fields, "deliveryAddress.state")
}

func TestContact_BillingRequiredWhenNotSameAsDelivery(t *testing.T) {
	c := validContact()
	c.BillingSameAsDelivery = false

	err := validator.Validate(c)
	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["billingAddress"])

	c.BillingAddress = &Address{Street: "1 Hay St", Suburb: "Perth", State: "WA", Postcode: "6000"}
	assert.NoError(t, validator.Validate(c))
}

// ============================================================================
// NewSubmission Tests
// ============================================================================

func TestNewSubmission_BillingFallsBackToDelivery(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("AWST", 8*3600))
	sub := NewSubmission("ref-1", validContact(), Payload{}, Flags{}, now)

	assert.Equal(t, metroAddress(), sub.BillingAddress)
	assert.Equal(t, time.UTC, sub.SubmittedAt.Location())
}

func TestNewSubmission_SeparateBilling(t *testing.T) {
	c := validContact()
	c.BillingSameAsDelivery = false
	c.BillingAddress = &Address{Street: "PO Box 7", Suburb: "Perth", State: "WA", Postcode: "6000"}

	sub := NewSubmission("ref-1", c, Payload{}, Flags{}, time.Now())
	assert.Equal(t, "PO Box 7", sub.BillingAddress.Street)
}

func TestSubmission_FlattensPayload(t *testing.T) {
	payload := Serialize(scenarioStore(t))
	sub := NewSubmission("ref-1", validContact(), payload, Flags{}, time.Now())

	data, err := json.Marshal(sub)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"companyName", "contactName", "email", "phone", "deliveryAddress", "billingAddress", "items", "totals", "flags"} {
		assert.Contains(t, raw, key)
	}
}

// ============================================================================
// Client Tests
// ============================================================================

func newIntakeClient(url string) *Client {
	cfg := httpclient.Config{Timeout: 2 * time.Second, MaxRetries: 0, MaxConnsPerHost: 4}
	return NewClient(httpclient.New(cfg), url, newTestLogger())
}

func TestClient_Submit_Success(t *testing.T) {
	var received Submission
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ref-123", r.Header.Get("Idempotency-Key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sub := NewSubmission("ref-123", validContact(), Serialize(scenarioStore(t)), Flags{}, time.Now())
	err := newIntakeClient(server.URL).Submit(context.Background(), sub)

	require.NoError(t, err)
	assert.Equal(t, "Jordan Lee", received.ContactName)
	assert.Len(t, received.Items, 2)
	assert.Equal(t, 4, received.Totals.TotalQuantity)
}

func TestClient_Submit_Non2xxIsSubmissionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_QUOTE","message":"missing phone"}}`))
	}))
	defer server.Close()

	err := newIntakeClient(server.URL).Submit(context.Background(), Submission{Reference: "ref-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
}

func TestClient_Submit_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := newIntakeClient(url).Submit(context.Background(), Submission{Reference: "ref-1"})
	assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
}

type fakeDoer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeDoer) PostJSON(ctx context.Context, url string, v any, headers http.Header) (*http.Response, error) {
	f.calls.Add(1)
	return nil, f.err
}

func TestClient_Submit_BreakerOpen(t *testing.T) {
	doer := &fakeDoer{err: httpclient.ErrCircuitOpen}
	err := NewClient(doer, "http://intake", newTestLogger()).Submit(context.Background(), Submission{Reference: "r"})

	assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
	assert.True(t, errors.Is(err, httpclient.ErrCircuitOpen))
	assert.Equal(t, int32(1), doer.calls.Load())
}
