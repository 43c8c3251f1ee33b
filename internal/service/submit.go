package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/internal/event"
	"github.com/utafrali/partsquote/internal/quote"
	apperrors "github.com/utafrali/partsquote/pkg/errors"
	"github.com/utafrali/partsquote/pkg/validator"
)

// Submit validates the contact details, snapshots the session's cart and
// posts it to the quote intake endpoint. The cart is deleted only after the
// endpoint accepted the quote; any failure leaves it as it was. Only one
// submission per session may run at a time.
func (s *CartService) Submit(ctx context.Context, sessionID string, contact quote.Contact) (*quote.Submission, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if err := validator.Validate(contact); err != nil {
		return nil, err
	}

	if !s.beginSubmit(sessionID) {
		quoteSubmissions.WithLabelValues("in_progress").Inc()
		return nil, domain.SubmissionInProgress()
	}
	defer s.endSubmit(sessionID)

	_, store, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if store.IsEmpty() {
		return nil, apperrors.Unprocessable("EMPTY_QUOTE", "add at least one item before requesting a quote", nil)
	}

	payload := quote.Serialize(store)

	flags := quote.DetectFlags(store.Items(), contact.DeliveryAddress)
	sub := quote.NewSubmission(uuid.NewString(), contact, payload, flags, s.now())

	if err := s.submitter.Submit(ctx, sub); err != nil {
		quoteSubmissions.WithLabelValues("failed").Inc()
		return nil, err
	}
	quoteSubmissions.WithLabelValues("accepted").Inc()

	// The quote is accepted at this point. A failed delete only means the
	// customer still sees the lines until the TTL runs out.
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete submitted quote cart",
			slog.String("session_id", sessionID),
			slog.String("reference", sub.Reference),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishQuoteSubmitted(ctx, sessionID, sub); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish quote.submitted event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishCartCleared(ctx, sessionID, event.ClearedBySubmitted); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "quote submitted",
		slog.String("session_id", sessionID),
		slog.String("reference", sub.Reference),
		slog.Int("items", sub.Totals.ItemCount),
		slog.Int("total_quantity", sub.Totals.TotalQuantity),
		slog.String("delivery_zone", string(flags.DeliveryZone)),
		slog.Bool("large_order", flags.IsLargeOrder),
		slog.Bool("long_lead_time", flags.HasLongLeadTime),
	)
	return &sub, nil
}

func (s *CartService) beginSubmit(sessionID string) bool {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	if _, busy := s.submitting[sessionID]; busy {
		return false
	}
	s.submitting[sessionID] = struct{}{}
	return true
}

func (s *CartService) endSubmit(sessionID string) {
	s.submitMu.Lock()
	delete(s.submitting, sessionID)
	s.submitMu.Unlock()
}
