package repository

import (
	"context"

	"github.com/utafrali/partsquote/internal/domain"
)

// CartRepository persists one quote cart per session.
type CartRepository interface {
	// Get loads the session's cart. A missing, expired or unreadable cart
	// returns an error wrapping apperrors.ErrNotFound. Individual unreadable
	// lines are dropped rather than failing the load.
	Get(ctx context.Context, sessionID string) (*domain.QuoteCart, error)

	// Save writes cart if the stored version still equals cart.Version and
	// then advances cart.Version. A lost race returns an error wrapping
	// apperrors.ErrConflict.
	Save(ctx context.Context, cart *domain.QuoteCart) error

	// Delete removes the session's cart. Deleting a missing cart succeeds.
	Delete(ctx context.Context, sessionID string) error
}
