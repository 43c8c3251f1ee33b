// Package catalog provides read-only access to the product catalog.
package catalog

import (
	"context"

	"github.com/utafrali/partsquote/internal/domain"
)

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 20

// Repository looks up products. Lookups of unknown products return an
// error wrapping apperrors.ErrNotFound.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Product, error)
}
