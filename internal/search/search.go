package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/utafrali/partsquote/internal/domain"
)

// Result is one product hit.
type Result struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Brand        string `json:"brand,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Searcher runs a product search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// ProductFinder is the catalog-side search contract.
type ProductFinder interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Product, error)
}

// CatalogSearcher adapts a catalog repository to the Searcher interface.
type CatalogSearcher struct {
	finder ProductFinder
}

// NewCatalogSearcher creates a searcher backed by the catalog.
func NewCatalogSearcher(finder ProductFinder) *CatalogSearcher {
	return &CatalogSearcher{finder: finder}
}

// Search returns catalog products matching query.
func (s *CatalogSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	products, err := s.finder.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(products))
	for _, p := range products {
		results = append(results, Result{
			ID:           p.ID,
			Name:         p.Name,
			Slug:         p.Slug,
			Brand:        p.Brand,
			CategoryName: p.Category,
			Description:  p.Description,
		})
	}
	return results, nil
}

// Config holds the search behaviour settings.
type Config struct {
	Debounce       time.Duration
	MinQueryLength int
	Limit          int
}

// DefaultConfig returns a 300ms debounce, 2 character minimum and 20 results.
func DefaultConfig() Config {
	return Config{
		Debounce:       300 * time.Millisecond,
		MinQueryLength: 2,
		Limit:          20,
	}
}

// Service serves debounced, supersede-aware searches.
type Service struct {
	searcher  Searcher
	debouncer *Debouncer
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a search service.
func NewService(searcher Searcher, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		searcher:  searcher,
		debouncer: NewDebouncer(cfg.Debounce, time.Minute),
		cfg:       cfg,
		logger:    logger,
	}
}

// Query searches on behalf of key, typically a session. A query shorter
// than the minimum length cancels any pending query for the key and returns
// no results. ErrSuperseded is returned when a newer query for the same key
// arrives before this one's results are ready.
func (s *Service) Query(ctx context.Context, key, query string) ([]Result, error) {
	query = strings.TrimSpace(query)

	ticket := s.debouncer.Take(key)
	defer ticket.Done()

	if utf8.RuneCountInString(query) < s.cfg.MinQueryLength {
		return []Result{}, nil
	}

	if err := ticket.Wait(ctx); err != nil {
		return nil, err
	}

	results, err := s.searcher.Search(ctx, query, s.cfg.Limit)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "search failed",
				slog.String("query", query),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	if !ticket.Current() {
		return nil, ErrSuperseded
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}
