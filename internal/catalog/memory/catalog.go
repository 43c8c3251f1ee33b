// Package memory is an in-process product catalog for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/utafrali/partsquote/internal/catalog"
	"github.com/utafrali/partsquote/internal/domain"
	apperrors "github.com/utafrali/partsquote/pkg/errors"
)

// Catalog is a thread-safe in-memory catalog.Repository.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[string]domain.Product
	bySlug map[string]string
}

var _ catalog.Repository = (*Catalog)(nil)

// New creates a catalog holding products.
func New(products ...domain.Product) *Catalog {
	c := &Catalog{
		byID:   make(map[string]domain.Product, len(products)),
		bySlug: make(map[string]string, len(products)),
	}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

// Put adds or replaces a product.
func (c *Catalog) Put(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.byID[p.ID]; ok && old.Slug != "" {
		delete(c.bySlug, old.Slug)
	}
	c.byID[p.ID] = p
	if p.Slug != "" {
		c.bySlug[p.Slug] = p.ID
	}
}

// GetByID returns the product with the given ID.
func (c *Catalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byID[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return clone(p), nil
}

// GetBySlug returns the product with the given slug.
func (c *Catalog) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.bySlug[slug]
	if !ok {
		return nil, apperrors.NotFound("product", slug)
	}
	return clone(c.byID[id]), nil
}

// Search does a case-insensitive substring match over name, SKU, description,
// brand and category. Results are ordered by name.
func (c *Catalog) Search(_ context.Context, query string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = catalog.DefaultSearchLimit
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	c.mu.RLock()
	matched := make([]domain.Product, 0)
	for _, p := range c.byID {
		if matches(p, needle) {
			matched = append(matched, *clone(p))
		}
	}
	c.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func matches(p domain.Product, needle string) bool {
	for _, field := range []string{p.Name, p.SKU, p.Description, p.Brand, p.Category} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func clone(p domain.Product) *domain.Product {
	out := p
	if p.SizeVariations != nil {
		out.SizeVariations = append([]domain.SizeVariation(nil), p.SizeVariations...)
	}
	return &out
}
