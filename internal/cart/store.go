// Package cart holds the in-memory quote cart state machine.
package cart

import (
	"fmt"

	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/internal/pricing"
)

// Store is an ordered collection of quote lines keyed by item ID. Derived
// values are computed on every read. A Store is not safe for concurrent
// use; callers serialize access per session.
type Store struct {
	items []domain.QuoteItem
	cfg   pricing.Config
}

// NewStore returns an empty store priced with cfg.
func NewStore(cfg pricing.Config) *Store {
	return &Store{cfg: cfg}
}

// Restore rebuilds a store from persisted lines. Invalid lines are skipped
// and repeated IDs are merged. It returns how many entries were dropped.
func Restore(cfg pricing.Config, items []domain.QuoteItem) (*Store, int) {
	s := NewStore(cfg)
	dropped := 0
	for _, item := range items {
		if err := s.AddItem(item); err != nil {
			dropped++
		}
	}
	return s, dropped
}

func (s *Store) findIndex(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem appends item, or merges it into the line with the same ID by
// summing quantities and OR-ing the certificate flag. Existing custom specs
// are kept unless the line has none.
func (s *Store) AddItem(item domain.QuoteItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("add item: %w", err)
	}

	if idx := s.findIndex(item.ID); idx >= 0 {
		existing := &s.items[idx]
		existing.Quantity += item.Quantity
		existing.MaterialTestCert = existing.MaterialTestCert || item.MaterialTestCert
		if existing.CustomSpecs.IsEmpty() && !item.CustomSpecs.IsEmpty() {
			specs := *item.CustomSpecs
			existing.CustomSpecs = &specs
		}
		return nil
	}

	s.items = append(s.items, item.Clone())
	return nil
}

// RemoveItem deletes the line with id. Removing a missing id is a no-op and
// returns false.
func (s *Store) RemoveItem(id string) bool {
	idx := s.findIndex(id)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return true
}

// UpdateQuantity sets the quantity of a line, clamped to at least 1.
// Returns false when id is not in the cart.
func (s *Store) UpdateQuantity(id string, quantity int) bool {
	idx := s.findIndex(id)
	if idx < 0 {
		return false
	}
	if quantity < 1 {
		quantity = 1
	}
	s.items[idx].Quantity = quantity
	return true
}

// ToggleMaterialCert flips the certificate flag of a line.
// Returns false when id is not in the cart.
func (s *Store) ToggleMaterialCert(id string) bool {
	idx := s.findIndex(id)
	if idx < 0 {
		return false
	}
	s.items[idx].MaterialTestCert = !s.items[idx].MaterialTestCert
	return true
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.items = nil
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []domain.QuoteItem {
	out := make([]domain.QuoteItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	return out
}

// Item returns a copy of the line with id.
func (s *Store) Item(id string) (domain.QuoteItem, bool) {
	idx := s.findIndex(id)
	if idx < 0 {
		return domain.QuoteItem{}, false
	}
	return s.items[idx].Clone(), true
}

// ItemCount is the number of distinct lines.
func (s *Store) ItemCount() int {
	return len(s.items)
}

// TotalQuantity is the number of units across all lines.
func (s *Store) TotalQuantity() int {
	return pricing.TotalQuantity(s.items)
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	return len(s.items) == 0
}

// DiscountPercent is the cart-wide tier currently applied.
func (s *Store) DiscountPercent() int {
	return pricing.TierFor(s.TotalQuantity())
}

// Lines prices each line against the cart-wide quantity.
func (s *Store) Lines() []pricing.Line {
	return pricing.PriceLines(s.Items())
}

// Totals recomputes the cart aggregates.
func (s *Store) Totals() pricing.Totals {
	return pricing.Summarize(s.items, s.cfg)
}

// Config returns the pricing configuration of the store.
func (s *Store) Config() pricing.Config {
	return s.cfg
}
