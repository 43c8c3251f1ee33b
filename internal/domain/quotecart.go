package domain

import "time"

// CartSchemaVersion is the format version written into persisted carts.
const CartSchemaVersion = 1

// QuoteCart is the persisted form of a session's quote cart.
type QuoteCart struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Schema    int         `json:"schema"`
	Version   int         `json:"version"`
	Items     []QuoteItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// TotalQuantity sums the quantity of every line.
func (c *QuoteCart) TotalQuantity() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
