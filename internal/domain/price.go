package domain

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is either a concrete amount or Unpriced ("price on application").
// The zero value is Unpriced, which is distinct from a priced zero.
type Price struct {
	amount decimal.Decimal
	priced bool
}

// Unpriced is the price of a line that has to be quoted manually.
var Unpriced = Price{}

// PriceOf returns a priced amount.
func PriceOf(amount decimal.Decimal) Price {
	return Price{amount: amount, priced: true}
}

// PriceFromFloat returns a priced amount from a float. Intended for fixtures
// and catalog rows already stored as floating point.
func PriceFromFloat(amount float64) Price {
	return PriceOf(decimal.NewFromFloat(amount))
}

// IsPriced reports whether p carries an amount.
func (p Price) IsPriced() bool {
	return p.priced
}

// Amount returns the amount and true, or zero and false when unpriced.
func (p Price) Amount() (decimal.Decimal, bool) {
	if !p.priced {
		return decimal.Zero, false
	}
	return p.amount, true
}

// Equal reports whether both prices are unpriced or hold equal amounts.
func (p Price) Equal(other Price) bool {
	if p.priced != other.priced {
		return false
	}
	return !p.priced || p.amount.Equal(other.amount)
}

func (p Price) String() string {
	if !p.priced {
		return "POA"
	}
	return p.amount.StringFixed(2)
}

// MarshalJSON encodes a priced amount as a JSON number and Unpriced as null.
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.priced {
		return []byte("null"), nil
	}
	return []byte(p.amount.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, null or "".
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Unpriced
		return nil
	}
	raw := string(bytes.Trim(data, `"`))
	if raw == "" {
		*p = Unpriced
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", raw, err)
	}
	*p = PriceOf(d)
	return nil
}
