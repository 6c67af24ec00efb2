package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents) as returned by the commerce API.
type Money struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

func (m Money) IsPositive() bool {
	return m.Value > 0
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Value, -2)
}

// Display renders the amount as "12.99 USD".
func (m Money) Display() string {
	amount := m.Decimal().StringFixed(2)
	currency := strings.ToUpper(strings.TrimSpace(m.Currency))
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

// Cost is the aggregate pricing breakdown of a cart. Every field may be nil
// until the backend has enough checkout information to compute it.
type Cost struct {
	IsEstimated bool   `json:"isEstimated"`
	Subtotal    *Money `json:"subtotal,omitempty"`
	Shipping    *Money `json:"shipping,omitempty"`
	Tax         *Money `json:"tax,omitempty"`
	Total       *Money `json:"total,omitempty"`
}
