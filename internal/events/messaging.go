// Package events publishes storefront domain events to RabbitMQ.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventsExchange              = "giftdrive.events"
	CheckoutConfirmedRoutingKey = "checkout.confirmed.v1"
)

// CheckoutConfirmed is emitted once a donor's payment succeeded.
type CheckoutConfirmed struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	SessionID     string          `json:"sessionId"`
	CartID        string          `json:"cartId"`
	DonorKey      string          `json:"donorKey"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewCheckoutConfirmed fills the event id, type and timestamp.
func NewCheckoutConfirmed(sessionID, cartID, donorKey, transactionID string, amount decimal.Decimal, currency string) CheckoutConfirmed {
	return CheckoutConfirmed{
		EventID:       uuid.NewString(),
		EventType:     "CheckoutConfirmed",
		SessionID:     sessionID,
		CartID:        cartID,
		DonorKey:      donorKey,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currency,
		Timestamp:     time.Now().UTC(),
	}
}
