package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	published  []amqp.Publishing
	lastExch   string
	lastKey    string
	publishErr error
	closed     bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.lastExch = exchange
	f.lastKey = key
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishCheckoutConfirmed(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, nil)

	ev := NewCheckoutConfirmed("sess_1", "cart_1", "donor", "pi_1", decimal.RequireFromString("25.50"), "USD")
	require.NoError(t, p.PublishCheckoutConfirmed(context.Background(), ev))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, EventsExchange, ch.lastExch)
	assert.Equal(t, CheckoutConfirmedRoutingKey, ch.lastKey)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, ev.EventID, msg.MessageId)

	var decoded CheckoutConfirmed
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "pi_1", decoded.TransactionID)
	assert.True(t, decoded.Amount.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, "CheckoutConfirmed", decoded.EventType)
	assert.NotEmpty(t, decoded.EventID)
}

func TestPublishCheckoutConfirmed_Error(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p := newPublisher(ch, nil)

	err := p.PublishCheckoutConfirmed(context.Background(), NewCheckoutConfirmed("s", "c", "d", "t", decimal.Zero, "USD"))
	assert.ErrorContains(t, err, "channel closed")
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	require.NoError(t, newPublisher(ch, nil).Close())
	assert.True(t, ch.closed)
	assert.NoError(t, NopPublisher{}.Close())
}
