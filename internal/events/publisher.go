package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events to the topic exchange. Safe for concurrent use.
type Publisher struct {
	mu     sync.Mutex
	ch     channel
	conn   *amqp.Connection
	logger *zap.Logger
}

// Dial connects to RabbitMQ and declares the events exchange.
func Dial(url string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	p := newPublisher(ch, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{ch: ch, logger: logger}
}

func (p *Publisher) PublishCheckoutConfirmed(ctx context.Context, ev CheckoutConfirmed) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal CheckoutConfirmed: %w", err)
	}
	if err := p.publishJSON(ctx, CheckoutConfirmedRoutingKey, ev.EventID, body); err != nil {
		return fmt.Errorf("publish %s: %w", CheckoutConfirmedRoutingKey, err)
	}
	p.logger.Info("event published",
		zap.String("routing_key", CheckoutConfirmedRoutingKey),
		zap.String("event_id", ev.EventID),
		zap.String("session_id", ev.SessionID),
	)
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(pubCtx, EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishCheckoutConfirmed(context.Context, CheckoutConfirmed) error { return nil }

func (NopPublisher) Close() error { return nil }
