// Package events wraps the internal NATS bus used to decouple booking
// admission from outbound webhook delivery.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/slotwise/reservation-engine/internal/config"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// Publisher handles event publishing.
type Publisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// Subscriber handles event subscriptions.
type Subscriber struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// Connect connects to NATS.
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NewPublisher creates a new event publisher.
func NewPublisher(conn *nats.Conn, logger *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// NewNullPublisher creates a publisher that drops events, used when NATS
// is not configured (local dev, some test runs).
func NewNullPublisher(logger *logger.Logger) *Publisher {
	return &Publisher{
		conn:   nil,
		logger: logger,
	}
}

// Publish publishes an event. Never blocks on delivery — a failure here
// only logs; callers (the reservation engine) must not let it fail a
// commit that has already happened.
func (p *Publisher) Publish(subject string, data interface{}) error {
	if p.conn == nil {
		p.logger.Debug("event publishing skipped (no NATS connection)", "subject", subject)
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event", "subject", subject)
	return nil
}

// NewSubscriber creates a new event subscriber.
func NewSubscriber(conn *nats.Conn, logger *logger.Logger) *Subscriber {
	return &Subscriber{
		conn:   conn,
		logger: logger,
	}
}

// Subscribe subscribes to events on a subject.
func (s *Subscriber) Subscribe(subject string, handler func([]byte) error) error {
	_, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			s.logger.Error("failed to handle event", "subject", subject, "error", err)
		}
	})

	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	s.logger.Debug("subscribed to subject", "subject", subject)
	return nil
}

// Event subjects. These are the registered outbound webhook event names
// from the external interface contract, reused internally as the NATS
// subjects the dispatcher subscribes to.
const (
	BookingCreatedEvent      = "booking.created"
	BookingUpdatedEvent      = "booking.updated"
	BookingCancelledEvent    = "booking.cancelled"
	BookingCompletedEvent    = "booking.completed"
	AvailabilityChangedEvent = "availability.changed"
)
