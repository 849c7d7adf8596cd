// Package subscribers bridges the internal NATS event bus to the
// outbound webhook dispatcher: every lifecycle event the reservation
// engine publishes is consumed here and handed to the dispatcher for
// delivery to subscribed webhooks.
package subscribers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/slotwise/reservation-engine/internal/dispatcher"
	"github.com/slotwise/reservation-engine/pkg/events"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// EventHandlers consumes booking/availability lifecycle events and
// forwards them to the webhook dispatcher, tracking each event type's
// most recent payload so a later Sweep can retry subscriptions whose
// backoff window has elapsed without needing to replay from the
// audit-only delivery journal.
type EventHandlers struct {
	dispatcher *dispatcher.Dispatcher
	logger     *logger.Logger

	mu      sync.Mutex
	pending map[string]dispatcher.PendingEvent
}

func NewEventHandlers(d *dispatcher.Dispatcher, log *logger.Logger) *EventHandlers {
	return &EventHandlers{
		dispatcher: d,
		logger:     log,
		pending:    make(map[string]dispatcher.PendingEvent),
	}
}

// Register subscribes to every outbound event subject on sub.
func (h *EventHandlers) Register(sub *events.Subscriber) error {
	subjects := []string{
		events.BookingCreatedEvent,
		events.BookingUpdatedEvent,
		events.BookingCancelledEvent,
		events.BookingCompletedEvent,
		events.AvailabilityChangedEvent,
	}
	for _, subject := range subjects {
		if err := sub.Subscribe(subject, h.handle(subject)); err != nil {
			return fmt.Errorf("failed to register handler for %s: %w", subject, err)
		}
	}
	return nil
}

// handle returns the NATS message handler for a single event type.
func (h *EventHandlers) handle(eventType string) func([]byte) error {
	return func(raw []byte) error {
		var envelope struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.logger.Error("failed to unmarshal event envelope", "eventType", eventType, "error", err)
			return fmt.Errorf("unmarshal event envelope: %w", err)
		}

		var data interface{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("unmarshal event payload: %w", err)
		}

		h.mu.Lock()
		h.pending[eventType] = dispatcher.PendingEvent{EventID: envelope.ID, Data: data}
		h.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := h.dispatcher.Dispatch(ctx, eventType, envelope.ID, data); err != nil {
			h.logger.Error("dispatch failed", "eventType", eventType, "eventId", envelope.ID, "error", err)
			return err
		}
		return nil
	}
}

// Sweep retries every subscription whose backoff window has elapsed,
// using the last payload seen per event type. Intended to be run on a
// schedule (cron) alongside live dispatch.
func (h *EventHandlers) Sweep(ctx context.Context) error {
	h.mu.Lock()
	snapshot := make(map[string]dispatcher.PendingEvent, len(h.pending))
	for k, v := range h.pending {
		snapshot[k] = v
	}
	h.mu.Unlock()

	return h.dispatcher.Sweep(ctx, snapshot)
}
