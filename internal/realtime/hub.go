// Package realtime rebroadcasts booking and availability lifecycle
// events to store-scoped dashboard clients over WebSocket, alongside
// the durable outbound webhook path in internal/dispatcher.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/slotwise/reservation-engine/pkg/events"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

// Client is a single WebSocket connection subscribed to one store's
// updates.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	StoreID string
	hub     *Hub
}

// Hub tracks connected clients and fans lifecycle events out to every
// client subscribed to the event's store.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu            sync.RWMutex
	subscriptions map[string]map[*Client]bool

	logger *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscriptions: make(map[string]map[*Client]bool),
		logger:        log,
	}
}

// Run drives the hub's registration loop; call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.subscriptions[c.StoreID] == nil {
				h.subscriptions[c.StoreID] = make(map[*Client]bool)
			}
			h.subscriptions[c.StoreID][c] = true
			h.mu.Unlock()
			h.logger.Info("realtime client registered", "clientId", c.ID, "storeId", c.StoreID)

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.subscriptions[c.StoreID]; ok {
				if _, present := clients[c]; present {
					delete(clients, c)
					close(c.Send)
					if len(clients) == 0 {
						delete(h.subscriptions, c.StoreID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Info("realtime client unregistered", "clientId", c.ID, "storeId", c.StoreID)
		}
	}
}

// Register enqueues a new client subscribed to storeID.
func (h *Hub) Register(conn *websocket.Conn, storeID string) *Client {
	c := &Client{ID: uuid.New().String(), Conn: conn, Send: make(chan []byte, 256), StoreID: storeID, hub: h}
	h.register <- c
	return c
}

// Unregister removes a client, closing its send channel.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// message is the envelope broadcast to subscribed clients.
type message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Broadcast fans data out to every client subscribed to storeID. A
// client whose send buffer is full is skipped rather than blocked —
// one slow dashboard tab must not stall delivery to the rest.
func (h *Hub) Broadcast(storeID, eventType string, data interface{}) {
	payload, err := json.Marshal(message{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("failed to marshal realtime message", "eventType", eventType, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subscriptions[storeID] {
		select {
		case c.Send <- payload:
		default:
			h.logger.Warn("realtime client send buffer full, dropping message", "clientId", c.ID, "storeId", storeID)
		}
	}
}

// extractStoreID reads the "storeId" field out of a lifecycle event's
// raw JSON payload; events with no storeId (none, today) are ignored.
func extractStoreID(raw []byte) (string, bool) {
	var envelope struct {
		StoreID string `json:"storeId"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.StoreID == "" {
		return "", false
	}
	return envelope.StoreID, true
}

// RegisterEventSubscriptions wires the hub to every lifecycle event
// subject so connected dashboards see booking/availability changes as
// they happen, independent of the durable webhook delivery path.
func (h *Hub) RegisterEventSubscriptions(sub *events.Subscriber) error {
	subjects := []string{
		events.BookingCreatedEvent,
		events.BookingUpdatedEvent,
		events.BookingCancelledEvent,
		events.BookingCompletedEvent,
		events.AvailabilityChangedEvent,
	}
	for _, subject := range subjects {
		subject := subject
		err := sub.Subscribe(subject, func(raw []byte) error {
			storeID, ok := extractStoreID(raw)
			if !ok {
				return nil
			}
			var data interface{}
			if err := json.Unmarshal(raw, &data); err != nil {
				return err
			}
			h.Broadcast(storeID, subject, data)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
