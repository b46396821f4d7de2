package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/highlightreel/backend/pkg/metrics"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventClipAdded announces a newly ingested clip to a pool's viewers.
	EventClipAdded = "clip_added"
	// EventViewerCount carries the number of viewers connected to a pool on this instance.
	EventViewerCount = "viewer_count"
)

// Publisher publishes pool events for every instance to deliver.
type Publisher interface {
	PublishPoolEvent(ctx context.Context, poolID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to pool channels and invokes handler for incoming events.
type Subscriber interface {
	SubscribePool(poolID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains pool_id -> set of connections and broadcasts messages.
// With a Subscriber, events published by any instance (the ingest worker
// included) reach local clients through Redis.
type Hub struct {
	rooms  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to a pool room. The first client of a pool starts
// its Redis subscription; a failed subscribe is retried by the next Register
// for that pool.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.PoolID] == nil {
		h.rooms[c.PoolID] = make(map[string]*Client)
	}
	if _, ok := h.subs[c.PoolID]; !ok && h.sub != nil {
		h.subscribeLocked(c.PoolID)
	}
	if _, ok := h.rooms[c.PoolID][c.ID]; !ok {
		metrics.WebSocketConnections.Inc()
	}
	h.rooms[c.PoolID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined pool", zap.String("client_id", c.ID), zap.String("pool_id", c.PoolID.String()))
}

// subscribeLocked must be called with h.mu held.
func (h *Hub) subscribeLocked(poolID uuid.UUID) {
	cancel, err := h.sub.SubscribePool(poolID, func(event string, payload []byte) {
		h.Broadcast(poolID, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("pool subscribe failed", zap.Error(err), zap.String("pool_id", poolID.String()))
		return
	}
	h.subs[poolID] = cancel
}

// Unregister removes a client and closes its send channel. The last client
// of a pool cancels the subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.PoolID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
			metrics.WebSocketConnections.Dec()
		}
		if len(m) == 0 {
			delete(h.rooms, c.PoolID)
			if cancel, ok := h.subs[c.PoolID]; ok {
				cancel()
				delete(h.subs, c.PoolID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left pool", zap.String("client_id", c.ID), zap.String("pool_id", c.PoolID.String()))
}

// Broadcast sends a message to all local clients of a pool. Slow clients
// with a full buffer miss the message.
func (h *Hub) Broadcast(poolID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("marshal broadcast payload failed", zap.Error(err), zap.String("event", event))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[poolID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Publish delivers an event to every instance. Without a Publisher it falls
// back to a local broadcast; with one, the Redis round trip performs the
// local delivery too, so nothing is sent twice.
func (h *Hub) Publish(ctx context.Context, poolID uuid.UUID, event string, payload interface{}) error {
	if h.pub == nil {
		h.Broadcast(poolID, event, payload)
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.pub.PublishPoolEvent(ctx, poolID, event, data)
}

// ViewerCount returns the number of connected clients for a pool on this instance.
func (h *Hub) ViewerCount(poolID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[poolID])
}

// Close cancels all pool subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cancel := range h.subs {
		cancel()
		delete(h.subs, id)
	}
}
