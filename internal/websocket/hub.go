package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"origami-be/internal/pkg/logger"
	"origami-be/pkg/events"

	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

// Hub fans domain events out to every connected websocket client. There is
// no per-user addressing; every client watching the app sees ingestion
// progress for every document.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis carries broadcasts across instances. Nil means single-instance.
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID})
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends one event envelope to all connected clients and relays it
// to the other instances over redis.
func (h *Hub) Broadcast(event events.Event) {
	data, err := json.Marshal(map[string]interface{}{
		"type": event.EventType(),
		"data": event.Payload(),
	})
	if err != nil {
		h.logger.Warn("Hub", "Failed to marshal event", map[string]interface{}{"error": err.Error()})
		return
	}

	h.broadcastLocal(data)

	if h.rdb != nil {
		h.rdb.Publish(context.Background(), clusterChannel, data)
	}
}

func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// Slow consumer; drop the connection rather than the hub.
			h.logger.Warn("Hub", "Client buffer full, dropping connection", map[string]interface{}{"client_id": client.ID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.broadcastLocal([]byte(msg.Payload))
	}
}
