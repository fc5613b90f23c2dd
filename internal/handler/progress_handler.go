package handler

import (
	"context"

	"origami-be/internal/pkg/logger"
	internalWS "origami-be/internal/websocket"
	"origami-be/pkg/events"
	pkgNats "origami-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ProgressHandler bridges ingestion events from the NATS bus to connected
// websocket clients, and owns the /ws upgrade endpoint.
type ProgressHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewProgressHandler(hub *internalWS.Hub, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{hub: hub, logger: log}
}

// Bind subscribes to the document lifecycle subjects and forwards every
// event to the hub. Call once at startup; a nil subscriber is a no-op so
// the server still runs without NATS.
func (h *ProgressHandler) Bind(subscriber *pkgNats.Subscriber) error {
	if subscriber == nil {
		h.logger.Warn("ProgressHandler", "NATS subscriber not configured, progress events disabled", nil)
		return nil
	}

	forward := func(ctx context.Context, event events.Event) error {
		h.hub.Broadcast(event)
		return nil
	}

	if err := subscriber.Subscribe("events."+events.TypeDocumentProgress, "ws-document-progress", forward); err != nil {
		return err
	}
	return subscriber.Subscribe("events."+events.TypeDocumentIngested, "ws-document-ingested", forward)
}

// ServeWs upgrades the connection and hands it to the hub.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			internalWS.ServeWs(h.hub, conn)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *ProgressHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
