package handler

import (
	"time"

	"snapvalue-be/internal/pkg/logger"
	"snapvalue-be/internal/service"
	internalWS "snapvalue-be/internal/websocket"
	"snapvalue-be/pkg/events"
	pktNats "snapvalue-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ProgressHandler owns the websocket upgrade for the live progress feed and
// a couple of debug endpoints for exercising the event flow by hand.
type ProgressHandler struct {
	sessions  service.ISessionService
	publisher *pktNats.Publisher
	hub       *internalWS.Hub
	logger    logger.ILogger
}

func NewProgressHandler(sessions service.ISessionService, pub *pktNats.Publisher, hub *internalWS.Hub, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		sessions:  sessions,
		publisher: pub,
		hub:       hub,
		logger:    log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	// 1. The session id rides on the path, no auth handshake involved:
	// the feed only carries progress for a session the caller already owns.
	sessionID, err := uuid.Parse(c.Params("sessionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID format"})
	}

	// 2. Refuse the upgrade for sessions we do not know.
	if _, err := h.sessions.Resolve(c.Context(), sessionID); err != nil {
		h.logger.Warn("ProgressHandler", "WS handshake for unknown session", map[string]interface{}{"session_id": sessionID})
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown capture session"})
	}

	// Upgrade via Fiber WebSocket Middleware
	// We handle the upgrade here using the helper which automatically hijacks the connection
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(c *websocket.Conn) {
			h.logger.Info("ProgressHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, c, sessionID)
			h.logger.Info("ProgressHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// DebugTriggerEvent simulates a lifecycle event to test the flow.
func (h *ProgressHandler) DebugTriggerEvent(c *fiber.Ctx) error {
	type Request struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Type == "" {
		req.Type = "TEST_EVENT"
	}
	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}

	evt := events.BaseEvent{
		Type:       req.Type,
		Data:       req.Payload,
		OccurredAt: time.Now(),
	}

	if h.publisher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Event publisher not configured"})
	}

	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"status": "Event Published", "event": evt})
}

// RegisterRoutes registers the debug routes. The websocket route itself is
// registered at the app root, outside the /api group.
func (h *ProgressHandler) RegisterRoutes(router fiber.Router) {
	debug := router.Group("/debug")
	debug.Post("/trigger-event", h.DebugTriggerEvent)
}
