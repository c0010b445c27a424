package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// SessionHeader carries the capture session id on every session-scoped
	// endpoint.
	SessionHeader = "X-Capture-Session"
	// SessionLocalsKey is where the parsed session id lands for controllers.
	SessionLocalsKey = "session_id"
)

// SessionMiddleware extracts and parses the session header. Existence of the
// session is the services' concern; this only guards the format.
func SessionMiddleware(ctx *fiber.Ctx) error {
	raw := ctx.Get(SessionHeader)
	if raw == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(400, SessionHeader+" header is required"))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(400, SessionHeader+" header must be a valid UUID"))
	}
	ctx.Locals(SessionLocalsKey, id)
	return ctx.Next()
}

// SessionID pulls the session id a SessionMiddleware-guarded route stored.
func SessionID(ctx *fiber.Ctx) uuid.UUID {
	if id, ok := ctx.Locals(SessionLocalsKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
