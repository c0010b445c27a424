package controller

import (
	"strconv"

	"snapvalue-be/internal/pkg/logger"
	"snapvalue-be/internal/pkg/serverutils"
	"snapvalue-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ISystemController exposes on-device diagnostics: health, runtime stats and
// the rotating log file.
type ISystemController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
}

type systemController struct {
	capture  service.ICaptureService
	sessions service.ISessionService
	logger   logger.ILogger
}

func NewSystemController(capture service.ICaptureService, sessions service.ISessionService, log logger.ILogger) ISystemController {
	return &systemController{
		capture:  capture,
		sessions: sessions,
		logger:   log,
	}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/system/v1")
	h.Get("health", c.Health)
	h.Get("stats", c.Stats)
	h.Get("logs", c.GetLogs)
	h.Get("logs/:id", c.GetLogDetail)
}

func (c *systemController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"status": "healthy"}))
}

func (c *systemController) Stats(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("System stats", fiber.Map{
		"camera":   c.capture.Stats(),
		"sessions": c.sessions.Count(),
	}))
}

func (c *systemController) GetLogs(ctx *fiber.Ctx) error {
	limit, _ := strconv.Atoi(ctx.Query("limit", "50"))
	offset, _ := strconv.Atoi(ctx.Query("offset", "0"))
	level := ctx.Query("level", "")

	logs, err := c.logger.GetLogs(level, limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}

func (c *systemController) GetLogDetail(ctx *fiber.Ctx) error {
	entry, err := c.logger.GetLogById(ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Log detail", entry))
}
