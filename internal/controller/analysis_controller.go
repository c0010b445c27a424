package controller

import (
	"snapvalue-be/internal/dto"
	"snapvalue-be/internal/pkg/serverutils"
	"snapvalue-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAnalysisController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Progress(ctx *fiber.Ctx) error
	Result(ctx *fiber.Ctx) error
}

type analysisController struct {
	service service.IAnalysisService
}

func NewAnalysisController(service service.IAnalysisService) IAnalysisController {
	return &analysisController{service: service}
}

func (c *analysisController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/analysis/v1")
	h.Use(serverutils.SessionMiddleware) // Requires X-Capture-Session
	h.Post("submit", c.Submit)
	h.Post("cancel", c.Cancel)
	h.Get("progress", c.Progress)
	h.Get("result", c.Result)
}

func (c *analysisController) Submit(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	var req dto.SubmitAnalysisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Submit(ctx.Context(), sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit analysis", res))
}

func (c *analysisController) Cancel(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	res, err := c.service.Cancel(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success cancel analysis", res))
}

func (c *analysisController) Progress(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	res, err := c.service.Progress(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get progress", res))
}

func (c *analysisController) Result(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	res, err := c.service.Result(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get result", res))
}
