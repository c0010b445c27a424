package controller

import (
	"snapvalue-be/internal/dto"
	"snapvalue-be/internal/pkg/serverutils"
	"snapvalue-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IBatchController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Remove(ctx *fiber.Ctx) error
	ToggleSelection(ctx *fiber.Ctx) error
	SetSelection(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
}

type batchController struct {
	service service.IBatchService
}

func NewBatchController(service service.IBatchService) IBatchController {
	return &batchController{service: service}
}

func (c *batchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/batch/v1")
	h.Use(serverutils.SessionMiddleware) // Requires X-Capture-Session
	h.Post("items", c.Upload)
	h.Get("items", c.List)
	h.Delete("items", c.Clear)
	h.Delete("items/:id", c.Remove)
	h.Put("items/:id/selection", c.ToggleSelection)
	h.Put("selection", c.SetSelection)
}

func (c *batchController) Upload(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	var req dto.UploadItemRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Upload(ctx.Context(), sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload item", res))
}

func (c *batchController) List(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	res, err := c.service.List(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get batch items", res))
}

func (c *batchController) Remove(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)
	idParam := ctx.Params("id")
	id, _ := uuid.Parse(idParam)

	if err := c.service.Remove(ctx.Context(), sessionId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success remove item", nil))
}

func (c *batchController) ToggleSelection(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)
	idParam := ctx.Params("id")
	id, _ := uuid.Parse(idParam)

	res, err := c.service.ToggleSelection(ctx.Context(), sessionId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success toggle selection", res))
}

func (c *batchController) SetSelection(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	var req dto.SetSelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetSelection(ctx.Context(), sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success set selection", res))
}

func (c *batchController) Clear(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	if err := c.service.Clear(ctx.Context(), sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear batch", nil))
}
