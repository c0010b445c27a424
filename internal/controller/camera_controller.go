package controller

import (
	"snapvalue-be/internal/dto"
	"snapvalue-be/internal/pkg/serverutils"
	"snapvalue-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICameraController interface {
	RegisterRoutes(r fiber.Router)
	SetActive(ctx *fiber.Ctx) error
	SelectDevice(ctx *fiber.Ctx) error
	SetTorch(ctx *fiber.Ctx) error
	SetZoom(ctx *fiber.Ctx) error
	TriggerAutoFocus(ctx *fiber.Ctx) error
	Capture(ctx *fiber.Ctx) error
	Devices(ctx *fiber.Ctx) error
	Capabilities(ctx *fiber.Ctx) error
	Settings(ctx *fiber.Ctx) error
	State(ctx *fiber.Ctx) error
}

type cameraController struct {
	service service.ICaptureService
}

func NewCameraController(service service.ICaptureService) ICameraController {
	return &cameraController{service: service}
}

func (c *cameraController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/camera/v1")
	h.Put("active", c.SetActive)
	h.Put("device", c.SelectDevice)
	h.Put("torch", c.SetTorch)
	h.Put("zoom", c.SetZoom)
	h.Post("focus", c.TriggerAutoFocus)
	h.Post("capture", serverutils.SessionMiddleware, c.Capture) // Requires X-Capture-Session
	h.Get("devices", c.Devices)
	h.Get("capabilities", c.Capabilities)
	h.Get("settings", c.Settings)
	h.Get("state", c.State)
}

func (c *cameraController) SetActive(ctx *fiber.Ctx) error {
	var req dto.SetActiveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetActive(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success set camera active", res))
}

func (c *cameraController) SelectDevice(ctx *fiber.Ctx) error {
	var req dto.SelectDeviceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SelectDevice(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success select device", res))
}

func (c *cameraController) SetTorch(ctx *fiber.Ctx) error {
	var req dto.SetTorchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetTorch(&req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success set torch", res))
}

func (c *cameraController) SetZoom(ctx *fiber.Ctx) error {
	var req dto.SetZoomRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetZoom(&req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success set zoom", res))
}

func (c *cameraController) TriggerAutoFocus(ctx *fiber.Ctx) error {
	res, err := c.service.TriggerAutoFocus()
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success trigger autofocus", res))
}

func (c *cameraController) Capture(ctx *fiber.Ctx) error {
	sessionId := serverutils.SessionID(ctx)

	res, err := c.service.CapturePhoto(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success capture photo", res))
}

func (c *cameraController) Devices(ctx *fiber.Ctx) error {
	res, err := c.service.Devices(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get devices", res))
}

func (c *cameraController) Capabilities(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get capabilities", c.service.Capabilities()))
}

func (c *cameraController) Settings(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get settings", c.service.Settings()))
}

func (c *cameraController) State(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get camera state", c.service.State()))
}
