package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"snapvalue-be/pkg/analysis"
	"snapvalue-be/pkg/camera"
	"snapvalue-be/pkg/capture"
	"snapvalue-be/pkg/store"
)

// ErrorHandlerMiddleware turns domain errors bubbling out of controllers
// into the uniform error envelope. Controllers return errors raw; the status
// mapping lives here and nowhere else.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var (
			validationErr *ValidationError
			batchFull     *capture.BatchFullError
			tooLarge      *analysis.PayloadTooLargeError
			jobErr        *analysis.JobError
			fiberErr      *fiber.Error
		)

		switch {
		case errors.As(err, &validationErr):
			return ctx.Status(fiber.StatusBadRequest).
				JSON(ErrorDetailResponse(400, validationErr.Error(), validationErr.Fields))

		case errors.As(err, &batchFull):
			return ctx.Status(fiber.StatusConflict).
				JSON(ErrorDetailResponse(409, batchFull.Error(), batchFull))

		case errors.As(err, &tooLarge):
			return ctx.Status(fiber.StatusRequestEntityTooLarge).
				JSON(ErrorDetailResponse(413, tooLarge.Error(), tooLarge))

		case errors.As(err, &jobErr):
			return ctx.Status(fiber.StatusBadGateway).
				JSON(ErrorResponse(502, jobErr.Error()))

		case errors.Is(err, store.ErrSessionNotFound),
			errors.Is(err, store.ErrRunNotFinished),
			errors.Is(err, capture.ErrItemNotFound),
			errors.Is(err, camera.ErrUnknownDevice),
			errors.Is(err, camera.ErrNoDevices):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(404, err.Error()))

		case errors.Is(err, camera.ErrNotLive),
			errors.Is(err, camera.ErrBusy),
			errors.Is(err, analysis.ErrCancelled):
			return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse(409, err.Error()))

		case errors.Is(err, camera.ErrTorchUnsupported),
			errors.Is(err, camera.ErrZoomRange),
			errors.Is(err, analysis.ErrNoSelection):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(400, err.Error()))

		case errors.Is(err, analysis.ErrNoAuth):
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, err.Error()))

		case errors.Is(err, analysis.ErrIncompleteEnrichment):
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse(422, err.Error()))

		case errors.As(err, &fiberErr):
			// Includes the body-limit 413 fiber raises on oversized uploads.
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, err.Error()))
	}
}
