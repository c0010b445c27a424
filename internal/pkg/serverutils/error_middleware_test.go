package serverutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"snapvalue-be/pkg/analysis"
	"snapvalue-be/pkg/camera"
	"snapvalue-be/pkg/capture"
	"snapvalue-be/pkg/store"
)

func newErrorApp(err error) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return err
	})
	return app
}

func TestErrorHandlerMiddleware_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", &ValidationError{Fields: map[string]string{"Kind": "failed on the 'required' rule"}}, 400},
		{"batch full", &capture.BatchFullError{Max: 15}, 409},
		{"payload too large", &analysis.PayloadTooLargeError{Hint: "drop items"}, 413},
		{"upstream job failure", &analysis.JobError{Message: "no valuation possible"}, 502},
		{"session not found", store.ErrSessionNotFound, 404},
		{"item not found", capture.ErrItemNotFound, 404},
		{"unknown device", fmt.Errorf("select: %w", camera.ErrUnknownDevice), 404},
		{"no devices", camera.ErrNoDevices, 404},
		{"not live", camera.ErrNotLive, 409},
		{"acquisition busy", camera.ErrBusy, 409},
		{"cancelled", analysis.ErrCancelled, 409},
		{"torch unsupported", camera.ErrTorchUnsupported, 400},
		{"zoom range", fmt.Errorf("%w: 99", camera.ErrZoomRange), 400},
		{"no selection", analysis.ErrNoSelection, 400},
		{"no auth", analysis.ErrNoAuth, 401},
		{"incomplete enrichment", analysis.ErrIncompleteEnrichment, 422},
		{"fiber error", fiber.ErrRequestEntityTooLarge, 413},
		{"unknown error", fmt.Errorf("something else"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newErrorApp(tt.err)
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body ErrorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if body.Success {
				t.Error("success = true on an error envelope")
			}
			if body.Code != tt.wantStatus {
				t.Errorf("envelope code = %d, want %d", body.Code, tt.wantStatus)
			}
		})
	}
}

func TestErrorHandlerMiddleware_BatchFullDetails(t *testing.T) {
	app := newErrorApp(&capture.BatchFullError{Max: 15})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Details struct {
			Max int `json:"max"`
		} `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Details.Max != 15 {
		t.Errorf("details.max = %d, want 15", body.Details.Max)
	}
}

func TestSessionMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(SessionMiddleware)
	app.Get("/guarded", func(ctx *fiber.Ctx) error {
		id := SessionID(ctx)
		return ctx.JSON(SuccessResponse("ok", id.String()))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", 400},
		{"not a uuid", "definitely-not-a-uuid", 400},
		{"valid", "0b0e7f1e-9df1-4e79-8d5a-3a3f0e6d9c11", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tt.header != "" {
				req.Header.Set(SessionHeader, tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}
