package service

import (
	"context"
	"fmt"

	"snapvalue-be/internal/dto"
	"snapvalue-be/internal/pkg/logger"
	"snapvalue-be/pkg/camera"
	"snapvalue-be/pkg/capture"
	"snapvalue-be/pkg/lifecycle"

	"github.com/google/uuid"
)

// ICaptureService operates the shared camera hardware. There is exactly one
// live stream per process; every session captures from it.
type ICaptureService interface {
	SetActive(ctx context.Context, req *dto.SetActiveRequest) (*dto.CameraStateResponse, error)
	SelectDevice(ctx context.Context, req *dto.SelectDeviceRequest) (*dto.CameraStateResponse, error)
	SetTorch(req *dto.SetTorchRequest) (*dto.CameraSettingsResponse, error)
	SetZoom(req *dto.SetZoomRequest) (*dto.CameraSettingsResponse, error)
	TriggerAutoFocus() (*dto.CameraSettingsResponse, error)
	CapturePhoto(ctx context.Context, sessionId uuid.UUID) (*dto.ItemResponse, error)
	Devices(ctx context.Context) ([]dto.DeviceResponse, error)
	Capabilities() *dto.CapabilitiesResponse
	Settings() *dto.CameraSettingsResponse
	State() *dto.CameraStateResponse
	Stats() camera.Stats
}

type captureService struct {
	manager  *camera.Manager
	sessions ISessionService
	delivery ProgressDelivery
	events   lifecycle.Publisher
	logger   logger.ILogger
}

func NewCaptureService(
	manager *camera.Manager,
	sessions ISessionService,
	delivery ProgressDelivery,
	events lifecycle.Publisher,
	log logger.ILogger,
) ICaptureService {
	s := &captureService{
		manager:  manager,
		sessions: sessions,
		delivery: delivery,
		events:   events,
		logger:   log,
	}

	// The manager fires this at most once per physical track. Fan the
	// detected capabilities out to every connected watcher.
	manager.OnCapabilities(func(trackID string, caps camera.Capabilities) {
		s.logger.Info("CaptureService", "Track capabilities detected", map[string]interface{}{
			"track_id":  trackID,
			"has_torch": caps.HasTorch,
			"has_zoom":  caps.Zoom != nil,
		})
		s.delivery.BroadcastCamera(map[string]interface{}{
			"event":        "capabilities",
			"track_id":     trackID,
			"capabilities": capabilitiesResponse(&caps),
		})
	})

	return s
}

func (s *captureService) SetActive(ctx context.Context, req *dto.SetActiveRequest) (*dto.CameraStateResponse, error) {
	active := *req.Active
	before := s.manager.State()

	if active {
		if err := s.manager.SetActive(ctx, true); err != nil {
			return nil, err
		}
		stats := s.manager.Stats()
		if before != camera.StateLive && stats.State == camera.StateLive.String() {
			s.events.PublishStreamActivated(ctx, stats.DeviceID, stats.TrackID)
			s.delivery.BroadcastCamera(map[string]interface{}{
				"event":     "stream",
				"state":     stats.State,
				"device_id": stats.DeviceID,
			})
		}
		return &dto.CameraStateResponse{State: stats.State}, nil
	}

	// Read the device before teardown wipes it.
	stats := s.manager.Stats()
	if err := s.manager.SetActive(ctx, false); err != nil {
		return nil, err
	}
	if before != camera.StateInactive {
		s.events.PublishStreamDeactivated(ctx, stats.DeviceID)
		s.delivery.BroadcastCamera(map[string]interface{}{
			"event": "stream",
			"state": camera.StateInactive.String(),
		})
	}
	return &dto.CameraStateResponse{State: s.manager.State().String()}, nil
}

func (s *captureService) SelectDevice(ctx context.Context, req *dto.SelectDeviceRequest) (*dto.CameraStateResponse, error) {
	before := s.manager.Stats()
	if err := s.manager.SelectDevice(ctx, req.DeviceId); err != nil {
		return nil, err
	}
	after := s.manager.Stats()
	if after.State == camera.StateLive.String() && before.DeviceID != after.DeviceID {
		s.events.PublishDeviceSwitched(ctx, before.DeviceID, after.DeviceID)
		s.delivery.BroadcastCamera(map[string]interface{}{
			"event":     "stream",
			"state":     after.State,
			"device_id": after.DeviceID,
		})
	}
	return &dto.CameraStateResponse{State: after.State}, nil
}

func (s *captureService) SetTorch(req *dto.SetTorchRequest) (*dto.CameraSettingsResponse, error) {
	if err := s.manager.SetTorch(*req.On); err != nil {
		return nil, err
	}
	return s.Settings(), nil
}

func (s *captureService) SetZoom(req *dto.SetZoomRequest) (*dto.CameraSettingsResponse, error) {
	if err := s.manager.SetZoom(req.Level); err != nil {
		return nil, err
	}
	return s.Settings(), nil
}

func (s *captureService) TriggerAutoFocus() (*dto.CameraSettingsResponse, error) {
	if err := s.manager.TriggerAutoFocus(); err != nil {
		return nil, err
	}
	return s.Settings(), nil
}

// CapturePhoto grabs the most recent live frame and stores it in the
// session's batch.
func (s *captureService) CapturePhoto(ctx context.Context, sessionId uuid.UUID) (*dto.ItemResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	frame, err := s.manager.GrabFrame(ctx)
	if err != nil {
		return nil, err
	}

	item, err := session.Batch.Add(ctx, capture.Draft{
		Kind:        capture.KindPhoto,
		Data:        frame.Data,
		DisplayName: fmt.Sprintf("Photo %s", frame.Timestamp.Format("15:04:05")),
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishItemCaptured(ctx, sessionId, item.ID, string(item.Kind),
		item.Metadata.OriginalByteSize, item.Metadata.CompressedByteSize)
	s.logger.Info("CaptureService", "Frame captured into batch", map[string]interface{}{
		"session_id": sessionId,
		"item_id":    item.ID,
		"track_id":   frame.TrackID,
	})

	return itemResponse(item), nil
}

func (s *captureService) Devices(ctx context.Context) ([]dto.DeviceResponse, error) {
	devices, err := s.manager.Devices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, dto.DeviceResponse{
			Id:         d.ID,
			Label:      d.Label,
			RearFacing: d.RearFacing,
		})
	}
	return out, nil
}

func (s *captureService) Capabilities() *dto.CapabilitiesResponse {
	return capabilitiesResponse(s.manager.Capabilities())
}

func (s *captureService) Settings() *dto.CameraSettingsResponse {
	settings := s.manager.Settings()
	return &dto.CameraSettingsResponse{
		TorchOn:          settings.TorchOn,
		ZoomLevel:        settings.ZoomLevel,
		FocusMode:        settings.FocusMode,
		ExposureMode:     settings.ExposureMode,
		WhiteBalanceMode: settings.WhiteBalanceMode,
	}
}

func (s *captureService) State() *dto.CameraStateResponse {
	return &dto.CameraStateResponse{State: s.manager.State().String()}
}

func (s *captureService) Stats() camera.Stats {
	return s.manager.Stats()
}

func capabilitiesResponse(caps *camera.Capabilities) *dto.CapabilitiesResponse {
	if caps == nil {
		return nil
	}
	out := &dto.CapabilitiesResponse{
		HasTorch:          caps.HasTorch,
		FocusModes:        caps.FocusModes,
		ExposureModes:     caps.ExposureModes,
		WhiteBalanceModes: caps.WhiteBalanceModes,
	}
	if caps.Zoom != nil {
		out.Zoom = &dto.ZoomRangeResponse{
			Min:  caps.Zoom.Min,
			Max:  caps.Zoom.Max,
			Step: caps.Zoom.Step,
		}
	}
	return out
}
