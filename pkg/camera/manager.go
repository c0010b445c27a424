package camera

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"snapvalue-be/internal/pkg/logger"
)

var (
	ErrNoDevices        = errors.New("camera: no capture devices found")
	ErrUnknownDevice    = errors.New("camera: unknown device id")
	ErrNotLive          = errors.New("camera: stream is not live")
	ErrBusy             = errors.New("camera: acquisition already in progress")
	ErrTorchUnsupported = errors.New("camera: active track has no torch")
	ErrZoomRange        = errors.New("camera: zoom level outside supported range")
)

// Manager owns the one physical camera stream in the process. The exclusive
// handle lives here and nowhere else: activation, teardown, device switching
// and track controls all funnel through this type, which is what enforces the
// single-live-stream invariant.
//
// SetActive is idempotent in both directions. An acquisition in progress
// makes a second activation a no-op, not a queued request.
type Manager struct {
	provider MediaProvider
	surface  OutputSurface
	logger   logger.ILogger

	// onCapabilities runs outside the manager lock, at most once per
	// distinct physical track. Wire before the first activation.
	onCapabilities func(trackID string, caps Capabilities)

	mu            sync.Mutex
	state         State
	acquiring     bool
	acquireCancel context.CancelFunc
	track         MediaTrack
	devices       []Device
	deviceID      string // explicit user selection, "" means auto-pick
	caps          *Capabilities
	settings      Settings
	seenTracks    map[string]struct{}

	lastFrame   Frame
	lastFrameAt time.Time
	hasFrame    bool
	frameReady  chan struct{}
	delivered   uint64
	capPublish  uint64
}

func NewManager(provider MediaProvider, surface OutputSurface, log logger.ILogger) (*Manager, error) {
	if provider == nil {
		return nil, errors.New("camera: media provider is required")
	}
	if surface == nil {
		surface = NopSurface{}
	}
	return &Manager{
		provider:   provider,
		surface:    surface,
		logger:     log,
		settings:   defaultSettings(),
		seenTracks: make(map[string]struct{}),
	}, nil
}

// OnCapabilities registers the capability publish hook.
func (m *Manager) OnCapabilities(fn func(trackID string, caps Capabilities)) {
	m.onCapabilities = fn
}

// SetActive drives the whole lifecycle. true acquires the stream if none is
// live, false tears everything down. Both directions are safe to call any
// number of times from any state.
func (m *Manager) SetActive(ctx context.Context, active bool) error {
	if active {
		return m.activate(ctx)
	}
	return m.deactivate()
}

func (m *Manager) activate(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateLive && m.track != nil {
		m.mu.Unlock()
		return nil
	}
	if m.acquiring {
		// Someone else is already acquiring. Their result stands for us too.
		m.mu.Unlock()
		return nil
	}
	m.acquiring = true
	m.state = StateAcquiring
	acquireCtx, cancel := context.WithCancel(ctx)
	m.acquireCancel = cancel
	deviceID := m.deviceID
	m.mu.Unlock()

	track, devices, err := m.acquire(acquireCtx, deviceID)
	return m.finishAcquire(acquireCtx, track, devices, err)
}

func (m *Manager) deactivate() error {
	m.mu.Lock()
	if m.acquireCancel != nil {
		// Supersede a pending acquisition; finishAcquire releases the track.
		m.acquireCancel()
	}
	track := m.track
	m.track = nil
	m.state = StateInactive
	m.caps = nil
	m.settings = defaultSettings()
	if !m.hasFrame && m.frameReady != nil {
		close(m.frameReady) // wake GrabFrame waiters
	}
	m.frameReady = nil
	m.hasFrame = false
	m.mu.Unlock()

	if track == nil {
		return nil
	}

	m.surface.Detach()
	if err := track.Close(); err != nil {
		m.logger.Warn("Camera", "Track close failed", map[string]interface{}{"error": err.Error()})
	}
	m.logger.Info("Camera", "Stream deactivated", map[string]interface{}{"track_id": track.ID()})
	return nil
}

// SelectDevice records an explicit device choice and, when a stream is live,
// tears it down and re-acquires with the new device. Used only for
// user-driven switching, never as part of the open/close lifecycle.
func (m *Manager) SelectDevice(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	if m.acquiring {
		m.mu.Unlock()
		return ErrBusy
	}
	if deviceID == "" {
		m.mu.Unlock()
		return ErrUnknownDevice
	}
	if len(m.devices) > 0 && !deviceKnown(m.devices, deviceID) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	m.deviceID = deviceID
	if m.state != StateLive || m.track == nil {
		// Takes effect on the next activation.
		m.mu.Unlock()
		return nil
	}
	old := m.track
	m.track = nil
	m.state = StateSwitching
	m.acquiring = true
	acquireCtx, cancel := context.WithCancel(ctx)
	m.acquireCancel = cancel
	if !m.hasFrame && m.frameReady != nil {
		close(m.frameReady)
	}
	m.frameReady = nil
	m.hasFrame = false
	m.mu.Unlock()

	m.surface.Detach()
	if err := old.Close(); err != nil {
		m.logger.Warn("Camera", "Track close failed during switch", map[string]interface{}{"error": err.Error()})
	}

	track, devices, err := m.acquire(acquireCtx, deviceID)
	return m.finishAcquire(acquireCtx, track, devices, err)
}

// acquire runs the open sequence without holding the manager lock: permission
// when labels are unavailable, enumeration, device pick, open, attach, play.
func (m *Manager) acquire(ctx context.Context, explicitID string) (MediaTrack, []Device, error) {
	devices, err := m.provider.EnumerateDevices(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if !labelsAvailable(devices) {
		if err := m.provider.RequestPermission(ctx); err != nil {
			return nil, nil, fmt.Errorf("camera permission: %w", err)
		}
		devices, err = m.provider.EnumerateDevices(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("enumerate devices: %w", err)
		}
	}
	if len(devices) == 0 {
		return nil, nil, ErrNoDevices
	}

	id := explicitID
	if id == "" {
		id = chooseDevice(devices).ID
	}

	track, err := m.provider.Open(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("open device %s: %w", id, err)
	}
	if err := m.surface.Attach(track); err != nil {
		track.Close()
		return nil, nil, fmt.Errorf("attach output surface: %w", err)
	}
	if err := m.surface.Play(); err != nil {
		m.surface.Detach()
		track.Close()
		return nil, nil, fmt.Errorf("start playback: %w", err)
	}
	return track, devices, nil
}

// finishAcquire commits the result of acquire under the lock, or rolls back
// to Inactive on failure/supersession.
func (m *Manager) finishAcquire(acquireCtx context.Context, track MediaTrack, devices []Device, err error) error {
	m.mu.Lock()
	m.acquiring = false
	m.acquireCancel = nil

	if err != nil {
		m.state = StateInactive
		m.caps = nil
		m.settings = defaultSettings()
		m.mu.Unlock()
		m.logger.Warn("Camera", "Stream acquisition failed", map[string]interface{}{"error": err.Error()})
		return err
	}

	if acquireCtx.Err() != nil {
		// Deactivated while we were acquiring. Release what we just opened.
		m.state = StateInactive
		m.caps = nil
		m.settings = defaultSettings()
		m.mu.Unlock()
		m.surface.Detach()
		track.Close()
		return nil
	}

	m.track = track
	m.devices = devices
	m.settings = track.Settings()
	caps := track.Capabilities()
	m.caps = &caps

	var publish *Capabilities
	if _, seen := m.seenTracks[track.ID()]; !seen {
		m.seenTracks[track.ID()] = struct{}{}
		m.capPublish++
		c := caps
		publish = &c
	}

	m.state = StateLive
	m.hasFrame = false
	m.frameReady = make(chan struct{})
	m.mu.Unlock()

	go m.pump(track)

	if publish != nil && m.onCapabilities != nil {
		m.onCapabilities(track.ID(), *publish)
	}

	m.logger.Info("Camera", "Stream live", map[string]interface{}{
		"track_id":  track.ID(),
		"device_id": track.Device().ID,
	})
	return nil
}

// pump mirrors the track's frames into the manager until the track channel
// closes or the track is superseded.
func (m *Manager) pump(track MediaTrack) {
	for frame := range track.Frames() {
		m.mu.Lock()
		if m.track != track {
			m.mu.Unlock()
			return
		}
		m.lastFrame = frame
		m.lastFrameAt = frame.Timestamp
		m.delivered++
		if !m.hasFrame {
			m.hasFrame = true
			close(m.frameReady)
		}
		m.mu.Unlock()
	}
}

// GrabFrame returns a copy of the most recent live frame, waiting for the
// first one if the stream just went live.
func (m *Manager) GrabFrame(ctx context.Context) (Frame, error) {
	m.mu.Lock()
	if m.state != StateLive || m.track == nil {
		m.mu.Unlock()
		return Frame{}, ErrNotLive
	}
	if m.hasFrame {
		f := cloneFrame(m.lastFrame)
		m.mu.Unlock()
		return f, nil
	}
	ready := m.frameReady
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-ready:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasFrame {
		return Frame{}, ErrNotLive
	}
	return cloneFrame(m.lastFrame), nil
}

func (m *Manager) SetTorch(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLive || m.track == nil {
		return ErrNotLive
	}
	if m.caps == nil || !m.caps.HasTorch {
		return ErrTorchUnsupported
	}
	if err := m.track.SetTorch(on); err != nil {
		return fmt.Errorf("set torch: %w", err)
	}
	m.settings = m.track.Settings()
	return nil
}

func (m *Manager) SetZoom(level float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLive || m.track == nil {
		return ErrNotLive
	}
	if m.caps != nil && m.caps.Zoom != nil {
		if level < m.caps.Zoom.Min || level > m.caps.Zoom.Max {
			return fmt.Errorf("%w: %.2f not in [%.2f, %.2f]",
				ErrZoomRange, level, m.caps.Zoom.Min, m.caps.Zoom.Max)
		}
	}
	if err := m.track.SetZoom(level); err != nil {
		return fmt.Errorf("set zoom: %w", err)
	}
	m.settings = m.track.Settings()
	return nil
}

func (m *Manager) TriggerAutoFocus() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLive || m.track == nil {
		return ErrNotLive
	}
	if err := m.track.TriggerAutoFocus(); err != nil {
		return fmt.Errorf("trigger autofocus: %w", err)
	}
	m.settings = m.track.Settings()
	return nil
}

// Devices lists the known capture devices, enumerating on demand when no
// activation has populated the cache yet.
func (m *Manager) Devices(ctx context.Context) ([]Device, error) {
	m.mu.Lock()
	cached := make([]Device, len(m.devices))
	copy(cached, m.devices)
	m.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}
	devices, err := m.provider.EnumerateDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return devices, nil
}

// Capabilities returns a copy of the active track's capabilities, or nil
// when no stream is live.
func (m *Manager) Capabilities() *Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.caps == nil {
		return nil
	}
	c := *m.caps
	return &c
}

func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		State:               m.state.String(),
		DeviceID:            m.deviceID,
		FramesDelivered:     m.delivered,
		CapabilityPublishes: m.capPublish,
		LastFrameAgeMS:      -1,
	}
	if m.track != nil {
		s.TrackID = m.track.ID()
		s.DeviceID = m.track.Device().ID
	}
	if m.hasFrame {
		s.LastFrameAgeMS = time.Since(m.lastFrameAt).Milliseconds()
	}
	return s
}

func labelsAvailable(devices []Device) bool {
	if len(devices) == 0 {
		return false
	}
	for _, d := range devices {
		if d.Label == "" {
			return false
		}
	}
	return true
}

// chooseDevice prefers a rear-facing camera: the facing flag when the
// platform reports one, a label heuristic otherwise.
func chooseDevice(devices []Device) Device {
	for _, d := range devices {
		if d.RearFacing {
			return d
		}
	}
	for _, d := range devices {
		label := strings.ToLower(d.Label)
		if strings.Contains(label, "back") || strings.Contains(label, "rear") || strings.Contains(label, "environment") {
			return d
		}
	}
	return devices[0]
}

func deviceKnown(devices []Device, id string) bool {
	for _, d := range devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

func cloneFrame(f Frame) Frame {
	out := f
	out.Data = make([]byte, len(f.Data))
	copy(out.Data, f.Data)
	return out
}
