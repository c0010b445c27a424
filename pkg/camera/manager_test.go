package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"snapvalue-be/internal/pkg/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
func (nopLogger) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	return nil, nil
}
func (nopLogger) GetLogById(id string) (*logger.LogEntry, error) { return nil, nil }

type fakeSurface struct {
	mu       sync.Mutex
	attached int
	played   int
	detached int
}

func (s *fakeSurface) Attach(MediaTrack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached++
	return nil
}

func (s *fakeSurface) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played++
	return nil
}

func (s *fakeSurface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached++
}

func (s *fakeSurface) counts() (attached, played, detached int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached, s.played, s.detached
}

type fakeTrack struct {
	id     string
	device Device
	caps   Capabilities
	frames chan Frame

	closed     atomic.Bool
	closeCalls atomic.Int32

	mu       sync.Mutex
	settings Settings
}

func (t *fakeTrack) ID() string            { return t.id }
func (t *fakeTrack) Device() Device        { return t.device }
func (t *fakeTrack) Frames() <-chan Frame  { return t.frames }
func (t *fakeTrack) Capabilities() Capabilities {
	return t.caps
}

func (t *fakeTrack) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

func (t *fakeTrack) SetTorch(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings.TorchOn = on
	return nil
}

func (t *fakeTrack) SetZoom(level float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings.ZoomLevel = level
	return nil
}

func (t *fakeTrack) TriggerAutoFocus() error { return nil }

func (t *fakeTrack) Close() error {
	t.closeCalls.Add(1)
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(t.frames)
	return nil
}

type fakeProvider struct {
	mu           sync.Mutex
	devices      []Device
	granted      bool
	grantLabels  bool // when set, labels appear only after RequestPermission
	permErr      error
	openErr      error
	opens        int
	permRequests int
	fixedTrackID string
	blockOpen    chan struct{} // when non-nil, Open waits until closed
	lastTrack    *fakeTrack
}

func defaultFakeCaps() Capabilities {
	return Capabilities{
		HasTorch:   true,
		Zoom:       &ZoomRange{Min: 1, Max: 8, Step: 0.1},
		FocusModes: []string{"continuous", "single-shot"},
	}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		devices: []Device{
			{ID: "front", Label: "Front Camera"},
			{ID: "rear", Label: "Back Camera", RearFacing: true},
		},
	}
}

func (p *fakeProvider) RequestPermission(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permRequests++
	if p.permErr != nil {
		return p.permErr
	}
	p.granted = true
	return nil
}

func (p *fakeProvider) EnumerateDevices(ctx context.Context) ([]Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Device, len(p.devices))
	copy(out, p.devices)
	if p.grantLabels && !p.granted {
		for i := range out {
			out[i].Label = ""
			out[i].RearFacing = false
		}
	}
	return out, nil
}

func (p *fakeProvider) Open(ctx context.Context, deviceID string) (MediaTrack, error) {
	p.mu.Lock()
	block := p.blockOpen
	p.mu.Unlock()
	if block != nil {
		<-block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.opens++
	var device Device
	for _, d := range p.devices {
		if d.ID == deviceID {
			device = d
		}
	}
	if device.ID == "" {
		return nil, fmt.Errorf("no such device %q", deviceID)
	}
	id := p.fixedTrackID
	if id == "" {
		id = fmt.Sprintf("track-%d", p.opens)
	}
	t := &fakeTrack{
		id:       id,
		device:   device,
		caps:     defaultFakeCaps(),
		frames:   make(chan Frame, 4),
		settings: Settings{ZoomLevel: 1},
	}
	p.lastTrack = t
	return t, nil
}

func (p *fakeProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

func newTestManager(t *testing.T, p *fakeProvider) (*Manager, *fakeSurface) {
	t.Helper()
	surface := &fakeSurface{}
	m, err := NewManager(p, surface, nopLogger{})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, surface
}

func TestManager_ActivateIdempotent(t *testing.T) {
	p := newFakeProvider()
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := m.SetActive(ctx, true); err != nil {
			t.Fatalf("SetActive(true) call %d error = %v", i, err)
		}
	}

	if got := p.openCount(); got != 1 {
		t.Errorf("provider opens = %d, want 1", got)
	}
	if got := m.State(); got != StateLive {
		t.Errorf("state = %v, want %v", got, StateLive)
	}
}

func TestManager_ActivateConcurrent(t *testing.T) {
	p := newFakeProvider()
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.SetActive(ctx, true)
		}()
	}
	wg.Wait()

	if got := p.openCount(); got != 1 {
		t.Errorf("provider opens = %d, want 1 (one physical stream max)", got)
	}
	if got := m.State(); got != StateLive {
		t.Errorf("state = %v, want %v", got, StateLive)
	}
}

func TestManager_DeactivateIdempotent(t *testing.T) {
	p := newFakeProvider()
	m, surface := newTestManager(t, p)

	for i := 0; i < 3; i++ {
		if err := m.SetActive(context.Background(), false); err != nil {
			t.Fatalf("SetActive(false) call %d error = %v", i, err)
		}
	}

	if got := m.State(); got != StateInactive {
		t.Errorf("state = %v, want %v", got, StateInactive)
	}
	if _, _, detached := surface.counts(); detached != 0 {
		t.Errorf("surface detach count = %d, want 0 (no side effects)", detached)
	}
	if got := p.openCount(); got != 0 {
		t.Errorf("provider opens = %d, want 0", got)
	}
}

func TestManager_AcquireFailureLeavesInactive(t *testing.T) {
	p := newFakeProvider()
	p.openErr = errors.New("device busy")
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	if err := m.SetActive(ctx, true); err == nil {
		t.Fatal("SetActive(true) expected error, got nil")
	}
	if got := m.State(); got != StateInactive {
		t.Errorf("state after failure = %v, want %v", got, StateInactive)
	}

	// No automatic retry: re-invoking is the operator's call, and it works.
	p.mu.Lock()
	p.openErr = nil
	p.mu.Unlock()
	if err := m.SetActive(ctx, true); err != nil {
		t.Fatalf("SetActive(true) retry error = %v", err)
	}
	if got := m.State(); got != StateLive {
		t.Errorf("state after retry = %v, want %v", got, StateLive)
	}
}

func TestManager_PermissionRequestedWhenLabelsMissing(t *testing.T) {
	p := newFakeProvider()
	p.grantLabels = true
	m, _ := newTestManager(t, p)

	if err := m.SetActive(context.Background(), true); err != nil {
		t.Fatalf("SetActive(true) error = %v", err)
	}

	p.mu.Lock()
	requests := p.permRequests
	last := p.lastTrack
	p.mu.Unlock()

	if requests != 1 {
		t.Errorf("permission requests = %d, want 1", requests)
	}
	// Labels arrived after the grant, so the rear device is picked.
	if last.device.ID != "rear" {
		t.Errorf("opened device = %q, want rear", last.device.ID)
	}
}

func TestManager_PermissionDenied(t *testing.T) {
	p := newFakeProvider()
	p.grantLabels = true
	p.permErr = errors.New("denied by user")
	m, _ := newTestManager(t, p)

	err := m.SetActive(context.Background(), true)
	if err == nil {
		t.Fatal("SetActive(true) expected error, got nil")
	}
	if got := m.State(); got != StateInactive {
		t.Errorf("state = %v, want %v", got, StateInactive)
	}
	if got := p.openCount(); got != 0 {
		t.Errorf("provider opens = %d, want 0", got)
	}
}

func TestManager_CapabilitiesPublishedOncePerTrack(t *testing.T) {
	p := newFakeProvider()
	p.fixedTrackID = "same-physical-track"
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	var publishes atomic.Int32
	m.OnCapabilities(func(trackID string, caps Capabilities) {
		publishes.Add(1)
	})

	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := m.SetActive(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}

	if got := publishes.Load(); got != 1 {
		t.Errorf("capability publishes = %d, want 1 for identical track id", got)
	}

	// Distinct tracks publish again.
	p.mu.Lock()
	p.fixedTrackID = "a-different-track"
	p.mu.Unlock()
	if err := m.SetActive(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}
	if got := publishes.Load(); got != 2 {
		t.Errorf("capability publishes = %d, want 2 after new track", got)
	}
}

func TestManager_SelectDeviceSwitches(t *testing.T) {
	p := newFakeProvider()
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}
	p.mu.Lock()
	first := p.lastTrack
	p.mu.Unlock()
	if first.device.ID != "rear" {
		t.Fatalf("auto-pick opened %q, want rear", first.device.ID)
	}

	if err := m.SelectDevice(ctx, "front"); err != nil {
		t.Fatalf("SelectDevice(front) error = %v", err)
	}

	if got := p.openCount(); got != 2 {
		t.Errorf("provider opens = %d, want 2", got)
	}
	if got := first.closeCalls.Load(); got == 0 {
		t.Error("old track was never closed")
	}
	if got := m.State(); got != StateLive {
		t.Errorf("state = %v, want %v", got, StateLive)
	}
	if got := m.Stats().DeviceID; got != "front" {
		t.Errorf("active device = %q, want front", got)
	}
}

func TestManager_SelectDeviceWhileInactive(t *testing.T) {
	p := newFakeProvider()
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := m.SetActive(ctx, false); err != nil {
		t.Fatal(err)
	}

	// Preference recorded, no acquisition until the next activation.
	if err := m.SelectDevice(ctx, "front"); err != nil {
		t.Fatalf("SelectDevice error = %v", err)
	}
	if got := p.openCount(); got != 1 {
		t.Errorf("provider opens = %d, want 1", got)
	}

	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}
	p.mu.Lock()
	last := p.lastTrack
	p.mu.Unlock()
	if last.device.ID != "front" {
		t.Errorf("opened device = %q, want front", last.device.ID)
	}
}

func TestManager_SelectDeviceUnknown(t *testing.T) {
	p := newFakeProvider()
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := m.SelectDevice(ctx, "no-such-device"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("SelectDevice error = %v, want ErrUnknownDevice", err)
	}
}

func TestManager_ControlsRequireLiveStream(t *testing.T) {
	p := newFakeProvider()
	m, _ := newTestManager(t, p)

	tests := []struct {
		name string
		call func() error
	}{
		{"torch", func() error { return m.SetTorch(true) }},
		{"zoom", func() error { return m.SetZoom(2) }},
		{"focus", func() error { return m.TriggerAutoFocus() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrNotLive) {
				t.Errorf("error = %v, want ErrNotLive", err)
			}
		})
	}
}

func TestManager_TorchAndZoom(t *testing.T) {
	p := newFakeProvider()
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}

	if err := m.SetTorch(true); err != nil {
		t.Fatalf("SetTorch error = %v", err)
	}
	if !m.Settings().TorchOn {
		t.Error("settings.TorchOn = false after SetTorch(true)")
	}

	if err := m.SetZoom(4); err != nil {
		t.Fatalf("SetZoom error = %v", err)
	}
	if got := m.Settings().ZoomLevel; got != 4 {
		t.Errorf("settings.ZoomLevel = %v, want 4", got)
	}

	if err := m.SetZoom(99); !errors.Is(err, ErrZoomRange) {
		t.Errorf("SetZoom(99) err = %v, want ErrZoomRange", err)
	}
}

func TestManager_GrabFrame(t *testing.T) {
	p := newFakeProvider()
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	if err := m.SetActive(ctx, true); err != nil {
		t.Fatal(err)
	}
	p.mu.Lock()
	track := p.lastTrack
	p.mu.Unlock()

	go func() {
		track.frames <- Frame{Seq: 1, Timestamp: time.Now(), Width: 2, Height: 2, Data: []byte{1, 2, 3}, TrackID: track.id}
	}()

	grabCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	frame, err := m.GrabFrame(grabCtx)
	if err != nil {
		t.Fatalf("GrabFrame error = %v", err)
	}
	if len(frame.Data) != 3 {
		t.Fatalf("frame data length = %d, want 3", len(frame.Data))
	}

	// Returned frame is a copy; mutating it never touches the manager.
	frame.Data[0] = 99
	again, err := m.GrabFrame(ctx)
	if err != nil {
		t.Fatalf("second GrabFrame error = %v", err)
	}
	if again.Data[0] != 1 {
		t.Errorf("frame data was shared, got %d want 1", again.Data[0])
	}

	if err := m.SetActive(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GrabFrame(ctx); !errors.Is(err, ErrNotLive) {
		t.Errorf("GrabFrame after teardown error = %v, want ErrNotLive", err)
	}
}

func TestManager_DeactivateDuringAcquisition(t *testing.T) {
	p := newFakeProvider()
	release := make(chan struct{})
	p.blockOpen = release
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- m.SetActive(ctx, true)
	}()

	// Wait until the acquisition is in flight.
	deadline := time.After(2 * time.Second)
	for m.State() != StateAcquiring {
		select {
		case <-deadline:
			t.Fatal("manager never entered acquiring state")
		case <-time.After(time.Millisecond):
		}
	}

	if err := m.SetActive(ctx, false); err != nil {
		t.Fatalf("SetActive(false) during acquisition error = %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("superseded activation returned error = %v", err)
	}

	if got := m.State(); got != StateInactive {
		t.Errorf("state = %v, want %v", got, StateInactive)
	}
	p.mu.Lock()
	last := p.lastTrack
	p.mu.Unlock()
	if last != nil && !last.closed.Load() {
		t.Error("track opened during superseded acquisition was not released")
	}
}

func TestManager_SecondActivationDuringAcquisitionIsNoop(t *testing.T) {
	p := newFakeProvider()
	release := make(chan struct{})
	p.blockOpen = release
	m, _ := newTestManager(t, p)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		first <- m.SetActive(ctx, true)
	}()

	deadline := time.After(2 * time.Second)
	for m.State() != StateAcquiring {
		select {
		case <-deadline:
			t.Fatal("manager never entered acquiring state")
		case <-time.After(time.Millisecond):
		}
	}

	// Second caller returns immediately without queueing an acquisition.
	if err := m.SetActive(ctx, true); err != nil {
		t.Fatalf("second SetActive(true) error = %v", err)
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first SetActive(true) error = %v", err)
	}

	if got := p.openCount(); got != 1 {
		t.Errorf("provider opens = %d, want 1", got)
	}
}
