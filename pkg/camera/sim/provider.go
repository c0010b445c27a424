// Package sim is a synthetic camera.MediaProvider for development and
// headless deployments. It renders a moving test pattern, encodes it as
// JPEG and exposes the same permission/enumeration semantics a real
// platform provider has: device labels stay empty until permission is
// granted.
package sim

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"snapvalue-be/pkg/camera"
)

// Config controls the synthetic stream.
type Config struct {
	// FPS is the frame generation rate (0.1 - 60)
	FPS float64
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Buffer is the frame channel capacity; full means drop
	Buffer int
}

func (c *Config) applyDefaults() {
	if c.FPS == 0 {
		c.FPS = 15
	}
	if c.Width == 0 {
		c.Width = 640
	}
	if c.Height == 0 {
		c.Height = 480
	}
	if c.Buffer == 0 {
		c.Buffer = 8
	}
}

// Provider implements camera.MediaProvider with two fixed simulated devices.
type Provider struct {
	cfg Config

	mu      sync.Mutex
	granted bool
	open    map[string]*Track
}

// NewProvider creates a sim provider with fail-fast validation.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.applyDefaults()
	if cfg.FPS < 0.1 || cfg.FPS > 60 {
		return nil, fmt.Errorf("sim: invalid FPS %.2f (must be 0.1-60)", cfg.FPS)
	}
	if cfg.Width < 16 || cfg.Height < 16 {
		return nil, fmt.Errorf("sim: invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	return &Provider{
		cfg:  cfg,
		open: make(map[string]*Track),
	}, nil
}

const (
	DeviceFront = "sim-front"
	DeviceRear  = "sim-rear"
)

func (p *Provider) RequestPermission(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.granted = true
	p.mu.Unlock()
	return nil
}

func (p *Provider) EnumerateDevices(ctx context.Context) ([]camera.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	granted := p.granted
	p.mu.Unlock()

	if !granted {
		// Pre-permission: ids only, no labels, no facing info.
		return []camera.Device{{ID: DeviceFront}, {ID: DeviceRear}}, nil
	}
	return []camera.Device{
		{ID: DeviceFront, Label: "Simulated Front Camera"},
		{ID: DeviceRear, Label: "Simulated Back Camera", RearFacing: true},
	}, nil
}

func (p *Provider) Open(ctx context.Context, deviceID string) (camera.MediaTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deviceID != DeviceFront && deviceID != DeviceRear {
		return nil, fmt.Errorf("sim: unknown device %q", deviceID)
	}

	p.mu.Lock()
	if _, exists := p.open[deviceID]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("sim: device %q already open", deviceID)
	}

	device := camera.Device{ID: deviceID, Label: "Simulated Front Camera"}
	if deviceID == DeviceRear {
		device = camera.Device{ID: deviceID, Label: "Simulated Back Camera", RearFacing: true}
	}

	trackCtx, cancel := context.WithCancel(context.Background())
	t := &Track{
		id:       "simtrack-" + uuid.NewString(),
		device:   device,
		provider: p,
		frames:   make(chan camera.Frame, p.cfg.Buffer),
		cancel:   cancel,
		settings: camera.Settings{
			ZoomLevel:        1.0,
			FocusMode:        "continuous",
			ExposureMode:     "continuous",
			WhiteBalanceMode: "auto",
		},
	}
	p.open[deviceID] = t
	p.mu.Unlock()

	t.wg.Add(1)
	go t.generate(trackCtx, p.cfg)

	return t, nil
}

func (p *Provider) release(deviceID string) {
	p.mu.Lock()
	delete(p.open, deviceID)
	p.mu.Unlock()
}

// Track is one live simulated stream.
type Track struct {
	id       string
	device   camera.Device
	provider *Provider

	frames chan camera.Frame
	cancel context.CancelFunc
	wg     sync.WaitGroup

	seq     atomic.Uint64
	dropped atomic.Uint64
	closed  atomic.Bool

	mu       sync.Mutex
	settings camera.Settings
}

func (t *Track) ID() string            { return t.id }
func (t *Track) Device() camera.Device { return t.device }

func (t *Track) Frames() <-chan camera.Frame { return t.frames }

func (t *Track) Capabilities() camera.Capabilities {
	if t.device.RearFacing {
		return camera.Capabilities{
			HasTorch:          true,
			Zoom:              &camera.ZoomRange{Min: 1, Max: 8, Step: 0.1},
			FocusModes:        []string{"continuous", "single-shot", "manual"},
			ExposureModes:     []string{"continuous", "manual"},
			WhiteBalanceModes: []string{"auto", "daylight", "incandescent"},
		}
	}
	return camera.Capabilities{
		Zoom:              &camera.ZoomRange{Min: 1, Max: 4, Step: 0.1},
		FocusModes:        []string{"continuous"},
		ExposureModes:     []string{"continuous"},
		WhiteBalanceModes: []string{"auto"},
	}
}

func (t *Track) Settings() camera.Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

func (t *Track) SetTorch(on bool) error {
	if !t.device.RearFacing {
		return fmt.Errorf("sim: device %q has no torch", t.device.ID)
	}
	t.mu.Lock()
	t.settings.TorchOn = on
	t.mu.Unlock()
	return nil
}

func (t *Track) SetZoom(level float64) error {
	caps := t.Capabilities()
	if level < caps.Zoom.Min || level > caps.Zoom.Max {
		return fmt.Errorf("sim: zoom %.2f out of range", level)
	}
	t.mu.Lock()
	t.settings.ZoomLevel = level
	t.mu.Unlock()
	return nil
}

func (t *Track) TriggerAutoFocus() error {
	// A scan briefly switches to single-shot focus, then the platform
	// returns to the configured mode. The sim models just the end state.
	t.mu.Lock()
	t.settings.FocusMode = "continuous"
	t.mu.Unlock()
	return nil
}

// Close stops the generator and closes the frame channel. Idempotent:
// the atomic flag guards against a double close.
func (t *Track) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.cancel()
	t.wg.Wait()
	close(t.frames)
	t.provider.release(t.device.ID)
	return nil
}

// Dropped reports how many frames were discarded because the consumer
// lagged behind.
func (t *Track) Dropped() uint64 {
	return t.dropped.Load()
}

func (t *Track) generate(ctx context.Context, cfg Config) {
	defer t.wg.Done()

	interval := time.Duration(float64(time.Second) / cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			seq := t.seq.Add(1)
			data, err := renderJPEG(cfg.Width, cfg.Height, seq)
			if err != nil {
				continue
			}
			frame := camera.Frame{
				Seq:       seq,
				Timestamp: now,
				Width:     cfg.Width,
				Height:    cfg.Height,
				Data:      data,
				TrackID:   t.id,
			}
			// Non-blocking send: a slow consumer drops frames, never
			// backs up the generator.
			select {
			case t.frames <- frame:
			default:
				t.dropped.Add(1)
			}
		}
	}
}

// renderJPEG draws a moving diagonal gradient so consecutive frames differ.
func renderJPEG(width, height int, seq uint64) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	shift := uint8(seq * 7)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x) + shift,
				G: uint8(y) + shift,
				B: uint8(x+y) - shift,
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
