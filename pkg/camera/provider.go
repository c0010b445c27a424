package camera

import "context"

// MediaProvider is the single gateway to platform media acquisition. No
// other component may touch platform camera APIs directly; everything goes
// through a provider owned by the Manager.
//
// Implementations must guarantee:
//   - EnumerateDevices() is callable before RequestPermission(); device
//     labels may be empty until permission is granted
//   - Open() hands out an exclusive handle; the caller owns the track
//     until Close()
//   - all methods honor context cancellation
type MediaProvider interface {
	// RequestPermission asks the platform for camera access. Returns an
	// error on denial. Callers must not retry automatically.
	RequestPermission(ctx context.Context) error

	// EnumerateDevices lists the cameras currently visible to the platform.
	EnumerateDevices(ctx context.Context) ([]Device, error)

	// Open acquires the physical stream for the given device id.
	Open(ctx context.Context, deviceID string) (MediaTrack, error)
}

// MediaTrack is one live physical camera stream.
//
// Implementations must guarantee:
//   - ID() is stable and unique per physical acquisition
//   - Frames() stays open until Close(), and Close() closes it
//   - frame delivery is non-blocking: when the consumer lags, frames are
//     dropped rather than queued
//   - Close() is idempotent
type MediaTrack interface {
	ID() string
	Device() Device

	// Frames returns the live frame channel.
	Frames() <-chan Frame

	Capabilities() Capabilities
	Settings() Settings

	SetTorch(on bool) error
	SetZoom(level float64) error
	TriggerAutoFocus() error

	Close() error
}

// OutputSurface is the render target a live track gets attached to.
// Attaching does not start playback: several platforms defer autoplay until
// an explicit call, so the Manager always issues Play() after Attach().
type OutputSurface interface {
	Attach(track MediaTrack) error
	Play() error
	Detach()
}

// NopSurface is an OutputSurface for headless deployments.
type NopSurface struct{}

func (NopSurface) Attach(MediaTrack) error { return nil }
func (NopSurface) Play() error             { return nil }
func (NopSurface) Detach()                 {}
