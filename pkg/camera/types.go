package camera

import "time"

// State is the lifecycle state of the managed stream.
type State int

const (
	StateInactive State = iota
	StateAcquiring
	StateLive
	StateSwitching
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateAcquiring:
		return "acquiring"
	case StateLive:
		return "live"
	case StateSwitching:
		return "switching"
	default:
		return "unknown"
	}
}

// Device describes one physical camera reported by the provider.
// Labels may be empty until permission has been granted.
type Device struct {
	ID         string
	Label      string
	RearFacing bool
}

// Frame is a single still delivered by a live track. Data is an encoded
// JPEG image.
type Frame struct {
	// Seq is the monotonic sequence number within one track
	Seq uint64
	// Timestamp is when the frame was produced
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains the encoded frame (JPEG)
	Data []byte
	// TrackID identifies the physical track the frame came from
	TrackID string
}

// ZoomRange is the supported zoom interval of a track.
type ZoomRange struct {
	Min  float64
	Max  float64
	Step float64
}

// Capabilities describes what the active physical track supports. Derived
// once per track; never recomputed for the same track identity.
type Capabilities struct {
	HasTorch          bool
	Zoom              *ZoomRange
	FocusModes        []string
	ExposureModes     []string
	WhiteBalanceModes []string
}

// Settings is the currently applied track configuration. Mutated only via
// the Manager mutators.
type Settings struct {
	TorchOn          bool
	ZoomLevel        float64
	FocusMode        string
	ExposureMode     string
	WhiteBalanceMode string
}

func defaultSettings() Settings {
	return Settings{ZoomLevel: 1.0}
}

// Stats is a point-in-time snapshot of the manager. Safe to request from
// any goroutine.
type Stats struct {
	State               string `json:"state"`
	DeviceID            string `json:"device_id"`
	TrackID             string `json:"track_id"`
	FramesDelivered     uint64 `json:"frames_delivered"`
	LastFrameAgeMS      int64  `json:"last_frame_age_ms"`
	CapabilityPublishes uint64 `json:"capability_publishes"`
}
