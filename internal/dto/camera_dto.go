package dto

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type SelectDeviceRequest struct {
	DeviceId string `json:"device_id" validate:"required"`
}

type SetTorchRequest struct {
	On *bool `json:"on" validate:"required"`
}

type SetZoomRequest struct {
	Level float64 `json:"level" validate:"required,gt=0"`
}

type CameraStateResponse struct {
	State string `json:"state"`
}

type DeviceResponse struct {
	Id         string `json:"id"`
	Label      string `json:"label"`
	RearFacing bool   `json:"rear_facing"`
}

type ZoomRangeResponse struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// CapabilitiesResponse mirrors what the active track reported. Empty until
// the stream has gone live at least once.
type CapabilitiesResponse struct {
	HasTorch          bool               `json:"has_torch"`
	Zoom              *ZoomRangeResponse `json:"zoom,omitempty"`
	FocusModes        []string           `json:"focus_modes,omitempty"`
	ExposureModes     []string           `json:"exposure_modes,omitempty"`
	WhiteBalanceModes []string           `json:"white_balance_modes,omitempty"`
}

type CameraSettingsResponse struct {
	TorchOn          bool    `json:"torch_on"`
	ZoomLevel        float64 `json:"zoom_level"`
	FocusMode        string  `json:"focus_mode,omitempty"`
	ExposureMode     string  `json:"exposure_mode,omitempty"`
	WhiteBalanceMode string  `json:"white_balance_mode,omitempty"`
}
