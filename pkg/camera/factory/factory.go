package factory

import (
	"fmt"

	"snapvalue-be/pkg/camera"
	"snapvalue-be/pkg/camera/sim"
)

func NewMediaProvider(providerType string, fps float64, width, height int) (camera.MediaProvider, error) {
	switch providerType {
	case "sim":
		return sim.NewProvider(sim.Config{FPS: fps, Width: width, Height: height})
	default:
		return nil, fmt.Errorf("unsupported media provider: %s", providerType)
	}
}
