//go:build !gocv
// +build !gocv

package camera

import (
	"errors"

	"moldscan/internal/domain/entity"
	"moldscan/internal/domain/port"
)

// Provider — заглушка провайдера камеры (сборка без OpenCV).
type Provider struct {
	deviceID int
}

// NewProvider создаёт провайдер-заглушку (без OpenCV).
func NewProvider(deviceID int) *Provider {
	return &Provider{deviceID: deviceID}
}

// Open возвращает ошибку, если сборка без тега gocv.
func (p *Provider) Open(settings entity.CameraSettings) (port.Camera, error) {
	_ = settings
	return nil, errors.New("gocv build tag is not enabled")
}
