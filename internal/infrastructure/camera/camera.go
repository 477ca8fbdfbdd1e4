//go:build gocv
// +build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"moldscan/internal/domain/entity"
	"moldscan/internal/domain/port"
)

// Provider открывает стендовую камеру через V4L2/OpenCV. Камера —
// эксклюзивный ресурс: второй Open до Close первого получает ошибку,
// поэтому калибровка и цикл инспекции не пересекаются на железе.
type Provider struct {
	deviceID int

	mu   sync.Mutex
	busy bool
}

// NewProvider создаёт провайдер камеры для заданного устройства.
func NewProvider(deviceID int) *Provider {
	return &Provider{deviceID: deviceID}
}

// ErrCameraBusy возвращается, когда камера уже открыта другим потребителем.
var ErrCameraBusy = errors.New("camera is busy")

// Open применяет настройки и выдаёт эксклюзивный дескриптор камеры.
func (p *Provider) Open(settings entity.CameraSettings) (port.Camera, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("camera settings: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy {
		return nil, ErrCameraBusy
	}

	capture, err := gocv.OpenVideoCapture(p.deviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera device %d: %w", p.deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(settings.SensorWidth))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(settings.SensorHeight))
	capture.Set(gocv.VideoCaptureBrightness, float64(settings.Brightness))
	capture.Set(gocv.VideoCaptureContrast, float64(settings.Contrast))
	capture.Set(gocv.VideoCaptureSharpness, float64(settings.Sharpness))
	// Единицы экспозиции зависят от драйвера; на стенде V4L2 принимает
	// микросекунды как есть.
	capture.Set(gocv.VideoCaptureExposure, float64(settings.ShutterSpeed))

	p.busy = true
	return &device{provider: p, capture: capture, settings: settings}, nil
}

type device struct {
	provider *Provider
	capture  *gocv.VideoCapture
	settings entity.CameraSettings
	closed   bool
}

// Capture снимает один кадр: поворот, вырез zoom-области, приведение к
// рабочему размеру, RGB.
func (c *device) Capture(ctx context.Context) (*entity.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.closed {
		return nil, errors.New("camera is closed")
	}

	img := gocv.NewMat()
	defer img.Close()
	if ok := c.capture.Read(&img); !ok || img.Empty() {
		return nil, errors.New("failed to read frame from camera")
	}

	if c.settings.Rotation != 0 {
		rotated := gocv.NewMat()
		gocv.Rotate(img, &rotated, rotationFlag(c.settings.Rotation))
		img.Close()
		img = rotated
	}

	z := c.settings.Zoom
	width, height := img.Cols(), img.Rows()
	roi := image.Rect(
		int(z[0]*float64(width)),
		int(z[1]*float64(height)),
		int(z[2]*float64(width)),
		int(z[3]*float64(height)),
	)
	if roi != image.Rect(0, 0, width, height) {
		region := img.Region(roi)
		cropped := region.Clone()
		region.Close()
		img.Close()
		img = cropped
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(c.settings.FrameWidth, c.settings.FrameHeight), 0, 0, gocv.InterpolationArea)

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB)

	return &entity.Frame{
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		Pix:    rgb.ToBytes(),
	}, nil
}

// Close освобождает камеру; после него провайдер снова готов к Open.
func (c *device) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.capture.Close()

	c.provider.mu.Lock()
	c.provider.busy = false
	c.provider.mu.Unlock()
	return err
}

func rotationFlag(degrees int) gocv.RotateFlag {
	switch degrees {
	case 90:
		return gocv.Rotate90Clockwise
	case 180:
		return gocv.Rotate180Clockwise
	default:
		return gocv.Rotate90CounterClockwise
	}
}
