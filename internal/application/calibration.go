package app

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"moldscan/internal/domain/entity"
	"moldscan/internal/domain/port"
)

// CalibrationService строит эталонное изображение усреднением серии кадров.
type CalibrationService struct {
	cameras   port.CameraProvider
	baselines port.BaselineRepository
	settings  port.SettingsRepository
}

// NewCalibrationService создаёт сервис калибровки.
func NewCalibrationService(cameras port.CameraProvider, baselines port.BaselineRepository, settings port.SettingsRepository) *CalibrationService {
	return &CalibrationService{
		cameras:   cameras,
		baselines: baselines,
		settings:  settings,
	}
}

// Calibrate снимает count кадров подряд и сводит их к одному эталону
// попиксельным усреднением. Камера на всё время серии занята эксклюзивно.
// onProgress (может быть nil) вызывается после каждого кадра парой
// (текущий, всего). При любой ошибке захвата эталон не создаётся и
// частичная сумма не утекает наружу; прежний сохранённый эталон остаётся
// нетронутым.
func (s *CalibrationService) Calibrate(ctx context.Context, count int, onProgress func(current, total int)) (*entity.Frame, error) {
	if count < 1 {
		return nil, fmt.Errorf("calibration count %d must be at least 1", count)
	}

	settings, err := s.settings.Load()
	if err != nil {
		return nil, fmt.Errorf("load camera settings: %w", err)
	}

	camera, err := s.cameras.Open(settings)
	if err != nil {
		return nil, fmt.Errorf("open camera: %w", err)
	}
	defer camera.Close()

	// Накапливаем sum(frame/count) во float64, чтобы не потерять точность
	// и не переполнить байтовые каналы.
	var (
		acc    []float64
		sample []float64
		width  int
		height int
	)
	for i := 0; i < count; i++ {
		frame, err := camera.Capture(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture %d of %d: %w", i+1, count, err)
		}

		if acc == nil {
			width, height = frame.Width, frame.Height
			acc = make([]float64, len(frame.Pix))
			sample = make([]float64, len(frame.Pix))
		} else if frame.Width != width || frame.Height != height {
			return nil, fmt.Errorf("capture %d of %d: frame size %dx%d does not match %dx%d",
				i+1, count, frame.Width, frame.Height, width, height)
		}

		for j, p := range frame.Pix {
			sample[j] = float64(p)
		}
		floats.AddScaled(acc, 1/float64(count), sample)

		if onProgress != nil {
			onProgress(i+1, count)
		}
	}

	baseline := entity.NewFrame(width, height)
	for j, v := range acc {
		baseline.Pix[j] = clampByte(math.Round(v))
	}

	if err := s.baselines.Save(baseline); err != nil {
		return nil, fmt.Errorf("save baseline: %w", err)
	}

	return baseline, nil
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
