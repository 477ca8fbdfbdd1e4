package entity

import "fmt"

// CameraSettings — явный перечень настроек камеры вместо произвольной
// карты: неверное значение отклоняется на этапе конфигурации, а не при
// первом обращении к камере.
type CameraSettings struct {
	Brightness   int        `json:"brightness"`    // [0, 100]
	Contrast     int        `json:"contrast"`      // [-100, 100]
	Rotation     int        `json:"rotation"`      // 0, 90, 180 или 270 градусов
	Sharpness    int        `json:"sharpness"`     // [-100, 100]
	ShutterSpeed int        `json:"shutter_speed"` // микросекунды, [1000, 3000]
	Zoom         [4]float64 `json:"zoom"`          // доли кадра: xmin, ymin, xmax, ymax

	SensorWidth  int `json:"sensor_width"`  // разрешение сенсора
	SensorHeight int `json:"sensor_height"`
	FrameWidth   int `json:"frame_width"` // рабочий размер кадра после resize
	FrameHeight  int `json:"frame_height"`
}

// DefaultCameraSettings возвращает заводские настройки стенда.
func DefaultCameraSettings() CameraSettings {
	return CameraSettings{
		Brightness:   50,
		Contrast:     0,
		Rotation:     0,
		Sharpness:    0,
		ShutterSpeed: 2000,
		Zoom:         [4]float64{0, 0, 1, 1},
		SensorWidth:  640,
		SensorHeight: 368,
		FrameWidth:   400,
		FrameHeight:  250,
	}
}

// Validate проверяет допустимость всех полей.
func (s CameraSettings) Validate() error {
	if s.Brightness < 0 || s.Brightness > 100 {
		return fmt.Errorf("brightness %d is out of range [0, 100]", s.Brightness)
	}
	if s.Contrast < -100 || s.Contrast > 100 {
		return fmt.Errorf("contrast %d is out of range [-100, 100]", s.Contrast)
	}
	if s.Sharpness < -100 || s.Sharpness > 100 {
		return fmt.Errorf("sharpness %d is out of range [-100, 100]", s.Sharpness)
	}
	if s.ShutterSpeed < 1000 || s.ShutterSpeed > 3000 {
		return fmt.Errorf("shutter speed %d is out of range [1000, 3000]", s.ShutterSpeed)
	}
	switch s.Rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("rotation %d is not one of 0, 90, 180, 270", s.Rotation)
	}
	for i, v := range s.Zoom {
		if v < 0 || v > 1 {
			return fmt.Errorf("zoom[%d]=%g is out of range [0, 1]", i, v)
		}
	}
	if s.Zoom[0] >= s.Zoom[2] || s.Zoom[1] >= s.Zoom[3] {
		return fmt.Errorf("zoom region (%g, %g, %g, %g) is empty", s.Zoom[0], s.Zoom[1], s.Zoom[2], s.Zoom[3])
	}
	if s.SensorWidth <= 0 || s.SensorHeight <= 0 {
		return fmt.Errorf("sensor resolution %dx%d is invalid", s.SensorWidth, s.SensorHeight)
	}
	if s.FrameWidth <= 0 || s.FrameHeight <= 0 {
		return fmt.Errorf("frame size %dx%d is invalid", s.FrameWidth, s.FrameHeight)
	}
	return nil
}
