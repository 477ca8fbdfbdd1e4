package port

import "moldscan/internal/domain/entity"

// BaselineRepository хранилище эталонного изображения
type BaselineRepository interface {
	// Save сохраняет эталон для переиспользования между перезапусками
	Save(baseline *entity.Frame) error

	// Load возвращает сохранённый эталон
	Load() (*entity.Frame, error)
}

// SettingsRepository хранилище настроек камеры
type SettingsRepository interface {
	// Load возвращает текущие настройки (custom-секцию)
	Load() (entity.CameraSettings, error)

	// Save сохраняет настройки; невалидные значения отклоняются
	Save(settings entity.CameraSettings) error

	// Reset сбрасывает настройки к заводским и возвращает их
	Reset() (entity.CameraSettings, error)
}

// ResultSink архив результатов инспекции
type ResultSink interface {
	// Save сохраняет аннотированный кадр результата
	Save(result *entity.InspectionResult) error
}
