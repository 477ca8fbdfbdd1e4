package port

import (
	"context"

	"moldscan/internal/domain/entity"
)

// Camera — открытая камера. Ресурс строго эксклюзивный: пока камера
// открыта, второй Open у провайдера обязан вернуть ошибку.
type Camera interface {
	// Capture снимает один кадр рабочего размера
	Capture(ctx context.Context) (*entity.Frame, error)

	// Close освобождает камеру
	Close() error
}

// CameraProvider открывает камеру с применёнными настройками
type CameraProvider interface {
	Open(settings entity.CameraSettings) (Camera, error)
}
