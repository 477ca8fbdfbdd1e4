package port

import (
	"context"

	"moldscan/internal/domain/entity"
)

// DefectDetector интерфейс детектора отличий от эталона
type DefectDetector interface {
	// Detect сравнивает кадр с эталоном и возвращает результат инспекции
	// вместе с аннотированной копией кадра. Размеры эталона и кадра
	// обязаны совпадать; sensitivity — порог в [0, 255].
	Detect(ctx context.Context, baseline, frame *entity.Frame, sensitivity int) (*entity.InspectionResult, error)
}
