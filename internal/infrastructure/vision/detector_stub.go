//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"moldscan/internal/domain/entity"
)

// DiffDetector — заглушка детектора (сборка без OpenCV).
type DiffDetector struct{}

// NewDiffDetector создаёт детектор-заглушку (без OpenCV).
func NewDiffDetector() *DiffDetector {
	return &DiffDetector{}
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *DiffDetector) Detect(ctx context.Context, baseline, frame *entity.Frame, sensitivity int) (*entity.InspectionResult, error) {
	_ = ctx
	_ = baseline
	_ = frame
	_ = sensitivity
	return nil, errors.New("gocv build tag is not enabled")
}
