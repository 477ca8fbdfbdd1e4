//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"moldscan/internal/domain/entity"
)

// DiffDetector сравнивает кадр с эталоном попиксельной разницей яркости.
type DiffDetector struct{}

// NewDiffDetector создаёт детектор отличий.
func NewDiffDetector() *DiffDetector {
	return &DiffDetector{}
}

// Detect реализует пороговое сравнение: серый → absdiff → бинаризация
// строго diff > sensitivity → внешние контуры → bounding rect → фильтр
// размера. Результат детерминирован для одинаковых входов.
func (d *DiffDetector) Detect(ctx context.Context, baseline, frame *entity.Frame, sensitivity int) (*entity.InspectionResult, error) {
	_ = ctx
	if sensitivity < 0 || sensitivity > 255 {
		return nil, fmt.Errorf("sensitivity %d is out of range [0, 255]", sensitivity)
	}
	if baseline == nil || frame == nil {
		return nil, errors.New("baseline and frame are required")
	}
	// Несовпадение размеров — ошибка конфигурации (разрешение камеры
	// изменилось после калибровки); молча ресайзить нельзя.
	if !baseline.SameSize(frame) {
		return nil, fmt.Errorf("frame size %dx%d does not match baseline %dx%d",
			frame.Width, frame.Height, baseline.Width, baseline.Height)
	}

	baseMat, err := frameToMat(baseline)
	if err != nil {
		return nil, err
	}
	defer baseMat.Close()

	frameMat, err := frameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer frameMat.Close()

	// Одинаковая редукция в яркость для обоих изображений: нулевая
	// разница кадров даёт нулевой diff.
	baseGray := gocv.NewMat()
	defer baseGray.Close()
	gocv.CvtColor(baseMat, &baseGray, gocv.ColorRGBToGray)

	frameGray := gocv.NewMat()
	defer frameGray.Close()
	gocv.CvtColor(frameMat, &frameGray, gocv.ColorRGBToGray)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(baseGray, frameGray, &diff)

	// Порог строгий: diff == sensitivity остаётся фоном.
	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, float32(sensitivity), 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	defects := make([]entity.DefectArea, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		area := entity.DefectArea{
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
			Area:   rect.Dx() * rect.Dy(),
		}
		if !area.Significant() {
			continue
		}
		defects = append(defects, area)
	}

	annotated, err := annotate(frameMat, defects)
	if err != nil {
		return nil, err
	}

	return &entity.InspectionResult{
		Sensitivity: sensitivity,
		ImageWidth:  frame.Width,
		ImageHeight: frame.Height,
		Defects:     defects,
		HasDefects:  len(defects) > 0,
		Annotated:   annotated,
	}, nil
}

// annotate рисует рамки толщиной 2 вокруг прошедших фильтр областей
// на копии кадра. Отбракованные кандидаты не рисуются.
func annotate(frameMat gocv.Mat, defects []entity.DefectArea) (*entity.Frame, error) {
	out := frameMat.Clone()
	defer out.Close()

	green := color.RGBA{G: 255, A: 255}
	for _, defect := range defects {
		rect := image.Rect(defect.X, defect.Y, defect.X+defect.Width, defect.Y+defect.Height)
		gocv.Rectangle(&out, rect, green, 2)
	}

	return matToFrame(out)
}

// frameToMat превращает кадр в трёхканальный gocv.Mat (с копией данных).
func frameToMat(f *entity.Frame) (gocv.Mat, error) {
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("build mat %dx%d: %w", f.Width, f.Height, err)
	}
	return mat, nil
}

// matToFrame выгружает трёхканальный Mat обратно в кадр.
func matToFrame(mat gocv.Mat) (*entity.Frame, error) {
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("unexpected mat type %d", mat.Type())
	}
	return &entity.Frame{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Pix:    mat.ToBytes(),
	}, nil
}
