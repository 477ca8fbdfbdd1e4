package storage

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"moldscan/internal/domain/entity"
	"moldscan/internal/domain/port"
)

const previewWidth = 200

// ResultArchive складывает аннотированные кадры инспекции в каталог:
// полный JPEG с меткой времени и id цикла плюс уменьшенный предпросмотр
// для операторского экрана.
type ResultArchive struct {
	dir string
}

// NewResultArchive создаёт архив результатов в заданном каталоге.
func NewResultArchive(dir string) *ResultArchive {
	return &ResultArchive{dir: dir}
}

// Save сохраняет результат цикла.
func (a *ResultArchive) Save(result *entity.InspectionResult) error {
	if result == nil || result.Annotated == nil {
		return errors.New("result has no annotated frame")
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	base := fmt.Sprintf("%s_%s", result.TakenAt.Format("20060102-150405"), result.ID)
	img := frameToImage(result.Annotated)

	if err := writeJPEG(filepath.Join(a.dir, base+".jpg"), img); err != nil {
		return err
	}

	preview := scalePreview(img)
	return writeJPEG(filepath.Join(a.dir, base+"_preview.jpg"), preview)
}

// scalePreview уменьшает кадр до ширины предпросмотра с сохранением пропорций.
func scalePreview(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	height := previewWidth * bounds.Dy() / bounds.Dx()
	if height < 1 {
		height = 1
	}
	preview := image.NewRGBA(image.Rect(0, 0, previewWidth, height))
	xdraw.CatmullRom.Scale(preview, preview.Bounds(), img, bounds, xdraw.Src, nil)
	return preview
}

func writeJPEG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer file.Close()

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.ResultSink = (*ResultArchive)(nil)
