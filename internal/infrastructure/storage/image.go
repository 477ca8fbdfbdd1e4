package storage

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	"moldscan/internal/domain/entity"
)

// EncodePNG пишет кадр в PNG (без потерь).
func EncodePNG(w io.Writer, f *entity.Frame) error {
	return png.Encode(w, frameToImage(f))
}

// EncodeJPEG пишет кадр в JPEG для показа оператору.
func EncodeJPEG(w io.Writer, f *entity.Frame) error {
	return jpeg.Encode(w, frameToImage(f), &jpeg.Options{Quality: 90})
}

// frameToImage переводит кадр в image.RGBA для кодирования в файл.
func frameToImage(f *entity.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// imageToFrame переводит декодированное изображение обратно в кадр.
func imageToFrame(img image.Image) *entity.Frame {
	bounds := img.Bounds()
	f := entity.NewFrame(bounds.Dx(), bounds.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			f.Set(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return f
}
