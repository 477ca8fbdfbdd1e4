package entity

// Frame — кадр камеры: массив высота×ширина×3, по байту на канал (RGB).
type Frame struct {
	Width  int
	Height int
	Pix    []uint8 // построчно, 3 байта на пиксель
}

// NewFrame создаёт чёрный кадр заданного размера.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Clone возвращает независимую копию кадра.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pix: make([]uint8, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// SameSize сообщает, совпадают ли размеры двух кадров.
func (f *Frame) SameSize(other *Frame) bool {
	return other != nil && f.Width == other.Width && f.Height == other.Height
}

// At возвращает каналы пикселя (x, y).
func (f *Frame) At(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set задаёт каналы пикселя (x, y).
func (f *Frame) Set(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}
