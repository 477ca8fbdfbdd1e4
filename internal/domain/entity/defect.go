package entity

// MinDefectSide — минимальный размер стороны дефекта в пикселях.
// Области со стороной не больше этого значения считаются шумом
// камеры/сжатия, а не реальным дефектом.
const MinDefectSide = 35

// DefectArea представляет область с обнаруженным отличием
type DefectArea struct {
	X      int // координата X левого верхнего угла
	Y      int // координата Y левого верхнего угла
	Width  int // ширина области в пикселях
	Height int // высота области в пикселях
	Area   int // площадь области в пикселях
}

// Center возвращает координаты центра дефекта
func (d DefectArea) Center() (x, y int) {
	return d.X + d.Width/2, d.Y + d.Height/2
}

// Significant сообщает, проходит ли область шумовой фильтр.
// Обе стороны должны быть строго больше MinDefectSide: 35×40 — шум,
// 36×36 — дефект.
func (d DefectArea) Significant() bool {
	return d.Width > MinDefectSide && d.Height > MinDefectSide
}
