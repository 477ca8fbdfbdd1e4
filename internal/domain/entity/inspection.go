package entity

import "time"

// InspectionResult хранит итог одного цикла сравнения с эталоном.
// После создания не изменяется.
type InspectionResult struct {
	ID          string       // идентификатор цикла
	TakenAt     time.Time    // момент захвата кадра
	Sensitivity int          // порог, с которым шло сравнение
	ImageWidth  int          // ширина кадра
	ImageHeight int          // высота кадра
	Defects     []DefectArea // области, прошедшие шумовой фильтр
	HasDefects  bool         // флаг наличия дефектов
	Annotated   *Frame       // копия кадра с рамками вокруг дефектов
}
