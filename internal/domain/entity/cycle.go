package entity

// CycleState состояние цикла инспекции
type CycleState string

const (
	StateIdle       CycleState = "idle"       // Ожидание срабатывания триггера
	StateCapturing  CycleState = "capturing"  // Захват и анализ кадра
	StateDisplaying CycleState = "displaying" // Показ результата до следующего триггера
)
