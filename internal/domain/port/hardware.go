package port

// HardwareTrigger — аппаратная кнопка/концевик. Подписка возвращает
// функцию отмены; на выходе из цикла её обязаны вызвать, чтобы не
// оставить висящий обработчик на линии.
type HardwareTrigger interface {
	// Watch регистрирует обработчик нажатия и возвращает отмену подписки
	Watch(handler func()) (cancel func(), err error)
}

// IndicatorLines — три независимых дискретных выхода. Пишет в них
// только контроллер индикации; Close обязан явно погасить все три
// сигнала перед освобождением линий.
type IndicatorLines interface {
	SetAlert(on bool) error
	SetOK(on bool) error
	SetFlash(on bool) error
	Close() error
}

// IndicatorProvider открывает линии индикации. Линии освобождаются на
// каждом выходе из цикла и открываются заново на входе — так повторный
// запуск не работает со stale-дескрипторами.
type IndicatorProvider interface {
	Open() (IndicatorLines, error)
}
