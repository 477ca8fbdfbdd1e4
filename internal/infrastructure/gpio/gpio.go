package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"moldscan/internal/domain/port"
)

// debounce гасит дребезг контактов концевика станка.
const debounce = 20 * time.Millisecond

// Trigger — аппаратная кнопка на GPIO-линии, срабатывает по фронту.
type Trigger struct {
	chip   string
	offset int
}

// NewTrigger создаёт триггер на заданной линии.
func NewTrigger(chip string, offset int) *Trigger {
	return &Trigger{chip: chip, offset: offset}
}

// Watch подписывает обработчик на нажатие. Возвращённая функция
// освобождает линию; после её вызова обработчик больше не зовётся.
func (t *Trigger) Watch(handler func()) (func(), error) {
	line, err := gpiocdev.RequestLine(t.chip, t.offset,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			handler()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("request trigger line %s:%d: %w", t.chip, t.offset, err)
	}
	return func() { line.Close() }, nil
}

// LinesProvider открывает три индикаторных выхода: тревога, норма, вспышка.
type LinesProvider struct {
	chip     string
	alertPin int
	okPin    int
	flashPin int
}

// NewLinesProvider создаёт провайдер индикаторных линий.
func NewLinesProvider(chip string, alertPin, okPin, flashPin int) *LinesProvider {
	return &LinesProvider{chip: chip, alertPin: alertPin, okPin: okPin, flashPin: flashPin}
}

// Open запрашивает линии; все выходы стартуют погашенными.
func (p *LinesProvider) Open() (port.IndicatorLines, error) {
	alert, err := gpiocdev.RequestLine(p.chip, p.alertPin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request alert line %s:%d: %w", p.chip, p.alertPin, err)
	}
	ok, err := gpiocdev.RequestLine(p.chip, p.okPin, gpiocdev.AsOutput(0))
	if err != nil {
		alert.Close()
		return nil, fmt.Errorf("request ok line %s:%d: %w", p.chip, p.okPin, err)
	}
	flash, err := gpiocdev.RequestLine(p.chip, p.flashPin, gpiocdev.AsOutput(0))
	if err != nil {
		alert.Close()
		ok.Close()
		return nil, fmt.Errorf("request flash line %s:%d: %w", p.chip, p.flashPin, err)
	}
	return &lines{alert: alert, ok: ok, flash: flash}, nil
}

type lines struct {
	alert *gpiocdev.Line
	ok    *gpiocdev.Line
	flash *gpiocdev.Line
}

func (l *lines) SetAlert(on bool) error { return setLine(l.alert, on) }
func (l *lines) SetOK(on bool) error    { return setLine(l.ok, on) }
func (l *lines) SetFlash(on bool) error { return setLine(l.flash, on) }

// Close явно гасит все три сигнала и освобождает линии: висящий
// включённый светодиод после выхода из цикла — дефект.
func (l *lines) Close() error {
	var firstErr error
	for _, line := range []*gpiocdev.Line{l.alert, l.ok, l.flash} {
		if err := setLine(line, false); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func setLine(line *gpiocdev.Line, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return line.SetValue(v)
}
