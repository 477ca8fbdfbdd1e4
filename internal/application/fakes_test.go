package app

import (
	"context"
	"errors"
	"sync"

	"moldscan/internal/domain/entity"
	"moldscan/internal/domain/port"
)

// scriptedCamera отдаёт кадры по очереди; может падать на заданном захвате
// и блокироваться до внешнего разрешения.
type scriptedCamera struct {
	mu      sync.Mutex
	frames  []*entity.Frame
	errAt   int // номер захвата (с нуля), который падает; -1 — без ошибок
	calls   int
	closed  bool
	started chan struct{} // закрывать нельзя, сигнал о входе в Capture
	gate    chan struct{} // если не nil, Capture ждёт закрытия канала
}

func newScriptedCamera(frames ...*entity.Frame) *scriptedCamera {
	return &scriptedCamera{frames: frames, errAt: -1}
}

func (c *scriptedCamera) Capture(ctx context.Context) (*entity.Frame, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	started := c.started
	gate := c.gate
	c.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if c.errAt >= 0 && i == c.errAt {
		return nil, errors.New("camera i/o error")
	}
	return c.frames[i%len(c.frames)].Clone(), nil
}

func (c *scriptedCamera) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *scriptedCamera) captures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeCameraProvider struct {
	mu      sync.Mutex
	camera  port.Camera
	openErr error
	opens   int
}

func (p *fakeCameraProvider) Open(settings entity.CameraSettings) (port.Camera, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.opens++
	return p.camera, nil
}

func (p *fakeCameraProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

type memBaselines struct {
	mu    sync.Mutex
	saved *entity.Frame
}

func (m *memBaselines) Save(baseline *entity.Frame) error {
	m.mu.Lock()
	m.saved = baseline
	m.mu.Unlock()
	return nil
}

func (m *memBaselines) Load() (*entity.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return nil, errors.New("baseline is not found")
	}
	return m.saved, nil
}

type memSettings struct{}

func (memSettings) Load() (entity.CameraSettings, error) {
	return entity.DefaultCameraSettings(), nil
}
func (memSettings) Save(entity.CameraSettings) error { return nil }
func (memSettings) Reset() (entity.CameraSettings, error) {
	return entity.DefaultCameraSettings(), nil
}

type fakeTrigger struct {
	mu      sync.Mutex
	handler func()
	watches int
	cancels int
}

func (t *fakeTrigger) Watch(handler func()) (func(), error) {
	t.mu.Lock()
	t.handler = handler
	t.watches++
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.handler = nil
		t.cancels++
		t.mu.Unlock()
	}, nil
}

// fire имитирует нажатие кнопки.
func (t *fakeTrigger) fire() {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler()
	}
}

func (t *fakeTrigger) counts() (watches, cancels int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.watches, t.cancels
}

type fakeLines struct {
	mu     sync.Mutex
	alert  bool
	ok     bool
	flash  bool
	closed bool
}

func (l *fakeLines) SetAlert(on bool) error { l.mu.Lock(); l.alert = on; l.mu.Unlock(); return nil }
func (l *fakeLines) SetOK(on bool) error    { l.mu.Lock(); l.ok = on; l.mu.Unlock(); return nil }
func (l *fakeLines) SetFlash(on bool) error { l.mu.Lock(); l.flash = on; l.mu.Unlock(); return nil }

func (l *fakeLines) Close() error {
	l.mu.Lock()
	l.alert, l.ok, l.flash = false, false, false
	l.closed = true
	l.mu.Unlock()
	return nil
}

func (l *fakeLines) snapshot() (alert, ok, flash, closed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alert, l.ok, l.flash, l.closed
}

type fakeLinesProvider struct {
	mu    sync.Mutex
	last  *fakeLines
	opens int
}

func (p *fakeLinesProvider) Open() (port.IndicatorLines, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &fakeLines{}
	p.opens++
	return p.last, nil
}

func (p *fakeLinesProvider) lines() *fakeLines {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *fakeLinesProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

type fakeDetector struct {
	mu          sync.Mutex
	hasDefects  bool
	err         error
	calls       int
	sensitivity int
	onDetect    func() // зовётся при входе в Detect
}

func (d *fakeDetector) Detect(ctx context.Context, baseline, frame *entity.Frame, sensitivity int) (*entity.InspectionResult, error) {
	d.mu.Lock()
	d.calls++
	d.sensitivity = sensitivity
	err := d.err
	hasDefects := d.hasDefects
	onDetect := d.onDetect
	d.mu.Unlock()

	if onDetect != nil {
		onDetect()
	}
	if err != nil {
		return nil, err
	}
	result := &entity.InspectionResult{
		Sensitivity: sensitivity,
		ImageWidth:  frame.Width,
		ImageHeight: frame.Height,
		HasDefects:  hasDefects,
		Annotated:   frame.Clone(),
	}
	if hasDefects {
		result.Defects = []entity.DefectArea{{X: 10, Y: 10, Width: 40, Height: 40, Area: 1600}}
	}
	return result, nil
}

func (d *fakeDetector) stats() (calls, sensitivity int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls, d.sensitivity
}

type fakeSink struct {
	mu    sync.Mutex
	saved []*entity.InspectionResult
}

func (s *fakeSink) Save(result *entity.InspectionResult) error {
	s.mu.Lock()
	s.saved = append(s.saved, result)
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
