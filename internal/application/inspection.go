package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"moldscan/internal/domain/entity"
	"moldscan/internal/domain/port"
)

// DefaultSensitivity — порог сравнения по умолчанию.
const DefaultSensitivity = 25

// ErrAlreadyRunning возвращается при повторном запуске работающего цикла.
var ErrAlreadyRunning = errors.New("inspection cycle is already running")

// InspectionService — конечный автомат цикла инспекции:
// Idle → Capturing → Displaying → Idle. Срабатывание аппаратного
// триггера запускает один полный круг захват→сравнение→индикация.
type InspectionService struct {
	cameras    port.CameraProvider
	detector   port.DefectDetector
	baselines  port.BaselineRepository
	settings   port.SettingsRepository
	trigger    port.HardwareTrigger
	indicators port.IndicatorProvider
	results    port.ResultSink

	mu          sync.Mutex
	running     bool
	stopping    bool
	state       entity.CycleState
	sensitivity int
	camera      entity.CameraSettings
	baseline    *entity.Frame
	lastResult  *entity.InspectionResult
	lines       port.IndicatorLines
	cancelWatch func()
	onChange    func(state entity.CycleState, result *entity.InspectionResult)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewInspectionService создаёт сервис, который управляет циклом инспекции.
func NewInspectionService(
	cameras port.CameraProvider,
	detector port.DefectDetector,
	baselines port.BaselineRepository,
	settings port.SettingsRepository,
	trigger port.HardwareTrigger,
	indicators port.IndicatorProvider,
	results port.ResultSink,
) *InspectionService {
	return &InspectionService{
		cameras:     cameras,
		detector:    detector,
		baselines:   baselines,
		settings:    settings,
		trigger:     trigger,
		indicators:  indicators,
		results:     results,
		state:       entity.StateIdle,
		sensitivity: DefaultSensitivity,
	}
}

// SetNotifier задаёт колбэк о смене состояния цикла (для live-обновлений UI).
func (s *InspectionService) SetNotifier(fn func(state entity.CycleState, result *entity.InspectionResult)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// SetSensitivity меняет порог сравнения. Допустимый диапазон [0, 255];
// перекалибровка при смене порога не требуется.
func (s *InspectionService) SetSensitivity(value int) error {
	if value < 0 || value > 255 {
		return fmt.Errorf("sensitivity %d is out of range [0, 255]", value)
	}
	s.mu.Lock()
	s.sensitivity = value
	s.mu.Unlock()
	return nil
}

// Sensitivity возвращает текущий порог сравнения.
func (s *InspectionService) Sensitivity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensitivity
}

// State возвращает текущее состояние цикла.
func (s *InspectionService) State() entity.CycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running сообщает, запущен ли цикл.
func (s *InspectionService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastResult возвращает последний показанный результат (или nil).
func (s *InspectionService) LastResult() *entity.InspectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// Start входит в цикл инспекции: загружает эталон, открывает линии
// индикации и подписывается на триггер. Все события триггера маршалятся
// в одну управляющую горутину — два цикла одновременно не выполняются.
func (s *InspectionService) Start(ctx context.Context) error {
	triggerCh, stopCh, err := s.acquire()
	if err != nil {
		return err
	}

	// Стартовое "idle" уходит до запуска управляющей горутины, чтобы
	// клиенты не увидели его после первого "capturing".
	s.notify(entity.StateIdle, nil)

	go s.run(ctx, triggerCh, stopCh)
	return nil
}

// acquire берёт ресурсы цикла под мьютексом и переводит автомат в Idle.
func (s *InspectionService) acquire() (chan struct{}, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, nil, ErrAlreadyRunning
	}

	baseline, err := s.baselines.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load baseline (calibrate first): %w", err)
	}
	camera, err := s.settings.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load camera settings: %w", err)
	}

	// Линии и подписка открываются заново на каждом входе: на выходе они
	// освобождаются, а не просто отключаются.
	lines, err := s.indicators.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open indicator lines: %w", err)
	}

	// Буфер на одно событие: нажатие в Idle не теряется, даже если
	// управляющая горутина ещё не дошла до select. Остальное отбрасывается.
	triggerCh := make(chan struct{}, 1)
	cancel, err := s.trigger.Watch(func() {
		select {
		case triggerCh <- struct{}{}:
		default:
		}
	})
	if err != nil {
		lines.Close()
		return nil, nil, fmt.Errorf("watch hardware trigger: %w", err)
	}

	s.baseline = baseline
	s.camera = camera
	s.lines = lines
	s.cancelWatch = cancel
	s.stopCh = make(chan struct{})
	s.running = true
	s.stopping = false
	s.state = entity.StateIdle
	s.wg.Add(1)

	return triggerCh, s.stopCh, nil
}

// Stop выходит из цикла и дожидается освобождения всех ресурсов:
// подписки на триггер и линий индикации (с явным гашением сигналов).
// Повторный Stop безопасен.
func (s *InspectionService) Stop() {
	s.mu.Lock()
	if !s.running || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	stopCh := s.stopCh
	s.mu.Unlock()

	close(stopCh)
	s.wg.Wait()
}

// run — единственная горутина, исполняющая циклы.
func (s *InspectionService) run(ctx context.Context, triggerCh <-chan struct{}, stopCh <-chan struct{}) {
	defer s.wg.Done()
	defer s.teardown()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-triggerCh:
			s.runCycle(ctx, triggerCh)
		}
	}
}

// teardown освобождает ресурсы цикла и возвращает автомат в Idle.
func (s *InspectionService) teardown() {
	s.mu.Lock()
	cancel := s.cancelWatch
	lines := s.lines
	s.cancelWatch = nil
	s.lines = nil
	s.running = false
	s.state = entity.StateIdle
	s.mu.Unlock()

	s.notify(entity.StateIdle, nil)

	if cancel != nil {
		cancel()
	}
	if lines != nil {
		// Close гасит alert/ok/flash перед освобождением линий.
		if err := lines.Close(); err != nil {
			log.Printf("Error releasing indicator lines: %v", err)
		}
	}
}

// runCycle исполняет один круг захват→сравнение→индикация.
func (s *InspectionService) runCycle(ctx context.Context, triggerCh <-chan struct{}) {
	s.setState(entity.StateCapturing, nil)

	result, err := s.captureAndDetect(ctx)
	// Срабатывание, накопившееся за время Capturing, отбрасывается.
	select {
	case <-triggerCh:
	default:
	}
	if err != nil {
		// Ошибка цикла recoverable: прежний результат и эталон остаются,
		// автомат ждёт следующего действия оператора.
		log.Printf("Inspection cycle failed: %v", err)
		s.setState(entity.StateIdle, nil)
		return
	}

	s.indicate(result.HasDefects)

	if err := s.results.Save(result); err != nil {
		log.Printf("Error archiving result %s: %v", result.ID, err)
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	s.setState(entity.StateDisplaying, result)
}

// captureAndDetect снимает ровно один кадр и запускает детектор.
// Вспышка горит строго на время захвата и гаснет до освобождения камеры
// и сравнения; камера освобождается на любом пути.
func (s *InspectionService) captureAndDetect(ctx context.Context) (*entity.InspectionResult, error) {
	s.mu.Lock()
	baseline := s.baseline
	settings := s.camera
	sensitivity := s.sensitivity
	lines := s.lines
	s.mu.Unlock()

	if err := lines.SetFlash(true); err != nil {
		log.Printf("Error switching flash on: %v", err)
	}
	flashOff := func() {
		if err := lines.SetFlash(false); err != nil {
			log.Printf("Error switching flash off: %v", err)
		}
	}

	camera, err := s.cameras.Open(settings)
	if err != nil {
		flashOff()
		return nil, fmt.Errorf("open camera: %w", err)
	}

	frame, err := camera.Capture(ctx)
	flashOff()
	closeErr := camera.Close()
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	if closeErr != nil {
		log.Printf("Error releasing camera: %v", closeErr)
	}

	result, err := s.detector.Detect(ctx, baseline, frame, sensitivity)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	result.ID = uuid.NewString()
	result.TakenAt = time.Now()
	return result, nil
}

// indicate выставляет alert/ok по результату: горит ровно один из двух.
func (s *InspectionService) indicate(hasDefects bool) {
	s.mu.Lock()
	lines := s.lines
	s.mu.Unlock()
	if lines == nil {
		return
	}

	if err := lines.SetAlert(hasDefects); err != nil {
		log.Printf("Error switching alert line: %v", err)
	}
	if err := lines.SetOK(!hasDefects); err != nil {
		log.Printf("Error switching ok line: %v", err)
	}
}

func (s *InspectionService) setState(state entity.CycleState, result *entity.InspectionResult) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify(state, result)
}

// notify зовёт колбэк синхронно: порядок событий у клиентов совпадает
// с порядком переходов автомата.
func (s *InspectionService) notify(state entity.CycleState, result *entity.InspectionResult) {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(state, result)
	}
}
