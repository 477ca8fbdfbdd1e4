package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"moldscan/internal/domain/entity"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type inspectionFixture struct {
	svc      *InspectionService
	camera   *scriptedCamera
	provider *fakeCameraProvider
	detector *fakeDetector
	trigger  *fakeTrigger
	lines    *fakeLinesProvider
	sink     *fakeSink
}

func newInspectionFixture(t *testing.T) *inspectionFixture {
	t.Helper()

	camera := newScriptedCamera(uniformFrame(4, 3, 100))
	baselines := &memBaselines{}
	require.NoError(t, baselines.Save(uniformFrame(4, 3, 100)))

	f := &inspectionFixture{
		camera:   camera,
		provider: &fakeCameraProvider{camera: camera},
		detector: &fakeDetector{},
		trigger:  &fakeTrigger{},
		lines:    &fakeLinesProvider{},
		sink:     &fakeSink{},
	}
	f.svc = NewInspectionService(f.provider, f.detector, baselines, memSettings{}, f.trigger, f.lines, f.sink)
	return f
}

func (f *inspectionFixture) waitState(t *testing.T, want entity.CycleState) {
	t.Helper()
	require.Eventually(t, func() bool { return f.svc.State() == want }, waitFor, tick)
}

func TestInspectionService_TriggerRunsCycle(t *testing.T) {
	f := newInspectionFixture(t)
	f.detector.hasDefects = true

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()
	require.Equal(t, entity.StateIdle, f.svc.State())

	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)

	// Дефект найден: горит тревога, «норма» погашена, вспышка выключена.
	alert, ok, flash, _ := f.lines.lines().snapshot()
	require.True(t, alert)
	require.False(t, ok)
	require.False(t, flash)

	result := f.svc.LastResult()
	require.NotNil(t, result)
	require.True(t, result.HasDefects)
	require.NotEmpty(t, result.ID)
	require.False(t, result.TakenAt.IsZero())
	require.NotNil(t, result.Annotated)
	require.Equal(t, 1, f.sink.count())

	_, sensitivity := f.detector.stats()
	require.Equal(t, DefaultSensitivity, sensitivity)
}

func TestInspectionService_OKLineWithoutDefects(t *testing.T) {
	f := newInspectionFixture(t)

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)

	alert, ok, _, _ := f.lines.lines().snapshot()
	require.False(t, alert)
	require.True(t, ok)
}

func TestInspectionService_RepeatTriggerFromDisplaying(t *testing.T) {
	f := newInspectionFixture(t)

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)

	f.trigger.fire()
	require.Eventually(t, func() bool { return f.sink.count() == 2 }, waitFor, tick)
}

func TestInspectionService_ExtraTriggersDropped(t *testing.T) {
	f := newInspectionFixture(t)
	f.camera.started = make(chan struct{}, 1)
	f.camera.gate = make(chan struct{})

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	f.trigger.fire()
	<-f.camera.started // захват начался, камера занята

	// Лишние срабатывания во время Capturing отбрасываются, не копятся.
	f.trigger.fire()
	f.trigger.fire()
	f.trigger.fire()

	close(f.camera.gate)
	f.waitState(t, entity.StateDisplaying)

	require.Eventually(t, func() bool { return f.sink.count() == 1 }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, f.sink.count())
	require.Equal(t, 1, f.provider.openCount())
	require.Equal(t, 1, f.camera.captures())
}

func TestInspectionService_FlashOnlyDuringCapture(t *testing.T) {
	f := newInspectionFixture(t)
	f.camera.started = make(chan struct{}, 1)
	f.camera.gate = make(chan struct{})

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	f.trigger.fire()
	<-f.camera.started

	_, _, flash, _ := f.lines.lines().snapshot()
	require.True(t, flash, "flash must be on while capturing")

	close(f.camera.gate)
	f.waitState(t, entity.StateDisplaying)

	_, _, flash, _ = f.lines.lines().snapshot()
	require.False(t, flash, "flash must be off after capture")
}

func TestInspectionService_FlashOffBeforeDetect(t *testing.T) {
	f := newInspectionFixture(t)

	flashDuringDetect := make(chan bool, 1)
	f.detector.onDetect = func() {
		_, _, flash, _ := f.lines.lines().snapshot()
		flashDuringDetect <- flash
	}

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)

	// Вспышка гаснет сразу после захвата: сравнение идёт уже без неё.
	require.False(t, <-flashDuringDetect, "flash must be off by the time detection runs")
}

func TestInspectionService_ImmediateTriggerNotLost(t *testing.T) {
	f := newInspectionFixture(t)

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	// Одно нажатие в Idle запускает цикл, даже если управляющая горутина
	// ещё не дошла до select.
	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)
	require.Equal(t, 1, f.sink.count())
}

func TestInspectionService_NotificationsFollowTransitions(t *testing.T) {
	f := newInspectionFixture(t)

	var mu sync.Mutex
	var states []entity.CycleState
	f.svc.SetNotifier(func(state entity.CycleState, _ *entity.InspectionResult) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	})

	require.NoError(t, f.svc.Start(context.Background()))
	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)
	f.svc.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []entity.CycleState{
		entity.StateIdle,
		entity.StateCapturing,
		entity.StateDisplaying,
		entity.StateIdle,
	}, states)
}

func TestInspectionService_CycleErrorIsRecoverable(t *testing.T) {
	f := newInspectionFixture(t)
	f.detector.err = errors.New("detector is broken")

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	f.trigger.fire()
	require.Eventually(t, func() bool {
		calls, _ := f.detector.stats()
		return calls == 1 && f.svc.State() == entity.StateIdle
	}, waitFor, tick)

	// Цикл жив: результата нет, камера освобождена, подписка не снята.
	require.True(t, f.svc.Running())
	require.Nil(t, f.svc.LastResult())
	require.Equal(t, 0, f.sink.count())
	_, cancels := f.trigger.counts()
	require.Equal(t, 0, cancels)

	// После устранения причины следующий триггер отрабатывает штатно.
	f.detector.mu.Lock()
	f.detector.err = nil
	f.detector.mu.Unlock()
	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)
	require.Equal(t, 1, f.sink.count())
}

func TestInspectionService_StopReleasesEverything(t *testing.T) {
	f := newInspectionFixture(t)
	f.detector.hasDefects = true

	require.NoError(t, f.svc.Start(context.Background()))
	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)

	f.svc.Stop()

	require.False(t, f.svc.Running())
	require.Equal(t, entity.StateIdle, f.svc.State())

	// Линии освобождены и явно погашены, подписка снята.
	alert, ok, flash, closed := f.lines.lines().snapshot()
	require.True(t, closed)
	require.False(t, alert)
	require.False(t, ok)
	require.False(t, flash)
	watches, cancels := f.trigger.counts()
	require.Equal(t, 1, watches)
	require.Equal(t, 1, cancels)

	// Повторный Stop безопасен.
	f.svc.Stop()
}

func TestInspectionService_RestartReacquiresHardware(t *testing.T) {
	f := newInspectionFixture(t)

	require.NoError(t, f.svc.Start(context.Background()))
	f.svc.Stop()
	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	// На каждом входе линии и подписка берутся заново, не из кэша.
	watches, _ := f.trigger.counts()
	require.Equal(t, 2, watches)
	require.Equal(t, 2, f.lines.openCount())

	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)
}

func TestInspectionService_StartTwice(t *testing.T) {
	f := newInspectionFixture(t)

	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()

	require.ErrorIs(t, f.svc.Start(context.Background()), ErrAlreadyRunning)
}

func TestInspectionService_StartWithoutBaseline(t *testing.T) {
	f := newInspectionFixture(t)
	f.svc = NewInspectionService(f.provider, f.detector, &memBaselines{}, memSettings{}, f.trigger, f.lines, f.sink)

	require.Error(t, f.svc.Start(context.Background()))
	require.False(t, f.svc.Running())
}

func TestInspectionService_SetSensitivity(t *testing.T) {
	f := newInspectionFixture(t)

	require.NoError(t, f.svc.SetSensitivity(0))
	require.NoError(t, f.svc.SetSensitivity(255))
	require.Error(t, f.svc.SetSensitivity(-1))
	require.Error(t, f.svc.SetSensitivity(256))

	require.NoError(t, f.svc.SetSensitivity(42))
	require.Equal(t, 42, f.svc.Sensitivity())

	// Порог применяется к следующему циклу без перекалибровки.
	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop()
	f.trigger.fire()
	f.waitState(t, entity.StateDisplaying)

	_, sensitivity := f.detector.stats()
	require.Equal(t, 42, sensitivity)
}

func TestInspectionService_ContextCancelStopsCycle(t *testing.T) {
	f := newInspectionFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, f.svc.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !f.svc.Running() }, waitFor, tick)
	_, _, _, closed := f.lines.lines().snapshot()
	require.True(t, closed)
}
