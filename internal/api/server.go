package api

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	app "moldscan/internal/application"
	"moldscan/internal/container"
	"moldscan/internal/domain/entity"
	"moldscan/internal/infrastructure/storage"
)

// Server — операторский HTTP-интерфейс поверх сервисов приложения:
// калибровка, запуск/останов цикла, порог, статус и последний результат.
// Живые обновления состояния уходят клиентам по websocket.
type Server struct {
	app *fiber.App
	c   *container.Container

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// event — сообщение для websocket-клиентов.
type event struct {
	Type    string         `json:"type"` // state | calibration
	State   string         `json:"state,omitempty"`
	Result  *resultSummary `json:"result,omitempty"`
	Current int            `json:"current,omitempty"`
	Total   int            `json:"total,omitempty"`
}

type resultSummary struct {
	ID          string              `json:"id"`
	TakenAt     time.Time           `json:"taken_at"`
	Sensitivity int                 `json:"sensitivity"`
	HasDefects  bool                `json:"has_defects"`
	Defects     []entity.DefectArea `json:"defects"`
}

// NewServer создаёт HTTP-сервер и подписывается на события цикла.
func NewServer(c *container.Container) *Server {
	s := &Server{
		c:       c,
		clients: make(map[*websocket.Conn]struct{}),
	}

	c.InspectionService.SetNotifier(func(state entity.CycleState, result *entity.InspectionResult) {
		s.broadcast(event{Type: "state", State: string(state), Result: summarize(result)})
	})

	f := fiber.New(fiber.Config{
		AppName:               "moldscan",
		DisableStartupMessage: true,
	})

	api := f.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/calibration", s.handleCalibrate)
	api.Get("/baseline", s.handleBaseline)
	api.Post("/inspection/start", s.handleStart)
	api.Post("/inspection/stop", s.handleStop)
	api.Put("/inspection/sensitivity", s.handleSensitivity)
	api.Get("/inspection/result", s.handleResult)
	api.Get("/settings", s.handleGetSettings)
	api.Put("/settings", s.handlePutSettings)
	api.Post("/settings/reset", s.handleResetSettings)

	f.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	f.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = f
	return s
}

// Listen запускает сервер на заданном порту.
func (s *Server) Listen(port string) error {
	return s.app.Listen(":" + port)
}

// Shutdown останавливает сервер.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	insp := s.c.InspectionService
	return c.JSON(fiber.Map{
		"running":     insp.Running(),
		"state":       insp.State(),
		"sensitivity": insp.Sensitivity(),
		"last_result": summarize(insp.LastResult()),
	})
}

func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	var req struct {
		Count int `json:"count"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	// Камера эксклюзивна: пока идёт цикл инспекции, калибровка запрещена.
	if s.c.InspectionService.Running() {
		return fiber.NewError(fiber.StatusConflict, "stop inspection before calibrating")
	}

	baseline, err := s.c.CalibrationService.Calibrate(c.Context(), req.Count, func(current, total int) {
		s.broadcast(event{Type: "calibration", Current: current, Total: total})
	})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"width":  baseline.Width,
		"height": baseline.Height,
		"count":  req.Count,
	})
}

func (s *Server) handleBaseline(c *fiber.Ctx) error {
	baseline, err := s.c.Baselines.Load()
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	var buf bytes.Buffer
	if err := storage.EncodePNG(&buf, baseline); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Type("png")
	return c.Send(buf.Bytes())
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	// Контекст запроса живёт до конца ответа, цикл — до явного Stop.
	if err := s.c.InspectionService.Start(context.Background()); err != nil {
		if errors.Is(err, app.ErrAlreadyRunning) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"state": s.c.InspectionService.State()})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.c.InspectionService.Stop()
	return c.JSON(fiber.Map{"state": s.c.InspectionService.State()})
}

func (s *Server) handleSensitivity(c *fiber.Ctx) error {
	var req struct {
		Value int `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.c.InspectionService.SetSensitivity(req.Value); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"sensitivity": req.Value})
}

func (s *Server) handleResult(c *fiber.Ctx) error {
	result := s.c.InspectionService.LastResult()
	if result == nil || result.Annotated == nil {
		return fiber.NewError(fiber.StatusNotFound, "no inspection result yet")
	}
	var buf bytes.Buffer
	if err := storage.EncodeJPEG(&buf, result.Annotated); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Type("jpg")
	return c.Send(buf.Bytes())
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	settings, err := s.c.Settings.Load()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(settings)
}

func (s *Server) handlePutSettings(c *fiber.Ctx) error {
	var settings entity.CameraSettings
	if err := c.BodyParser(&settings); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.c.Settings.Save(settings); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(settings)
}

func (s *Server) handleResetSettings(c *fiber.Ctx) error {
	settings, err := s.c.Settings.Reset()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(settings)
}

// handleEventsWS держит соединение и шлёт клиенту события цикла.
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// Читаем только чтобы заметить закрытие со стороны клиента.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(e event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(e); err != nil {
			log.Printf("Error writing to websocket client: %v", err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func summarize(result *entity.InspectionResult) *resultSummary {
	if result == nil {
		return nil
	}
	return &resultSummary{
		ID:          result.ID,
		TakenAt:     result.TakenAt,
		Sensitivity: result.Sensitivity,
		HasDefects:  result.HasDefects,
		Defects:     result.Defects,
	}
}
