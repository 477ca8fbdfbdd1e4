package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"moldscan/config"
	"moldscan/internal/api"
	"moldscan/internal/container"
	"moldscan/internal/infrastructure/camera"
	"moldscan/internal/infrastructure/gpio"
	"moldscan/internal/infrastructure/storage"
	"moldscan/internal/infrastructure/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Адаптеры железа и хранилища
	cameras := camera.NewProvider(cfg.CameraDevice)
	trigger := gpio.NewTrigger(cfg.GPIOChip, cfg.TriggerPin)
	indicators := gpio.NewLinesProvider(cfg.GPIOChip, cfg.AlertPin, cfg.OKPin, cfg.FlashPin)
	baselines := storage.NewBaselineFileRepository(filepath.Join(cfg.DataDir, "baseline.png"))
	settings := storage.NewSettingsFileRepository(filepath.Join(cfg.DataDir, "camerasettings.json"))
	results := storage.NewResultArchive(filepath.Join(cfg.DataDir, "results"))
	detector := vision.NewDiffDetector()

	// Собираем сервисы приложения
	appContainer := container.New(cameras, detector, baselines, settings, trigger, indicators, results)

	server := api.NewServer(appContainer)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop

		// Сначала гасим цикл (освобождает триггер и индикаторы), потом HTTP.
		appContainer.InspectionService.Stop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	log.Printf("moldscan is listening on :%s", cfg.HTTPPort)
	if err := server.Listen(cfg.HTTPPort); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
