package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config — конфигурация процесса: порт API, камера, каталог данных и пины GPIO.
type Config struct {
	HTTPPort     string
	CameraDevice int
	DataDir      string

	GPIOChip   string
	TriggerPin int
	AlertPin   int
	OKPin      int
	FlashPin   int
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort: getEnv("MOLDSCAN_HTTP_PORT", "8080"),
		DataDir:  getEnv("MOLDSCAN_DATA_DIR", "data"),
		GPIOChip: getEnv("MOLDSCAN_GPIO_CHIP", "gpiochip0"),
	}

	var err error
	if cfg.CameraDevice, err = getEnvInt("MOLDSCAN_CAMERA_DEVICE", 0); err != nil {
		return nil, err
	}
	// Разводка пинов как на исходном стенде: кнопка 26, светодиоды 5/6/19.
	if cfg.TriggerPin, err = getEnvInt("MOLDSCAN_TRIGGER_PIN", 26); err != nil {
		return nil, err
	}
	if cfg.AlertPin, err = getEnvInt("MOLDSCAN_ALERT_PIN", 5); err != nil {
		return nil, err
	}
	if cfg.OKPin, err = getEnvInt("MOLDSCAN_OK_PIN", 6); err != nil {
		return nil, err
	}
	if cfg.FlashPin, err = getEnvInt("MOLDSCAN_FLASH_PIN", 19); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
