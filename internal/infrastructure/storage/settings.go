package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"moldscan/internal/domain/entity"
	"moldscan/internal/domain/port"
)

// settingsFile — формат camerasettings.json: заводская и рабочая секции.
type settingsFile struct {
	Default entity.CameraSettings `json:"default"`
	Custom  entity.CameraSettings `json:"custom"`
}

// SettingsFileRepository хранит настройки камеры в JSON-файле.
type SettingsFileRepository struct {
	path string
}

// NewSettingsFileRepository создаёт хранилище настроек по заданному пути.
func NewSettingsFileRepository(path string) *SettingsFileRepository {
	return &SettingsFileRepository{path: path}
}

// Load возвращает рабочие настройки; если файла ещё нет, создаёт его
// с заводскими значениями.
func (r *SettingsFileRepository) Load() (entity.CameraSettings, error) {
	file, err := r.read()
	if err != nil {
		return entity.CameraSettings{}, err
	}
	if err := file.Custom.Validate(); err != nil {
		return entity.CameraSettings{}, fmt.Errorf("stored camera settings: %w", err)
	}
	return file.Custom, nil
}

// Save сохраняет рабочие настройки, заводская секция остаётся нетронутой.
func (r *SettingsFileRepository) Save(settings entity.CameraSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	file, err := r.read()
	if err != nil {
		return err
	}
	file.Custom = settings
	return r.write(file)
}

// Reset сбрасывает рабочие настройки к заводским.
func (r *SettingsFileRepository) Reset() (entity.CameraSettings, error) {
	file, err := r.read()
	if err != nil {
		return entity.CameraSettings{}, err
	}
	file.Custom = file.Default
	if err := r.write(file); err != nil {
		return entity.CameraSettings{}, err
	}
	return file.Custom, nil
}

func (r *SettingsFileRepository) read() (settingsFile, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		file := settingsFile{
			Default: entity.DefaultCameraSettings(),
			Custom:  entity.DefaultCameraSettings(),
		}
		if err := r.write(file); err != nil {
			return settingsFile{}, err
		}
		return file, nil
	}
	if err != nil {
		return settingsFile{}, fmt.Errorf("read camera settings: %w", err)
	}

	var file settingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return settingsFile{}, fmt.Errorf("parse camera settings: %w", err)
	}
	return file, nil
}

func (r *SettingsFileRepository) write(file settingsFile) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(file, "", "    ")
	if err != nil {
		return fmt.Errorf("encode camera settings: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write camera settings: %w", err)
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.SettingsRepository = (*SettingsFileRepository)(nil)
