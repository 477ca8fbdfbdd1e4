package storage

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"moldscan/internal/domain/entity"
	"moldscan/internal/domain/port"
)

// BaselineFileRepository хранит эталон в PNG-файле. PNG без потерь:
// усреднённые значения обязаны пережить перезапуск процесса байт в байт,
// иначе нулевая разница с самим собой перестаёт быть нулевой.
type BaselineFileRepository struct {
	path string
}

// NewBaselineFileRepository создаёт хранилище эталона по заданному пути.
func NewBaselineFileRepository(path string) *BaselineFileRepository {
	return &BaselineFileRepository{path: path}
}

// Save сохраняет эталон.
func (r *BaselineFileRepository) Save(baseline *entity.Frame) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}

	file, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("create baseline file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, frameToImage(baseline)); err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	return nil
}

// Load возвращает сохранённый эталон.
func (r *BaselineFileRepository) Load() (*entity.Frame, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open baseline file: %w", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode baseline: %w", err)
	}
	return imageToFrame(img), nil
}

// Проверка реализации интерфейса
var _ port.BaselineRepository = (*BaselineFileRepository)(nil)
