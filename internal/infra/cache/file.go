package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileCache хранит соответствие категорий и game_id в JSON-файле.
// Файл перезаписывается целиком при каждом сохранении.
type FileCache struct {
	path string
}

// NewFile создаёт файловый кэш.
func NewFile(path string) *FileCache {
	return &FileCache{path: path}
}

// Load читает кэш. Отсутствующий или повреждённый файл считается пустым кэшем.
func (c *FileCache) Load(_ context.Context) (map[string]int64, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]int64{}, nil
		}
		return nil, fmt.Errorf("чтение кэша: %w", err)
	}
	games := map[string]int64{}
	if err := json.Unmarshal(raw, &games); err != nil {
		return map[string]int64{}, nil
	}
	return games, nil
}

// Store перезаписывает кэш целиком.
func (c *FileCache) Store(_ context.Context, games map[string]int64) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("создание каталога кэша: %w", err)
	}
	raw, err := json.MarshalIndent(games, "", "    ")
	if err != nil {
		return fmt.Errorf("сериализация кэша: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("запись кэша: %w", err)
	}
	return nil
}
