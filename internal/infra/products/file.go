package products

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrEmpty возвращается, когда для лота не осталось товаров.
var ErrEmpty = errors.New("товары закончились")

// FileStore хранит товары для авто-выдачи в JSON-файле вида
// {"название лота": ["товар", ...]}. Файл перезаписывается целиком
// при каждом изменении.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFile создаёт файловое хранилище товаров.
func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

// Pop забирает первый товар лота и сохраняет файл без него.
func (s *FileStore) Pop(lotName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return "", err
	}
	queue := items[lotName]
	if len(queue) == 0 {
		return "", fmt.Errorf("лот %q: %w", lotName, ErrEmpty)
	}
	product := queue[0]
	items[lotName] = queue[1:]
	if err := s.save(items); err != nil {
		return "", err
	}
	return product, nil
}

// PushBack возвращает товар в начало очереди лота.
func (s *FileStore) PushBack(lotName, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	items[lotName] = append([]string{product}, items[lotName]...)
	return s.save(items)
}

func (s *FileStore) load() (map[string][]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("чтение файла товаров: %w", err)
	}
	items := map[string][]string{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("разбор файла товаров: %w", err)
	}
	return items, nil
}

func (s *FileStore) save(items map[string][]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("создание каталога товаров: %w", err)
	}
	raw, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("сериализация товаров: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("запись файла товаров: %w", err)
	}
	return nil
}
