package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "categories.json")
	c := NewFile(path)

	games := map[string]int64{"709_0": 41, "81_1": 128}
	if err := c.Store(context.Background(), games); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	loaded, err := NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(loaded) != 2 || loaded["709_0"] != 41 || loaded["81_1"] != 128 {
		t.Fatalf("кэш прочитан неверно: %v", loaded)
	}
}

func TestFileCacheMissingFile(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "нет.json"))
	games, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("отсутствующий файл должен считаться пустым кэшем: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("ожидался пустой кэш: %v", games)
	}
}

func TestFileCacheCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	if err := os.WriteFile(path, []byte("{сломано"), 0o644); err != nil {
		t.Fatalf("подготовка файла: %v", err)
	}
	games, err := NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("повреждённый файл должен считаться пустым кэшем: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("ожидался пустой кэш: %v", games)
	}
}
