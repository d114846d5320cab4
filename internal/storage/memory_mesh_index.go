package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryMeshIndex реализует MeshIndex в памяти.
// Используется, когда SQL-индекс не настроен, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryMeshIndex struct {
	mu   sync.RWMutex
	data map[string]MeshRecord
}

// NewMemoryMeshIndex создает новый индекс в памяти.
func NewMemoryMeshIndex() *MemoryMeshIndex {
	return &MemoryMeshIndex{data: make(map[string]MeshRecord)}
}

// Record сохраняет запись в памяти.
func (r *MemoryMeshIndex) Record(ctx context.Context, rec MeshRecord) error {
	if rec.ChunkKey == "" {
		return fmt.Errorf("пустой ключ чанка")
	}

	// Проверяем контекст на отмену
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[rec.ChunkKey] = rec
	return nil
}

// Get загружает запись из памяти.
func (r *MemoryMeshIndex) Get(ctx context.Context, chunkKey string) (MeshRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return MeshRecord{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[chunkKey]
	return rec, ok, nil
}

// List возвращает копию всех записей.
func (r *MemoryMeshIndex) List(ctx context.Context) ([]MeshRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]MeshRecord, 0, len(r.data))
	for _, rec := range r.data {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ChunkKey < out[j].ChunkKey })
	return out, nil
}

// Delete удаляет запись; отсутствие записи не ошибка.
func (r *MemoryMeshIndex) Delete(ctx context.Context, chunkKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, chunkKey)
	return nil
}

func (r *MemoryMeshIndex) Close() error { return nil }

// Count возвращает количество записей (для отладки).
func (r *MemoryMeshIndex) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
