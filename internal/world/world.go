package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
)

// ErrChunkNotFound возвращается, если чанка нет в мире
var ErrChunkNotFound = errors.New("chunk not found in world")

// ChunkSource — откуда мир подгружает чанки (обычно storage.ChunkStorage)
type ChunkSource interface {
	LoadChunk(pos vec.ChunkPos) (*voxel.Chunk, error)
	ListChunks() ([]vec.ChunkPos, error)
}

// ChunkSink сохраняет изменённые чанки
type ChunkSink interface {
	SaveChunk(pos vec.ChunkPos, chunk *voxel.Chunk) error
	DeleteChunk(pos vec.ChunkPos) error
}

type entry struct {
	chunk   *voxel.Chunk
	version uint64
}

// World — реестр чанков. Чанк неизменяем: правка заменяет его целиком
// и увеличивает версию.
type World struct {
	mu      sync.RWMutex
	chunks  map[vec.ChunkPos]entry
	version uint64
}

// NewWorld создаёт пустой мир
func NewWorld() *World {
	return &World{chunks: make(map[vec.ChunkPos]entry)}
}

// Put заменяет чанк и возвращает его новую версию
func (w *World) Put(pos vec.ChunkPos, chunk *voxel.Chunk) uint64 {
	if chunk == nil {
		chunk = voxel.Empty()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.version++
	w.chunks[pos] = entry{chunk: chunk, version: w.version}
	return w.version
}

// Get возвращает чанк
func (w *World) Get(pos vec.ChunkPos) (*voxel.Chunk, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.chunks[pos]
	return e.chunk, ok
}

// Version возвращает версию чанка (0 если чанка нет)
func (w *World) Version(pos vec.ChunkPos) uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chunks[pos].version
}

// Delete удаляет чанк; false если его не было
func (w *World) Delete(pos vec.ChunkPos) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.chunks[pos]; !ok {
		return false
	}
	delete(w.chunks, pos)
	return true
}

// Positions возвращает координаты всех чанков в порядке ChunkPos.Less
func (w *World) Positions() []vec.ChunkPos {
	w.mu.RLock()
	out := make([]vec.ChunkPos, 0, len(w.chunks))
	for p := range w.chunks {
		out = append(out, p)
	}
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Len возвращает число чанков
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}

// Generate заполняет квадрат [-radius, radius] по x и z чанками генератора.
// Уже существующие чанки не трогаются.
func (w *World) Generate(ctx context.Context, gen *Generator, radius int) (int, error) {
	created := 0
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			if err := ctx.Err(); err != nil {
				return created, err
			}
			pos := vec.ChunkPos{X: int32(x), Z: int32(z)}
			if _, ok := w.Get(pos); ok {
				continue
			}
			chunk, err := gen.Generate(pos)
			if err != nil {
				return created, fmt.Errorf("генерация %s: %w", pos, err)
			}
			w.Put(pos, chunk)
			created++
		}
	}
	logging.Info("🌍 Generated %d chunks (radius %d, seed %d)", created, radius, gen.Seed)
	return created, nil
}

// LoadAll подгружает все чанки из источника
func (w *World) LoadAll(src ChunkSource) (int, error) {
	positions, err := src.ListChunks()
	if err != nil {
		return 0, err
	}
	for _, pos := range positions {
		chunk, err := src.LoadChunk(pos)
		if err != nil {
			return 0, fmt.Errorf("загрузка %s: %w", pos, err)
		}
		w.Put(pos, chunk)
	}
	logging.Info("💾 Loaded %d chunks from storage", len(positions))
	return len(positions), nil
}

// Reload перечитывает один чанк из источника
func (w *World) Reload(src ChunkSource, pos vec.ChunkPos) error {
	chunk, err := src.LoadChunk(pos)
	if err != nil {
		return err
	}
	w.Put(pos, chunk)
	return nil
}

// SaveAll сохраняет все чанки
func (w *World) SaveAll(sink ChunkSink) error {
	for _, pos := range w.Positions() {
		chunk, ok := w.Get(pos)
		if !ok {
			continue
		}
		if err := sink.SaveChunk(pos, chunk); err != nil {
			return err
		}
	}
	return nil
}
