package storage

import (
	"context"
	"time"
)

// MeshRecord — строка индекса: итог последней сборки сетки чанка
type MeshRecord struct {
	ChunkKey   string    `json:"chunk"`
	Digest     string    `json:"digest"`
	Quads      int       `json:"quads"`
	Triangles  int       `json:"triangles"`
	Vertices   int       `json:"vertices"`
	Degenerate int       `json:"degenerate"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MeshIndex определяет интерфейс индекса собранных сеток.
// Индекс вторичен: он отвечает на вопросы "что собрано и с каким дайджестом"
// без чтения блобов из BadgerDB.
type MeshIndex interface {
	// Record сохраняет или заменяет запись по ChunkKey.
	Record(ctx context.Context, rec MeshRecord) error

	// Get возвращает запись; bool = false если чанк ещё не собирался.
	Get(ctx context.Context, chunkKey string) (MeshRecord, bool, error)

	// List возвращает все записи, упорядоченные по ChunkKey.
	List(ctx context.Context) ([]MeshRecord, error)

	Delete(ctx context.Context, chunkKey string) error

	Close() error
}
