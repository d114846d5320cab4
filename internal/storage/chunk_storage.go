package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/annel0/voxelmesh/internal/codec"
	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/dgraph-io/badger/v3"
)

const (
	chunkPrefix = "chunk:"
	meshPrefix  = "mesh:"
)

// ErrChunkNotFound возвращается, если чанк отсутствует в хранилище
var ErrChunkNotFound = errors.New("chunk not found")

// ChunkStorage хранит документы чанков и упакованные сетки в BadgerDB.
// Значения чанков — JSON-документ codec.ChunkDocument, сетки — zstd-блоб.
type ChunkStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewChunkStorage открывает (или создаёт) хранилище в dataPath/chunks
func NewChunkStorage(dataPath string) (*ChunkStorage, error) {
	dbPath := filepath.Join(dataPath, "chunks")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logging.GetStorageLogger().Info("💾 Chunk storage opened: %s", dbPath)
	return &ChunkStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (cs *ChunkStorage) Close() error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if !cs.isReady {
		return nil
	}

	cs.isReady = false
	return cs.db.Close()
}

// SaveChunk сохраняет чанк целиком
func (cs *ChunkStorage) SaveChunk(pos vec.ChunkPos, chunk *voxel.Chunk) error {
	data, err := codec.MarshalChunk(chunk)
	if err != nil {
		return fmt.Errorf("ошибка сериализации чанка %s: %w", pos, err)
	}
	if err := cs.put(chunkPrefix+pos.Key(), data); err != nil {
		return fmt.Errorf("ошибка сохранения чанка %s: %w", pos, err)
	}
	return nil
}

// LoadChunk загружает чанк; ErrChunkNotFound если его нет
func (cs *ChunkStorage) LoadChunk(pos vec.ChunkPos) (*voxel.Chunk, error) {
	data, err := cs.get(chunkPrefix + pos.Key())
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrChunkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения чанка %s: %w", pos, err)
	}

	chunk, err := codec.UnmarshalChunk(data)
	if err != nil {
		return nil, fmt.Errorf("ошибка десериализации чанка %s: %w", pos, err)
	}
	return chunk, nil
}

// DeleteChunk удаляет чанк и все его сетки
func (cs *ChunkStorage) DeleteChunk(pos vec.ChunkPos) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	meshes := []byte(meshPrefix + pos.Key() + ":")
	return cs.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(chunkPrefix + pos.Key())); err != nil {
			return err
		}

		it := txn.NewIterator(badger.IteratorOptions{Prefix: meshes})
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListChunks возвращает координаты всех сохранённых чанков в порядке ChunkPos.Less
func (cs *ChunkStorage) ListChunks() ([]vec.ChunkPos, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var out []vec.ChunkPos
	err := cs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), chunkPrefix)
			pos, err := vec.ParseChunkKey(key)
			if err != nil {
				logging.GetStorageLogger().Warn("Пропускаем некорректный ключ чанка %q: %v", key, err)
				continue
			}
			out = append(out, pos)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления чанков: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

// Load реализует cache.ColdStorage для ключей сеток
func (cs *ChunkStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(key, meshPrefix) {
		return nil, fmt.Errorf("неподдерживаемый ключ: %q", key)
	}
	return cs.get(key)
}

// Store реализует cache.ColdStorage для ключей сеток
func (cs *ChunkStorage) Store(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(key, meshPrefix) {
		return fmt.Errorf("неподдерживаемый ключ: %q", key)
	}
	return cs.put(key, value)
}

func (cs *ChunkStorage) put(key string, value []byte) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return cs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (cs *ChunkStorage) get(key string) ([]byte, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := cs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}
