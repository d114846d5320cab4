package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
)

// writeItem представляет элемент в очереди Write-Behind.
type writeItem struct {
	Key   string
	Value []byte
}

// coldTier добавляет к кэшу read-through и асинхронную запись в ColdStorage.
// nil-значение означает "без постоянного хранилища".
type coldTier struct {
	store   ColdStorage
	queue   chan writeItem
	pending atomic.Int64
	wg      sync.WaitGroup
	once    sync.Once
}

func newColdTier(store ColdStorage, queueSize int) *coldTier {
	if store == nil {
		return nil
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	t := &coldTier{store: store, queue: make(chan writeItem, queueSize)}
	t.wg.Add(1)
	go t.loop()
	return t
}

func (t *coldTier) load(ctx context.Context, key string) ([]byte, bool) {
	if t == nil {
		return nil, false
	}
	val, err := t.store.Load(ctx, key)
	if err != nil {
		return nil, false
	}
	return val, true
}

// enqueue ставит запись в очередь; при переполнении пишет синхронно
func (t *coldTier) enqueue(ctx context.Context, key string, value []byte) {
	if t == nil {
		return
	}
	t.pending.Add(1)
	select {
	case t.queue <- writeItem{Key: key, Value: value}:
	default:
		logging.Warn("Write-behind queue full, writing synchronously: %s", key)
		t.write(ctx, writeItem{Key: key, Value: value})
	}
}

func (t *coldTier) loop() {
	defer t.wg.Done()
	for item := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		t.write(ctx, item)
		cancel()
	}
}

func (t *coldTier) write(ctx context.Context, item writeItem) {
	defer t.pending.Add(-1)
	if err := t.store.Store(ctx, item.Key, item.Value); err != nil {
		logging.Error("Failed to write to cold storage %s: %v", item.Key, err)
	}
}

func (t *coldTier) pendingWrites() int64 {
	if t == nil {
		return 0
	}
	return t.pending.Load()
}

// close дожидается записи очереди
func (t *coldTier) close() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		close(t.queue)
		t.wg.Wait()
	})
}
