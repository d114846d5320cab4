package eventbus

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DeliversFiltered(t *testing.T) {
	bus := NewMemoryBus(16)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 4)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventChunkMeshed}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.Metadata["chunk"])
		mu.Unlock()
		done <- struct{}{}
	})
	require.NoError(t, err)

	for _, key := range []string{"0:0:0", "1:0:0"} {
		env, err := NewChunkMeshedEvent("test", ChunkMeshed{Chunk: key, Quads: 6})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), env))
	}
	other, err := NewEnvelope("test", EventChunkRemoved, map[string]string{"chunk": "2:0:0"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), other))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("событие не доставлено")
		}
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"0:0:0", "1:0:0"}, got)

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(2), stats.Consumed)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	calls := 0
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) { calls++ })
	require.NoError(t, err)
	sub.Unsubscribe()

	env, _ := NewEnvelope("test", EventChunkMeshed, ChunkMeshed{})
	require.NoError(t, bus.Publish(context.Background(), env))
	require.NoError(t, bus.Close())
	assert.Zero(t, calls)
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, 1),
		done:        make(chan struct{}),
	}
	// dispatchLoop не запущен: буфер никто не читает

	ctx := context.Background()
	require.NoError(t, mb.Publish(ctx, &Envelope{Priority: 1}))
	require.NoError(t, mb.Publish(ctx, &Envelope{Priority: 1}))

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mb.Publish(tctx, &Envelope{Priority: 9}), context.DeadlineExceeded)

	stats := mb.Metrics()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 1, stats.InFlight)
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus(1)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), &Envelope{}), ErrBusClosed)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestChunkMeshedEvent(t *testing.T) {
	env, err := NewChunkMeshedEvent("mesher", ChunkMeshed{Chunk: "1:2:3", Quads: 3, Triangles: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, EventChunkMeshed, env.EventType)

	ev, err := DecodeChunkMeshed(env)
	require.NoError(t, err)
	assert.Equal(t, 3, ev.Triangles)

	env.EventType = EventChunkRemoved
	_, err = DecodeChunkMeshed(env)
	assert.Error(t, err)
}

func TestMetricsExporter_Collect(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	env, _ := NewEnvelope("test", EventChunkMeshed, ChunkMeshed{})
	require.NoError(t, bus.Publish(context.Background(), env))
	require.NoError(t, bus.Publish(context.Background(), env))

	prev := me.collect(Stats{})
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published))
	me.collect(prev)
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published))
}

func TestLoggingListener(t *testing.T) {
	bus := NewMemoryBus(4)
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("eventbus", &buf, logging.DEBUG)

	_, err := StartLoggingListener(bus, logger)
	require.NoError(t, err)

	env, _ := NewChunkMeshedEvent("test", ChunkMeshed{Chunk: "4:0:4"})
	require.NoError(t, bus.Publish(context.Background(), env))
	require.NoError(t, bus.Close())

	assert.Contains(t, buf.String(), "chunk=4:0:4")
}

func TestJetStreamBus(t *testing.T) {
	url := os.Getenv("VOXELMESH_NATS_URL")
	if url == "" {
		t.Skip("VOXELMESH_NATS_URL не задан, пропускаем тест JetStream")
	}

	bus, err := NewJetStreamBus(url, "VOXELMESH_TEST", time.Minute)
	require.NoError(t, err)
	defer bus.Close()

	got := make(chan ChunkMeshed, 1)
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventChunkMeshed}}, func(ctx context.Context, ev *Envelope) {
		if cm, err := DecodeChunkMeshed(ev); err == nil {
			got <- cm
		}
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	env, err := NewChunkMeshedEvent("test", ChunkMeshed{Chunk: "9:9:9"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), env))

	select {
	case cm := <-got:
		assert.Equal(t, "9:9:9", cm.Chunk)
	case <-time.After(5 * time.Second):
		t.Fatal("событие не получено")
	}
}
