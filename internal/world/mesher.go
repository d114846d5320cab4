package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxelmesh/internal/cache"
	"github.com/annel0/voxelmesh/internal/codec"
	"github.com/annel0/voxelmesh/internal/eventbus"
	"github.com/annel0/voxelmesh/internal/ir"
	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/annel0/voxelmesh/internal/mesh"
	"github.com/annel0/voxelmesh/internal/metrics"
	"github.com/annel0/voxelmesh/internal/observability"
	"github.com/annel0/voxelmesh/internal/storage"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// eventSource — поле Source публикуемых событий
const eventSource = "mesher"

// MesherConfig — зависимости конвейера. Все поля опциональны.
type MesherConfig struct {
	Cache       cache.MeshCache
	CacheTTL    time.Duration
	Bus         eventbus.EventBus
	Metrics     *metrics.MeshMetrics
	Index       storage.MeshIndex
	Invalidator cache.CacheInvalidator
	Source      ChunkSource // для перечитывания чанков по инвалидации
	Options     ir.Options
	Workers     int
	Logger      *logging.Logger
}

// Result — итог извлечения сетки одного чанка
type Result struct {
	Pos      vec.ChunkPos
	Digest   string
	Stats    ir.Stats
	Mesh     *mesh.Buffer
	Report   mesh.Report
	Cached   bool
	Duration time.Duration
}

// Mesher прогоняет чанки мира через конвейер чанк → IR → сетка.
// Кэш адресуется дайджестом содержимого, поэтому изменённый чанк
// никогда не получит устаревшую сетку.
type Mesher struct {
	world *World
	cfg   MesherConfig
	log   *logging.Logger

	mu      sync.Mutex
	lastKey map[vec.ChunkPos]string // последний ключ кэша по чанку
}

// NewMesher создаёт конвейер над миром
func NewMesher(w *World, cfg MesherConfig) *Mesher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetMesherLogger()
	}
	return &Mesher{
		world:   w,
		cfg:     cfg,
		log:     cfg.Logger,
		lastKey: make(map[vec.ChunkPos]string),
	}
}

// World возвращает мир конвейера
func (m *Mesher) World() *World { return m.world }

// BuildIR строит IR чанка без кэша (для отладки и API)
func (m *Mesher) BuildIR(pos vec.ChunkPos) (*ir.ChunkIR, error) {
	chunk, ok := m.world.Get(pos)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, pos)
	}
	return ir.BuildWithOptions(chunk, m.cfg.Options), nil
}

// Extract возвращает сетку чанка: из кэша или построенную заново
func (m *Mesher) Extract(ctx context.Context, pos vec.ChunkPos) (*Result, error) {
	ctx, span := observability.StartChunkSpan(ctx, "mesher.Extract", pos.Key())
	defer span.End()

	res, err := m.extract(ctx, pos)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.cfg.Metrics.ObserveError()
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("voxelmesh.cached", res.Cached),
		attribute.Int("voxelmesh.quads", res.Stats.Quads),
		attribute.Int("voxelmesh.triangles", res.Stats.Triangles),
	)
	return res, nil
}

func (m *Mesher) extract(ctx context.Context, pos vec.ChunkPos) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunk, ok := m.world.Get(pos)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, pos)
	}

	start := time.Now()
	digest := chunk.DigestHex()
	key := cache.MeshKey(pos.Key(), digest)
	m.remember(pos, key)

	if res, ok := m.fromCache(ctx, chunk, pos, key, digest); ok {
		res.Duration = time.Since(start)
		m.cfg.Metrics.ObserveCached()
		m.publish(ctx, res)
		return res, nil
	}

	chunkIR := ir.BuildWithOptions(chunk, m.cfg.Options)
	buf, report := mesh.Build(chunkIR)
	res := &Result{
		Pos:    pos,
		Digest: digest,
		Stats:  chunkIR.Stats(),
		Mesh:   buf,
		Report: report,
	}

	if m.cfg.Cache != nil {
		packed, err := codec.PackMesh(buf)
		if err != nil {
			return nil, fmt.Errorf("упаковка сетки %s: %w", pos, err)
		}
		if err := m.cfg.Cache.Set(ctx, key, packed, m.cfg.CacheTTL); err != nil {
			// Кэш вторичен: сетка уже построена
			m.log.Warn("Не удалось записать сетку %s в кэш: %v", pos, err)
		}
	}

	res.Duration = time.Since(start)
	m.cfg.Metrics.ObserveExtraction(res.Stats.Quads, res.Stats.Triangles, report.Degenerate, res.Duration)
	if report.Degenerate > 0 {
		m.log.Warn("⚠️ %s: пропущено вырожденных граней: %d", pos, report.Degenerate)
	}

	if m.cfg.Index != nil {
		rec := storage.MeshRecord{
			ChunkKey:   pos.Key(),
			Digest:     digest,
			Quads:      res.Stats.Quads,
			Triangles:  res.Stats.Triangles,
			Vertices:   buf.VertexCount(),
			Degenerate: report.Degenerate,
			UpdatedAt:  time.Now(),
		}
		if err := m.cfg.Index.Record(ctx, rec); err != nil {
			m.log.Warn("Не удалось обновить индекс для %s: %v", pos, err)
		}
	}

	m.log.Debug("%s: quads=%d triangles=%d vertices=%d за %v",
		pos, res.Stats.Quads, res.Stats.Triangles, buf.VertexCount(), res.Duration)
	m.publish(ctx, res)
	return res, nil
}

// fromCache достаёт сетку. Счётчики примитивов берутся из индекса, если
// запись там соответствует тому же дайджесту, иначе пересчитываются по IR
// чанка: кэш может быть общим для узлов с разными индексами.
func (m *Mesher) fromCache(ctx context.Context, chunk *voxel.Chunk, pos vec.ChunkPos, key, digest string) (*Result, bool) {
	if m.cfg.Cache == nil {
		return nil, false
	}
	blob, err := m.cfg.Cache.Get(ctx, key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			m.log.Warn("Ошибка чтения кэша %s: %v", key, err)
		}
		m.cfg.Metrics.CacheMiss()
		return nil, false
	}
	buf, err := codec.UnpackMesh(blob)
	if err != nil {
		m.log.Warn("Повреждённая сетка в кэше %s: %v", key, err)
		_ = m.cfg.Cache.Delete(ctx, key)
		m.cfg.Metrics.CacheMiss()
		return nil, false
	}
	m.cfg.Metrics.CacheHit()

	res := &Result{Pos: pos, Digest: digest, Mesh: buf, Cached: true}
	if m.cfg.Index != nil {
		if rec, found, err := m.cfg.Index.Get(ctx, pos.Key()); err == nil && found && rec.Digest == digest {
			res.Stats = ir.Stats{Quads: rec.Quads, Triangles: rec.Triangles}
			res.Report.Degenerate = rec.Degenerate
			return res, true
		}
	}
	chunkIR := ir.BuildWithOptions(chunk, m.cfg.Options)
	res.Stats = chunkIR.Stats()
	res.Report = mesh.Inspect(chunkIR)
	return res, true
}

func (m *Mesher) publish(ctx context.Context, res *Result) {
	if m.cfg.Bus == nil {
		return
	}
	env, err := eventbus.NewChunkMeshedEvent(eventSource, eventbus.ChunkMeshed{
		Chunk:      res.Pos.Key(),
		Digest:     res.Digest,
		Quads:      res.Stats.Quads,
		Triangles:  res.Stats.Triangles,
		Vertices:   res.Mesh.VertexCount(),
		Degenerate: res.Report.Degenerate,
		Cached:     res.Cached,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
	})
	if err != nil {
		m.log.Error("Не удалось создать событие: %v", err)
		return
	}
	if err := m.cfg.Bus.Publish(ctx, env); err != nil && !errors.Is(err, eventbus.ErrBusClosed) {
		m.log.Warn("Не удалось опубликовать событие для %s: %v", res.Pos, err)
	}
}

// ExtractAll обрабатывает чанки параллельно (не более Workers одновременно).
// Порядок результатов совпадает с порядком positions; первая ошибка
// отменяет остальные.
func (m *Mesher) ExtractAll(ctx context.Context, positions []vec.ChunkPos) ([]*Result, error) {
	results := make([]*Result, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i, pos := range positions {
		i, pos := i, pos
		g.Go(func() error {
			res, err := m.Extract(gctx, pos)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.cfg.Metrics.SetWorldChunks(m.world.Len())
	return results, nil
}

// ExtractWorld обрабатывает все чанки мира
func (m *Mesher) ExtractWorld(ctx context.Context) ([]*Result, error) {
	return m.ExtractAll(ctx, m.world.Positions())
}

func (m *Mesher) remember(pos vec.ChunkPos, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKey[pos] = key
}

// Forget удаляет из кэша последнюю известную сетку чанка
func (m *Mesher) Forget(ctx context.Context, pos vec.ChunkPos) {
	m.mu.Lock()
	key, ok := m.lastKey[pos]
	delete(m.lastKey, pos)
	m.mu.Unlock()

	if ok && m.cfg.Cache != nil {
		if err := m.cfg.Cache.Delete(ctx, key); err != nil {
			m.log.Warn("Не удалось удалить %s из кэша: %v", key, err)
		}
	}
}

// ChunkChanged вызывается после правки или удаления чанка на этом узле:
// чистит кэш и оповещает другие узлы
func (m *Mesher) ChunkChanged(ctx context.Context, pos vec.ChunkPos) {
	m.Forget(ctx, pos)

	if _, ok := m.world.Get(pos); !ok {
		if m.cfg.Index != nil {
			if err := m.cfg.Index.Delete(ctx, pos.Key()); err != nil {
				m.log.Warn("Не удалось удалить %s из индекса: %v", pos, err)
			}
		}
		if m.cfg.Bus != nil {
			if env, err := eventbus.NewChunkRemovedEvent(eventSource, pos.Key()); err == nil {
				_ = m.cfg.Bus.Publish(ctx, env)
			}
		}
	}

	if m.cfg.Invalidator != nil {
		if err := m.cfg.Invalidator.PublishInvalidation(ctx, pos.Key()); err != nil {
			m.log.Warn("Не удалось разослать инвалидацию %s: %v", pos, err)
		}
	}
}

// HandleInvalidation — обработчик инвалидаций от других узлов.
// Чанк перечитывается из Source, если он задан.
func (m *Mesher) HandleInvalidation(key string) error {
	pos, err := vec.ParseChunkKey(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Forget(ctx, pos)

	if m.cfg.Source == nil {
		return nil
	}
	err = m.world.Reload(m.cfg.Source, pos)
	if errors.Is(err, storage.ErrChunkNotFound) {
		m.world.Delete(pos)
		return nil
	}
	return err
}
