package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий
const (
	EventChunkMeshed  = "ChunkMeshed"
	EventChunkRemoved = "ChunkRemoved"
)

// ChunkMeshed — полезная нагрузка события о готовой сетке чанка
type ChunkMeshed struct {
	Chunk      string  `json:"chunk"` // ключ чанка x:y:z
	Digest     string  `json:"digest"`
	Quads      int     `json:"quads"`
	Triangles  int     `json:"triangles"`
	Vertices   int     `json:"vertices"`
	Degenerate int     `json:"degenerate"`
	Cached     bool    `json:"cached"`
	DurationMS float64 `json:"duration_ms"`
}

// NewEnvelope создаёт конверт с новым UUID и JSON-нагрузкой
func NewEnvelope(source, eventType string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации события %s: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  1,
		Payload:   data,
	}, nil
}

// NewChunkMeshedEvent упаковывает ChunkMeshed в конверт
func NewChunkMeshedEvent(source string, ev ChunkMeshed) (*Envelope, error) {
	env, err := NewEnvelope(source, EventChunkMeshed, ev)
	if err != nil {
		return nil, err
	}
	env.Metadata = map[string]string{"chunk": ev.Chunk}
	return env, nil
}

// DecodeChunkMeshed разбирает нагрузку события ChunkMeshed
func DecodeChunkMeshed(env *Envelope) (ChunkMeshed, error) {
	var ev ChunkMeshed
	if env.EventType != EventChunkMeshed {
		return ev, fmt.Errorf("ожидалось событие %s, получено %s", EventChunkMeshed, env.EventType)
	}
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return ev, fmt.Errorf("ошибка разбора %s: %w", EventChunkMeshed, err)
	}
	return ev, nil
}

// ChunkRemoved — чанк удалён из мира
type ChunkRemoved struct {
	Chunk string `json:"chunk"`
}

// NewChunkRemovedEvent упаковывает ChunkRemoved в конверт
func NewChunkRemovedEvent(source, chunkKey string) (*Envelope, error) {
	env, err := NewEnvelope(source, EventChunkRemoved, ChunkRemoved{Chunk: chunkKey})
	if err != nil {
		return nil, err
	}
	env.Metadata = map[string]string{"chunk": chunkKey}
	return env, nil
}
