// Package codec содержит форматы хранения чанков и передачи сеток.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
)

// ChunkDocument — JSON-представление чанка: список пар (позиция, ячейка)
type ChunkDocument struct {
	Cells []CellRecord `json:"cells"`
	Edges []EdgeRecord `json:"edges,omitempty"`
}

// CellRecord — запись ячейки. Незаполненная грань кодируется как null.
type CellRecord struct {
	Pos    [3]int        `json:"pos"`
	X      *voxel.Matter `json:"x"`
	Y      *voxel.Matter `json:"y"`
	Z      *voxel.Matter `json:"z"`
	Inner  *voxel.Matter `json:"inner,omitempty"`
	Corner voxel.Corner  `json:"corner"`
}

// EdgeRecord — метаданные ребра в узле
type EdgeRecord struct {
	Pos    [3]int         `json:"pos"`
	Matter voxel.Matter   `json:"matter"`
	Kind   voxel.EdgeKind `json:"kind"`
}

func matterPtr(m voxel.Matter) *voxel.Matter {
	if !m.IsSet() {
		return nil
	}
	return &m
}

func matterOf(p *voxel.Matter) voxel.Matter {
	if p == nil {
		return voxel.MatterNone
	}
	return *p
}

// NewChunkDocument строит документ из чанка в каноническом порядке
func NewChunkDocument(ch *voxel.Chunk) ChunkDocument {
	doc := ChunkDocument{Cells: make([]CellRecord, 0, ch.Len())}
	for _, e := range ch.Entries() {
		doc.Cells = append(doc.Cells, CellRecord{
			Pos:    [3]int{int(e.Pos.X), int(e.Pos.Y), int(e.Pos.Z)},
			X:      matterPtr(e.Cell.X),
			Y:      matterPtr(e.Cell.Y),
			Z:      matterPtr(e.Cell.Z),
			Inner:  matterPtr(e.Cell.Inner),
			Corner: e.Cell.Corner,
		})
		for _, edge := range ch.Edges(e.Pos) {
			doc.Edges = append(doc.Edges, EdgeRecord{
				Pos:    [3]int{int(e.Pos.X), int(e.Pos.Y), int(e.Pos.Z)},
				Matter: edge.Matter,
				Kind:   edge.Kind,
			})
		}
	}
	return doc
}

// Chunk собирает чанк из документа, проверяя диапазон координат.
// Повторная позиция перезаписывает предыдущую.
func (d ChunkDocument) Chunk() (*voxel.Chunk, error) {
	b := voxel.NewBuilder()
	for i, rec := range d.Cells {
		cell := voxel.Cell{
			X:      matterOf(rec.X),
			Y:      matterOf(rec.Y),
			Z:      matterOf(rec.Z),
			Inner:  matterOf(rec.Inner),
			Corner: rec.Corner,
		}
		if err := b.Set(rec.Pos[0], rec.Pos[1], rec.Pos[2], cell); err != nil {
			return nil, fmt.Errorf("ячейка #%d: %w", i, err)
		}
	}
	for i, rec := range d.Edges {
		p, err := vec.NewPos(rec.Pos[0], rec.Pos[1], rec.Pos[2])
		if err != nil {
			return nil, fmt.Errorf("ребро #%d: %w", i, err)
		}
		if err := b.AddEdge(p, voxel.Edge{Matter: rec.Matter, Kind: rec.Kind}); err != nil {
			return nil, fmt.Errorf("ребро #%d: %w", i, err)
		}
	}
	return b.Build(), nil
}

// MarshalChunk сериализует чанк в JSON
func MarshalChunk(ch *voxel.Chunk) ([]byte, error) {
	data, err := json.Marshal(NewChunkDocument(ch))
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации чанка: %w", err)
	}
	return data, nil
}

// UnmarshalChunk разбирает JSON-документ чанка
func UnmarshalChunk(data []byte) (*voxel.Chunk, error) {
	var doc ChunkDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ошибка десериализации чанка: %w", err)
	}
	return doc.Chunk()
}
