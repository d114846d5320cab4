package ir

import (
	"sort"

	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
)

// ChunkIR — промежуточное геометрическое представление чанка.
// Пересчитывается целиком при изменении чанка, не патчится.
type ChunkIR struct {
	Quads     []Quad     `json:"quads"`
	Triangles []Triangle `json:"triangles"`
	Edges     []Edge     `json:"edges"`
}

// Quad — четырёхугольник с обходом a→b→c→d
type Quad struct {
	Matter voxel.Matter `json:"matter"`
	A      vec.Pos      `json:"a"`
	B      vec.Pos      `json:"b"`
	C      vec.Pos      `json:"c"`
	D      vec.Pos      `json:"d"`
}

// Triangle — треугольник a→b→c
type Triangle struct {
	Matter voxel.Matter `json:"matter"`
	A      vec.Pos      `json:"a"`
	B      vec.Pos      `json:"b"`
	C      vec.Pos      `json:"c"`
}

// Edge — ребро a–b (точка расширения, сейчас не заполняется)
type Edge struct {
	Matter voxel.Matter `json:"matter"`
	A      vec.Pos      `json:"a"`
	B      vec.Pos      `json:"b"`
}

// Stats — счётчики примитивов
type Stats struct {
	Quads     int `json:"quads"`
	Triangles int `json:"triangles"`
	Edges     int `json:"edges"`
}

// Stats возвращает число примитивов каждого вида
func (c *ChunkIR) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Quads: len(c.Quads), Triangles: len(c.Triangles), Edges: len(c.Edges)}
}

// Empty сообщает, что геометрии нет
func (c *ChunkIR) Empty() bool {
	s := c.Stats()
	return s.Quads == 0 && s.Triangles == 0 && s.Edges == 0
}

// Points возвращает вершины четырёхугольника по порядку обхода
func (q Quad) Points() [4]vec.Pos { return [4]vec.Pos{q.A, q.B, q.C, q.D} }

// Points возвращает вершины треугольника по порядку обхода
func (t Triangle) Points() [3]vec.Pos { return [3]vec.Pos{t.A, t.B, t.C} }

// Canonical возвращает копию с примитивами, отсортированными по вершинам.
// Порядок обхода внутри примитива сохраняется.
func (c *ChunkIR) Canonical() *ChunkIR {
	out := &ChunkIR{
		Quads:     make([]Quad, len(c.Quads)),
		Triangles: make([]Triangle, len(c.Triangles)),
		Edges:     make([]Edge, len(c.Edges)),
	}
	copy(out.Quads, c.Quads)
	copy(out.Triangles, c.Triangles)
	copy(out.Edges, c.Edges)
	sort.Slice(out.Quads, func(i, j int) bool {
		a, b := out.Quads[i], out.Quads[j]
		return lessPoints([]vec.Pos{a.A, a.B, a.C, a.D}, []vec.Pos{b.A, b.B, b.C, b.D}, a.Matter, b.Matter)
	})
	sort.Slice(out.Triangles, func(i, j int) bool {
		a, b := out.Triangles[i], out.Triangles[j]
		return lessPoints([]vec.Pos{a.A, a.B, a.C}, []vec.Pos{b.A, b.B, b.C}, a.Matter, b.Matter)
	})
	sort.Slice(out.Edges, func(i, j int) bool {
		a, b := out.Edges[i], out.Edges[j]
		return lessPoints([]vec.Pos{a.A, a.B}, []vec.Pos{b.A, b.B}, a.Matter, b.Matter)
	})
	return out
}

func lessPoints(a, b []vec.Pos, ma, mb voxel.Matter) bool {
	for i := range a {
		if c := a[i].Compare(b[i]); c != 0 {
			return c < 0
		}
	}
	return ma < mb
}
