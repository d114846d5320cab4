package ir

import (
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
)

// Options управляет экспериментальными частями построения
type Options struct {
	// InnerSides включает частичный классификатор внутренних граней
	// для ячеек с заданным Inner. По умолчанию выключен.
	InnerSides bool
}

// Build строит ChunkIR из чанка. Функция полная: отсутствующие соседи
// считаются воздухом, ошибок нет.
func Build(chunk *voxel.Chunk) *ChunkIR {
	return BuildWithOptions(chunk, Options{})
}

// BuildWithOptions строит ChunkIR с заданными опциями
func BuildWithOptions(chunk *voxel.Chunk, opts Options) *ChunkIR {
	out := &ChunkIR{
		Quads:     make([]Quad, 0),
		Triangles: make([]Triangle, 0),
		Edges:     make([]Edge, 0),
	}

	chunk.Each(func(p vec.Pos, cell voxel.Cell) {
		// Ячейка-воздух не даёт геометрии даже с заданными гранями
		if cell.Corner.IsAir() {
			return
		}

		n := voxel.ResolveNeighborhood(chunk, p, cell.Corner)
		for _, axis := range voxel.Axes {
			matter := cell.Side(axis)
			if !matter.IsSet() {
				continue
			}
			out.appendSide(matter, voxel.ClassifySide(axis, n))
		}

		if opts.InnerSides && cell.Inner.IsSet() {
			if pts, err := voxel.ClassifyInner(n); err == nil {
				out.Triangles = append(out.Triangles, Triangle{Matter: cell.Inner, A: pts[0], B: pts[1], C: pts[2]})
			}
		}
	})

	// Рёбра пока не извлекаются: список остаётся пустым
	return out
}

func (c *ChunkIR) appendSide(matter voxel.Matter, side voxel.Side) {
	switch side.Shape {
	case voxel.ShapeQuad:
		c.Quads = append(c.Quads, Quad{
			Matter: matter,
			A:      side.Points[0],
			B:      side.Points[1],
			C:      side.Points[2],
			D:      side.Points[3],
		})
	case voxel.ShapeTriangle:
		c.Triangles = append(c.Triangles, Triangle{
			Matter: matter,
			A:      side.Points[0],
			B:      side.Points[1],
			C:      side.Points[2],
		})
	}
}
