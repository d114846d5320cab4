// Package wireframe выводит отладочный каркас чанка и его IR.
package wireframe

import (
	"github.com/annel0/voxelmesh/internal/ir"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// Color — цвет RGBA
type Color struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

var (
	White  = Color{1, 1, 1, 1}
	Yellow = Color{1, 1, 0, 1}
	Grey   = Color{0.5, 0.5, 0.5, 1}
	Green  = Color{0, 1, 0, 1}
	Red    = Color{1, 0, 0, 1}
)

// CornerRadius — радиус сферы узла
const CornerRadius float32 = 0.08

// Sink принимает примитивы каркаса
type Sink interface {
	Line(a, b mgl32.Vec3, c Color)
	Sphere(center mgl32.Vec3, radius float32, c Color)
}

// CornerColor возвращает цвет узла по прочности
func CornerColor(c voxel.Corner) Color {
	switch c {
	case voxel.Strong:
		return White
	case voxel.Weak:
		return Yellow
	default:
		return Grey
	}
}

// Draw рисует узлы чанка и контуры примитивов IR.
// Любой из аргументов chunk и c может быть nil.
func Draw(chunk *voxel.Chunk, c *ir.ChunkIR, sink Sink) {
	if chunk != nil {
		chunk.Each(func(p vec.Pos, cell voxel.Cell) {
			sink.Sphere(p.Vec3(), CornerRadius, CornerColor(cell.Corner))
		})
	}
	if c == nil {
		return
	}

	for _, q := range c.Quads {
		a, b, cc, d := q.A.Vec3(), q.B.Vec3(), q.C.Vec3(), q.D.Vec3()
		triangle(sink, a, b, cc)
		triangle(sink, a, cc, d)
	}
	for _, t := range c.Triangles {
		triangle(sink, t.A.Vec3(), t.B.Vec3(), t.C.Vec3())
	}
	for _, e := range c.Edges {
		sink.Line(e.A.Vec3(), e.B.Vec3(), Red)
	}
}

func triangle(sink Sink, a, b, c mgl32.Vec3) {
	sink.Line(a, b, Green)
	sink.Line(b, c, Green)
	sink.Line(c, a, Green)
}
