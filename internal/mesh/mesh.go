// Package mesh собирает из ChunkIR рендер-готовый буфер треугольников.
package mesh

import (
	"github.com/annel0/voxelmesh/internal/ir"
	"github.com/go-gl/mathgl/mgl32"
)

// degenerateEpsilon — порог длины векторного произведения вырожденной грани
const degenerateEpsilon = 1e-12

// Buffer — плоский буфер вершин. Каждый треугольник владеет своими тремя
// вершинами, индексы идут подряд.
type Buffer struct {
	Positions [][3]float32 `json:"positions"`
	Normals   [][3]float32 `json:"normals"`
	UVs       [][2]float32 `json:"uvs"`
	Indices   []uint32     `json:"indices"`
}

// Report — сведения о сборке
type Report struct {
	// Degenerate — число пропущенных вырожденных примитивов. Четырёхугольник
	// считается одним примитивом и пропускается целиком.
	Degenerate int `json:"degenerate"`
}

// Face — представление одного треугольника буфера
type Face struct {
	Positions [3][3]float32
	Normals   [3][3]float32
	UVs       [3][2]float32
}

// NewBuffer создаёт пустой буфер
func NewBuffer() *Buffer {
	return &Buffer{
		Positions: make([][3]float32, 0),
		Normals:   make([][3]float32, 0),
		UVs:       make([][2]float32, 0),
		Indices:   make([]uint32, 0),
	}
}

// VertexCount возвращает число вершин
func (b *Buffer) VertexCount() int { return len(b.Positions) }

// TriangleCount возвращает число треугольников
func (b *Buffer) TriangleCount() int { return len(b.Indices) / 3 }

// Triangles раскрывает индексы в список треугольников
func (b *Buffer) Triangles() []Face {
	faces := make([]Face, 0, b.TriangleCount())
	for i := 0; i+2 < len(b.Indices); i += 3 {
		var f Face
		for k := 0; k < 3; k++ {
			idx := b.Indices[i+k]
			f.Positions[k] = b.Positions[idx]
			f.Normals[k] = b.Normals[idx]
			f.UVs[k] = b.UVs[idx]
		}
		faces = append(faces, f)
	}
	return faces
}

// Build собирает буфер из IR. Четырёхугольник даёт 4 треугольника
// (обе стороны обеих половин), треугольник — 2. Нормаль четырёхугольника
// берётся из (b−a)×(c−a) и общая для обеих половин. Вырожденный примитив
// пропускается целиком и считается в Report.
func Build(c *ir.ChunkIR) (*Buffer, Report) {
	buf := NewBuffer()
	var rep Report
	if c == nil {
		return buf, rep
	}

	for _, q := range c.Quads {
		a, b, cc, d := q.A.Vec3(), q.B.Vec3(), q.C.Vec3(), q.D.Vec3()
		n, ok := faceNormal(a, b, cc)
		if !ok {
			rep.Degenerate++
			continue
		}
		uvA, uvB, uvC, uvD := PlaceholderUV(0), PlaceholderUV(1), PlaceholderUV(2), PlaceholderUV(3)

		buf.addTriangle(a, b, cc, n, uvA, uvB, uvC)
		buf.addTriangle(a, cc, b, n.Mul(-1), uvA, uvC, uvB)
		buf.addTriangle(a, cc, d, n, uvA, uvC, uvD)
		buf.addTriangle(a, d, cc, n.Mul(-1), uvA, uvD, uvC)
	}

	for _, t := range c.Triangles {
		if !buf.addDoubleSided(t.A.Vec3(), t.B.Vec3(), t.C.Vec3(), PlaceholderUV(0), PlaceholderUV(1), PlaceholderUV(2)) {
			rep.Degenerate++
		}
	}

	return buf, rep
}

// Inspect считает вырожденные примитивы IR без сборки буфера
func Inspect(c *ir.ChunkIR) Report {
	var rep Report
	if c == nil {
		return rep
	}
	for _, q := range c.Quads {
		if _, ok := faceNormal(q.A.Vec3(), q.B.Vec3(), q.C.Vec3()); !ok {
			rep.Degenerate++
		}
	}
	for _, t := range c.Triangles {
		if _, ok := faceNormal(t.A.Vec3(), t.B.Vec3(), t.C.Vec3()); !ok {
			rep.Degenerate++
		}
	}
	return rep
}

// addDoubleSided добавляет (p0,p1,p2) с нормалью n и (p0,p2,p1) с -n.
// Возвращает false, если грань вырождена.
func (b *Buffer) addDoubleSided(p0, p1, p2 mgl32.Vec3, uv0, uv1, uv2 [2]float32) bool {
	n, ok := faceNormal(p0, p1, p2)
	if !ok {
		return false
	}

	b.addTriangle(p0, p1, p2, n, uv0, uv1, uv2)
	b.addTriangle(p0, p2, p1, n.Mul(-1), uv0, uv2, uv1)
	return true
}

// faceNormal — единичная нормаль (p1−p0)×(p2−p0); false для вырожденной грани
func faceNormal(p0, p1, p2 mgl32.Vec3) (mgl32.Vec3, bool) {
	cross := p1.Sub(p0).Cross(p2.Sub(p0))
	if float64(cross.Len()) < degenerateEpsilon {
		return mgl32.Vec3{}, false
	}
	return cross.Normalize(), true
}

func (b *Buffer) addTriangle(p0, p1, p2, n mgl32.Vec3, uv0, uv1, uv2 [2]float32) {
	base := uint32(len(b.Positions))
	b.Positions = append(b.Positions, p0, p1, p2)
	b.Normals = append(b.Normals, n, n, n)
	b.UVs = append(b.UVs, uv0, uv1, uv2)
	b.Indices = append(b.Indices, base, base+1, base+2)
}

// PlaceholderUV — временная развёртка по позиции вершины в примитиве:
// a→(0,0), b→(0,1), c→(1,1), d→(1,0). Материал не учитывается.
func PlaceholderUV(corner int) [2]float32 {
	switch corner {
	case 0:
		return [2]float32{0, 0}
	case 1:
		return [2]float32{0, 1}
	case 2:
		return [2]float32{1, 1}
	case 3:
		return [2]float32{1, 0}
	default:
		return [2]float32{0, 0}
	}
}
