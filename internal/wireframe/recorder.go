package wireframe

import "github.com/go-gl/mathgl/mgl32"

// Segment — записанная линия
type Segment struct {
	A     [3]float32 `json:"a"`
	B     [3]float32 `json:"b"`
	Color Color      `json:"color"`
}

// Sphere — записанная сфера узла
type Sphere struct {
	Center [3]float32 `json:"center"`
	Radius float32    `json:"radius"`
	Color  Color      `json:"color"`
}

// Recorder — Sink, складывающий примитивы в память (тесты, REST)
type Recorder struct {
	Segments []Segment `json:"segments"`
	Spheres  []Sphere  `json:"spheres"`
}

// NewRecorder создаёт пустой Recorder
func NewRecorder() *Recorder {
	return &Recorder{Segments: make([]Segment, 0), Spheres: make([]Sphere, 0)}
}

// Line реализует Sink
func (r *Recorder) Line(a, b mgl32.Vec3, c Color) {
	r.Segments = append(r.Segments, Segment{A: a, B: b, Color: c})
}

// Sphere реализует Sink
func (r *Recorder) Sphere(center mgl32.Vec3, radius float32, c Color) {
	r.Spheres = append(r.Spheres, Sphere{Center: center, Radius: radius, Color: c})
}

// CountLines возвращает число линий заданного цвета
func (r *Recorder) CountLines(c Color) int {
	n := 0
	for _, s := range r.Segments {
		if s.Color == c {
			n++
		}
	}
	return n
}
