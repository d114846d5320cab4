package voxel

import "github.com/annel0/voxelmesh/internal/vec"

// Shape — геометрия, которую даёт грань
type Shape uint8

const (
	ShapeNone Shape = iota
	ShapeTriangle
	ShapeQuad
)

// String возвращает имя формы
func (s Shape) String() string {
	switch s {
	case ShapeTriangle:
		return "triangle"
	case ShapeQuad:
		return "quad"
	default:
		return "none"
	}
}

// Side — результат классификации грани. Для треугольника заняты
// первые три точки, для четырёхугольника все четыре (обход a→b→c→d).
type Side struct {
	Shape  Shape
	Points [4]vec.Pos
}

// Vertices возвращает участвующие точки
func (s Side) Vertices() []vec.Pos {
	switch s.Shape {
	case ShapeQuad:
		return s.Points[:4]
	case ShapeTriangle:
		return s.Points[:3]
	default:
		return nil
	}
}

// sideCorners задаёт четвёрку углов грани: o, first, diag, second.
// Грань x лежит в плоскости yz, y — в xz, z — в xy.
var sideCorners = [3][4]CornerIndex{
	AxisX: {CornerO, CornerY, CornerYZ, CornerZ},
	AxisY: {CornerO, CornerX, CornerXZ, CornerZ},
	AxisZ: {CornerO, CornerX, CornerXY, CornerY},
}

// SideCorners возвращает индексы углов грани для оси
func SideCorners(axis Axis) [4]CornerIndex {
	return sideCorners[axis]
}

// ClassifyPattern решает форму грани по четырём прочностям (o, first, diag, second).
// Для треугольника dropped — индекс отброшенного слабого угла, иначе -1.
//
//	S S S S → четырёхугольник
//	ровно один W, остальные S → треугольник без слабого угла
//	всё остальное (любой Air, два и более W) → ничего
func ClassifyPattern(p [4]Corner) (shape Shape, dropped int) {
	strong, weak := 0, 0
	weakAt := -1
	for i, c := range p {
		switch c {
		case Strong:
			strong++
		case Weak:
			weak++
			weakAt = i
		}
	}

	switch {
	case strong == 4:
		return ShapeQuad, -1
	case strong == 3 && weak == 1:
		return ShapeTriangle, weakAt
	default:
		return ShapeNone, -1
	}
}

// ClassifySide классифицирует внешнюю грань ячейки по оси
func ClassifySide(axis Axis, n Neighborhood) Side {
	idx := sideCorners[axis]
	var pattern [4]Corner
	for i, ci := range idx {
		pattern[i] = n.Strength[ci]
	}

	shape, dropped := ClassifyPattern(pattern)
	side := Side{Shape: shape}
	switch shape {
	case ShapeQuad:
		for i, ci := range idx {
			side.Points[i] = n.Pos[ci]
		}
	case ShapeTriangle:
		k := 0
		for i, ci := range idx {
			if i == dropped {
				continue
			}
			side.Points[k] = n.Pos[ci]
			k++
		}
	}
	return side
}
