package voxel

import "fmt"

// Axis обозначает ось внешней грани ячейки
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes перечисляет оси в порядке обхода
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

// String возвращает имя оси
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// Cell — запись ячейки сетки: до трёх заполненных внешних граней,
// внутренняя заливка и прочность собственного узла.
type Cell struct {
	X      Matter // грань, перпендикулярная оси x
	Y      Matter // грань, перпендикулярная оси y
	Z      Matter // грань, перпендикулярная оси z
	Inner  Matter // диагональные/внутренние грани (генераторы пока не заполняют)
	Corner Corner
}

// NewCell создаёт ячейку без внутренней заливки
func NewCell(x, y, z Matter, corner Corner) Cell {
	return Cell{X: x, Y: y, Z: z, Corner: corner}
}

// Side возвращает материал грани по оси
func (c Cell) Side(axis Axis) Matter {
	switch axis {
	case AxisX:
		return c.X
	case AxisY:
		return c.Y
	case AxisZ:
		return c.Z
	default:
		return MatterNone
	}
}

// Validate проверяет значения перечислений
func (c Cell) Validate() error {
	if !c.Corner.Valid() {
		return fmt.Errorf("неизвестная прочность угла %d", uint8(c.Corner))
	}
	for _, m := range [...]Matter{c.X, c.Y, c.Z, c.Inner} {
		if !m.Valid() {
			return fmt.Errorf("неизвестный материал %d", uint8(m))
		}
	}
	return nil
}
