package vec

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Допустимый диапазон координат узла сетки. Верхняя граница на единицу меньше
// math.MaxInt8: соседние углы +x/+y/+z любого сохранённого узла обязаны
// оставаться представимыми.
const (
	MinCoord = -128
	MaxCoord = 126
)

// ErrPosOutOfRange возвращается, когда координата не помещается в сетку чанка.
var ErrPosOutOfRange = errors.New("координата вне допустимого диапазона")

// Pos представляет узел воксельной сетки (один шаг сетки на единицу).
// Сравнение и хеширование структурные, поэтому Pos используется как ключ карты.
type Pos struct {
	X int8 `json:"x" yaml:"x"`
	Y int8 `json:"y" yaml:"y"`
	Z int8 `json:"z" yaml:"z"`
}

// NewPos создаёт позицию с проверкой диапазона
func NewPos(x, y, z int) (Pos, error) {
	if !InRange(x) || !InRange(y) || !InRange(z) {
		return Pos{}, fmt.Errorf("%w: (%d,%d,%d)", ErrPosOutOfRange, x, y, z)
	}
	return Pos{X: int8(x), Y: int8(y), Z: int8(z)}, nil
}

// MustPos как NewPos, но паникует. Только для захардкоженных фикстур.
func MustPos(x, y, z int) Pos {
	p, err := NewPos(x, y, z)
	if err != nil {
		panic(err)
	}
	return p
}

// InRange сообщает, помещается ли координата в сетку
func InRange(c int) bool {
	return c >= MinCoord && c <= MaxCoord
}

// PlusX возвращает соседний узел по +x
func (p Pos) PlusX() Pos { return Pos{X: p.X + 1, Y: p.Y, Z: p.Z} }

// PlusY возвращает соседний узел по +y
func (p Pos) PlusY() Pos { return Pos{X: p.X, Y: p.Y + 1, Z: p.Z} }

// PlusZ возвращает соседний узел по +z
func (p Pos) PlusZ() Pos { return Pos{X: p.X, Y: p.Y, Z: p.Z + 1} }

// PlusXY возвращает диагональный узел в плоскости xy
func (p Pos) PlusXY() Pos { return Pos{X: p.X + 1, Y: p.Y + 1, Z: p.Z} }

// PlusXZ возвращает диагональный узел в плоскости xz
func (p Pos) PlusXZ() Pos { return Pos{X: p.X + 1, Y: p.Y, Z: p.Z + 1} }

// PlusYZ возвращает диагональный узел в плоскости yz
func (p Pos) PlusYZ() Pos { return Pos{X: p.X, Y: p.Y + 1, Z: p.Z + 1} }

// PlusXYZ возвращает противоположный угол куба ячейки
func (p Pos) PlusXYZ() Pos { return Pos{X: p.X + 1, Y: p.Y + 1, Z: p.Z + 1} }

// Add складывает позиции с проверкой переполнения
func (p Pos) Add(other Pos) (Pos, error) {
	return NewPos(int(p.X)+int(other.X), int(p.Y)+int(other.Y), int(p.Z)+int(other.Z))
}

// Sub вычитает позиции с проверкой переполнения
func (p Pos) Sub(other Pos) (Pos, error) {
	return NewPos(int(p.X)-int(other.X), int(p.Y)-int(other.Y), int(p.Z)-int(other.Z))
}

// Compare задаёт полный порядок: сначала x, затем y, затем z.
// Возвращает -1, 0 или 1.
func (p Pos) Compare(other Pos) int {
	switch {
	case p.X != other.X:
		return cmpInt8(p.X, other.X)
	case p.Y != other.Y:
		return cmpInt8(p.Y, other.Y)
	default:
		return cmpInt8(p.Z, other.Z)
	}
}

// Less сообщает, идёт ли p раньше other
func (p Pos) Less(other Pos) bool {
	return p.Compare(other) < 0
}

// Vec3 расширяет позицию до точки в пространстве (без потерь)
func (p Pos) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)}
}

// Array возвращает позицию как [3]float32 для вершинного буфера
func (p Pos) Array() [3]float32 {
	return [3]float32{float32(p.X), float32(p.Y), float32(p.Z)}
}

// String возвращает строковое представление позиции
func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

func cmpInt8(a, b int8) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
