package voxel

import (
	"errors"

	"github.com/annel0/voxelmesh/internal/vec"
)

// ErrInnerUnresolved — для шаблона углов внутренняя грань не определена
var ErrInnerUnresolved = errors.New("внутренняя грань для шаблона не определена")

// innerCuts — срез угла куба одним треугольником через трёх соседей слабого угла.
// Определены только случаи o, x, y, z.
// TODO: геометрия для слабых xy, xz, yz, xyz и многослабых шаблонов ещё не согласована.
var innerCuts = map[CornerIndex][3]CornerIndex{
	CornerO: {CornerX, CornerY, CornerZ},
	CornerX: {CornerO, CornerXY, CornerXZ},
	CornerY: {CornerO, CornerXY, CornerYZ},
	CornerZ: {CornerO, CornerXZ, CornerYZ},
}

// ClassifyInner ищет внутреннюю диагональную грань: ровно один Weak среди
// восьми углов, остальные Strong. Возвращает вершины треугольника
// или ErrInnerUnresolved.
func ClassifyInner(n Neighborhood) ([3]vec.Pos, error) {
	if n.Count(Strong) != int(cornerCount)-1 || n.Count(Weak) != 1 {
		return [3]vec.Pos{}, ErrInnerUnresolved
	}

	weakAt := CornerO
	for i := CornerO; i < cornerCount; i++ {
		if n.Strength[i] == Weak {
			weakAt = i
			break
		}
	}

	cut, ok := innerCuts[weakAt]
	if !ok {
		return [3]vec.Pos{}, ErrInnerUnresolved
	}
	return [3]vec.Pos{n.Pos[cut[0]], n.Pos[cut[1]], n.Pos[cut[2]]}, nil
}
