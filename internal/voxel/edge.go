package voxel

import "fmt"

// Edge — метаданные ребра в узле. Точка расширения: текущая логика
// извлечения рёбра не заполняет.
type Edge struct {
	Matter Matter
	Kind   EdgeKind
}

// EdgeKind — направление ребра из узла
type EdgeKind uint8

// Направления рёбер. Суффикс m — отрицательная компонента,
// ext — удвоенная компонента.
const (
	EdgeX EdgeKind = iota
	EdgeY
	EdgeZ
	EdgeXY
	EdgeXYm
	EdgeXZ
	EdgeXZm
	EdgeYZ
	EdgeYZm
	EdgeXextY
	EdgeXYext
	EdgeXextYm
	EdgeXYmext
	EdgeXextZ
	EdgeXZext
	EdgeXextZm
	EdgeXZmext
	EdgeYextZ
	EdgeYZext
	EdgeYextZm
	EdgeYZmext
	EdgeXYZ
	EdgeXYZm
	EdgeXYmZ
	EdgeXYmZm
	EdgeXextYZ
	EdgeXYextZ
	EdgeXYZext
	EdgeXextYZm
	EdgeXYextZm
	EdgeXYZmext
	EdgeXextYmZ
	EdgeXYmextZ
	EdgeXYmZext
	EdgeXextYmZm
	EdgeXYmextZm
	EdgeXYmZmext

	edgeKindCount
)

var edgeOffsets = [edgeKindCount][3]int8{
	EdgeX:        {1, 0, 0},
	EdgeY:        {0, 1, 0},
	EdgeZ:        {0, 0, 1},
	EdgeXY:       {1, 1, 0},
	EdgeXYm:      {1, -1, 0},
	EdgeXZ:       {1, 0, 1},
	EdgeXZm:      {1, 0, -1},
	EdgeYZ:       {0, 1, 1},
	EdgeYZm:      {0, 1, -1},
	EdgeXextY:    {2, 1, 0},
	EdgeXYext:    {1, 2, 0},
	EdgeXextYm:   {2, -1, 0},
	EdgeXYmext:   {1, -2, 0},
	EdgeXextZ:    {2, 0, 1},
	EdgeXZext:    {1, 0, 2},
	EdgeXextZm:   {2, 0, -1},
	EdgeXZmext:   {1, 0, -2},
	EdgeYextZ:    {0, 2, 1},
	EdgeYZext:    {0, 1, 2},
	EdgeYextZm:   {0, 2, -1},
	EdgeYZmext:   {0, 1, -2},
	EdgeXYZ:      {1, 1, 1},
	EdgeXYZm:     {1, 1, -1},
	EdgeXYmZ:     {1, -1, 1},
	EdgeXYmZm:    {1, -1, -1},
	EdgeXextYZ:   {2, 1, 1},
	EdgeXYextZ:   {1, 2, 1},
	EdgeXYZext:   {1, 1, 2},
	EdgeXextYZm:  {2, 1, -1},
	EdgeXYextZm:  {1, 2, -1},
	EdgeXYZmext:  {1, 1, -2},
	EdgeXextYmZ:  {2, -1, 1},
	EdgeXYmextZ:  {1, -2, 1},
	EdgeXYmZext:  {1, -1, 2},
	EdgeXextYmZm: {2, -1, -1},
	EdgeXYmextZm: {1, -2, -1},
	EdgeXYmZmext: {1, -1, -2},
}

// EdgeKindCount — число различимых направлений
const EdgeKindCount = int(edgeKindCount)

// Valid проверяет, что направление известно
func (k EdgeKind) Valid() bool { return k < edgeKindCount }

// Offset возвращает вектор направления ребра
func (k EdgeKind) Offset() [3]int8 {
	if !k.Valid() {
		return [3]int8{}
	}
	return edgeOffsets[k]
}

// String возвращает направление в виде "(dx,dy,dz)"
func (k EdgeKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("edge(%d)", uint8(k))
	}
	o := edgeOffsets[k]
	return fmt.Sprintf("(%d,%d,%d)", o[0], o[1], o[2])
}
