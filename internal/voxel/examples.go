package voxel

// Захардкоженные чанки для отладки и тестов. Это фикстуры, а не формат хранения.

const (
	dirt = MatterDirt
	none = MatterNone
)

type fixtureCell struct {
	x, y, z int
	cell    Cell
}

func mustFixture(cells []fixtureCell) *Chunk {
	b := NewBuilder()
	for _, fc := range cells {
		if err := b.Set(fc.x, fc.y, fc.z, fc.cell); err != nil {
			panic(err)
		}
	}
	return b.Build()
}

// cubeCells — единичный куб: 4 ячейки с гранями и 4 опорных угла
func cubeCells(support [4]Corner) []fixtureCell {
	return []fixtureCell{
		// куб
		{1, 1, 1, NewCell(dirt, dirt, dirt, Strong)},
		{1, 1, 2, NewCell(none, none, dirt, Strong)},
		{2, 1, 1, NewCell(dirt, none, none, Strong)},
		{1, 2, 1, NewCell(none, dirt, none, Strong)},
		// опорные углы
		{2, 1, 2, NewCell(none, none, none, support[0])},
		{2, 2, 2, NewCell(none, none, none, support[1])},
		{2, 2, 1, NewCell(none, none, none, support[2])},
		{1, 2, 2, NewCell(none, none, none, support[3])},
	}
}

// SolidCube — сплошной единичный куб
func SolidCube() *Chunk {
	return mustFixture(cubeCells([4]Corner{Strong, Strong, Strong, Strong}))
}

// SolidCubeWeakCorner — куб с ослабленным опорным углом (2,2,1)
func SolidCubeWeakCorner() *Chunk {
	return mustFixture(cubeCells([4]Corner{Strong, Strong, Weak, Strong}))
}

// SolidCube3WeakCorners — куб с тремя ослабленными опорными углами
func SolidCube3WeakCorners() *Chunk {
	return mustFixture(cubeCells([4]Corner{Strong, Weak, Weak, Weak}))
}

// SolidCubeOnPlane — куб на площадке с одним слабым углом
func SolidCubeOnPlane() *Chunk {
	cells := []fixtureCell{
		// нижний ряд
		{0, 0, 0, NewCell(dirt, none, none, Strong)},
		{0, 0, 1, NewCell(dirt, none, none, Strong)},
		{0, 0, 2, NewCell(dirt, none, none, Strong)},
		{0, 0, 3, NewCell(dirt, none, none, Strong)},
		{0, 0, 4, NewCell(none, none, dirt, Strong)},
		// площадка
		{0, 1, 0, NewCell(none, dirt, none, Strong)},
		{0, 1, 1, NewCell(none, dirt, none, Strong)},
		{0, 1, 2, NewCell(none, dirt, none, Strong)},
		{0, 1, 3, NewCell(none, dirt, none, Strong)},
		{0, 1, 4, NewCell(none, none, none, Strong)},
		{1, 1, 0, NewCell(none, dirt, none, Strong)},
		{2, 1, 0, NewCell(none, dirt, none, Strong)},
		{2, 1, 1, NewCell(none, dirt, none, Strong)},
		{2, 1, 2, NewCell(none, dirt, none, Strong)},
		{3, 1, 0, NewCell(none, dirt, none, Strong)},
		// слабый угол
		{1, 1, 3, NewCell(none, none, none, Weak)},
	}
	// куб сверху перезаписывает (2,1,1) и (2,1,2) площадки
	cells = append(cells, cubeCells([4]Corner{Strong, Strong, Strong, Strong})...)
	return mustFixture(cells)
}

// IsolatedCell — одна ячейка со всеми гранями в пустоте
func IsolatedCell() *Chunk {
	return mustFixture([]fixtureCell{
		{0, 0, 0, NewCell(dirt, dirt, dirt, Strong)},
	})
}

// ExampleChunks возвращает именованный набор фикстур
func ExampleChunks() map[string]*Chunk {
	return map[string]*Chunk{
		"solid_cube":               SolidCube(),
		"solid_cube_weak_corner":   SolidCubeWeakCorner(),
		"solid_cube_on_plane":      SolidCubeOnPlane(),
		"solid_cube_3weak_corners": SolidCube3WeakCorners(),
		"isolated_cell":            IsolatedCell(),
	}
}
