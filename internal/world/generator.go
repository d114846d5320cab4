package world

import (
	"fmt"

	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/aquilax/go-perlin"
)

// Доли высоты для выбора материала верхней грани
const (
	SandMax   = 0.30 // Ниже - песок
	StoneFrom = 0.75 // Выше - камень
)

// Generator строит чанки по карте высот из шума Перлина.
// Твёрдые блоки занимают y < h(x,z); генератор выдаёт только поверхность:
// верхние грани столбцов и боковые грани на перепадах высот.
type Generator struct {
	Seed       int64   // Сид для генерации шума
	Size       int     // Блоков по стороне чанка
	MaxHeight  int     // Высота не превышает MaxHeight-1
	NoiseScale float64 // Масштаб шума (сглаженность рельефа)
	WeakRate   float64 // Доля поверхностных узлов со срезанной фаской

	noise *perlin.Perlin
}

// NewGenerator создаёт генератор с собственным экземпляром шума
func NewGenerator(seed int64, size, maxHeight int) (*Generator, error) {
	if size <= 0 || size > 120 {
		return nil, fmt.Errorf("размер чанка %d вне диапазона [1,120]", size)
	}
	if maxHeight < 2 || maxHeight > 120 {
		return nil, fmt.Errorf("максимальная высота %d вне диапазона [2,120]", maxHeight)
	}

	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Generator{
		Seed:       seed,
		Size:       size,
		MaxHeight:  maxHeight,
		NoiseScale: 0.05,
		WeakRate:   0.1,
		noise:      perlin.NewPerlin(alpha, beta, n, seed),
	}, nil
}

// Height возвращает высоту глобального столбца, в [1, MaxHeight-1]
func (g *Generator) Height(gx, gz int) int {
	v := g.noise.Noise2D(float64(gx)*g.NoiseScale, float64(gz)*g.NoiseScale)
	// Noise2D даёт примерно [-1,1]
	norm := (v + 1) / 2
	h := 1 + int(norm*float64(g.MaxHeight-2))
	if h < 1 {
		h = 1
	}
	if h > g.MaxHeight-1 {
		h = g.MaxHeight - 1
	}
	return h
}

func (g *Generator) topMatter(h int) voxel.Matter {
	frac := float64(h) / float64(g.MaxHeight)
	switch {
	case frac < SandMax:
		return voxel.MatterSand
	case frac >= StoneFrom:
		return voxel.MatterStone
	default:
		return voxel.MatterDirt
	}
}

// Generate строит чанк. Мир — один слой чанков по y: для Y != 0 чанк пуст.
// Грани на границе x=0 (z=0) с соседним чанком принадлежат этому чанку,
// на границе x=Size (z=Size) — соседу.
func (g *Generator) Generate(pos vec.ChunkPos) (*voxel.Chunk, error) {
	if pos.Y != 0 {
		return voxel.Empty(), nil
	}

	size := g.Size
	baseX, baseZ := int(pos.X)*size, int(pos.Z)*size

	// Высоты столбцов [-1, size) — нужен сосед слева/спереди
	heights := make([][]int, size+1)
	for i := range heights {
		heights[i] = make([]int, size+1)
		for k := range heights[i] {
			heights[i][k] = g.Height(baseX+i-1, baseZ+k-1)
		}
	}
	h := func(x, z int) int { return heights[x+1][z+1] }

	cells := make(map[[3]int]voxel.Cell)
	corners := make(map[[3]int]struct{})
	face := func(axis voxel.Axis, x, y, z int, m voxel.Matter) {
		key := [3]int{x, y, z}
		c := cells[key]
		switch axis {
		case voxel.AxisX:
			c.X = m
			for _, d := range [][3]int{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 1}} {
				corners[[3]int{x + d[0], y + d[1], z + d[2]}] = struct{}{}
			}
		case voxel.AxisY:
			c.Y = m
			for _, d := range [][3]int{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}} {
				corners[[3]int{x + d[0], y + d[1], z + d[2]}] = struct{}{}
			}
		case voxel.AxisZ:
			c.Z = m
			for _, d := range [][3]int{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}} {
				corners[[3]int{x + d[0], y + d[1], z + d[2]}] = struct{}{}
			}
		}
		cells[key] = c
	}

	for x := 0; x < size; x++ {
		for z := 0; z < size; z++ {
			top := h(x, z)
			face(voxel.AxisY, x, top, z, g.topMatter(top))

			// Перепад с соседом по -x: грань в плоскости x
			lo, hi := minMax(h(x-1, z), top)
			for y := lo; y < hi; y++ {
				face(voxel.AxisX, x, y, z, voxel.MatterStone)
			}
			// Перепад с соседом по -z
			lo, hi = minMax(h(x, z-1), top)
			for y := lo; y < hi; y++ {
				face(voxel.AxisZ, x, y, z, voxel.MatterStone)
			}
		}
	}

	// Фаски: только узлы с чётными глобальными x и z на вершине своего
	// столбца, так что одна грань никогда не получает два слабых угла.
	// Решение зависит лишь от глобального узла, поэтому узлы на шве
	// (локальные x или z = size) совпадают у обоих соседних чанков.
	weak := make(map[[3]int]bool)
	for x := 0; x <= size; x++ {
		for z := 0; z <= size; z++ {
			gx, gz := baseX+x, baseZ+z
			if gx&1 != 0 || gz&1 != 0 || !g.weakAt(gx, gz) {
				continue
			}
			weak[[3]int{x, g.Height(gx, gz), z}] = true
		}
	}

	b := voxel.NewBuilder()
	for key := range corners {
		c := cells[key]
		c.Corner = voxel.Strong
		if weak[key] {
			c.Corner = voxel.Weak
		}
		cells[key] = c
	}
	for key, c := range cells {
		if err := b.Set(key[0], key[1], key[2], c); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// weakAt решает, срезан ли узел на вершине глобального столбца (gx, gz)
func (g *Generator) weakAt(gx, gz int) bool {
	u := float64(nodeHash(g.Seed, gx, gz)>>11) / (1 << 53)
	return u < g.WeakRate
}

// nodeHash перемешивает сид и глобальные координаты столбца.
// Координаты приводятся к 64 битам до арифметики.
func nodeHash(seed int64, gx, gz int) uint64 {
	h := splitmix64(uint64(seed))
	h = splitmix64(h ^ uint64(int64(gx)))
	return splitmix64(h ^ uint64(int64(gz)))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
