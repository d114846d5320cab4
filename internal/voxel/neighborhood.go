package voxel

import "github.com/annel0/voxelmesh/internal/vec"

// CornerIndex адресует угол куба, натянутого на ячейку
type CornerIndex uint8

const (
	CornerO CornerIndex = iota // сам узел
	CornerX
	CornerY
	CornerZ
	CornerXY
	CornerXZ
	CornerYZ
	CornerXYZ

	cornerCount
)

// CornerSource отдаёт прочность узла по позиции. Реализуется *Chunk.
type CornerSource interface {
	Corner(p vec.Pos) Corner
}

// Neighborhood — прочности и позиции восьми углов куба ячейки
type Neighborhood struct {
	Strength [cornerCount]Corner
	Pos      [cornerCount]vec.Pos
}

// ResolveNeighborhood собирает углы куба ячейки p. Собственная прочность
// передаётся явно, остальные семь ищутся в src; отсутствующие — Air.
func ResolveNeighborhood(src CornerSource, p vec.Pos, own Corner) Neighborhood {
	var n Neighborhood
	n.Pos = [cornerCount]vec.Pos{
		CornerO:   p,
		CornerX:   p.PlusX(),
		CornerY:   p.PlusY(),
		CornerZ:   p.PlusZ(),
		CornerXY:  p.PlusXY(),
		CornerXZ:  p.PlusXZ(),
		CornerYZ:  p.PlusYZ(),
		CornerXYZ: p.PlusXYZ(),
	}
	n.Strength[CornerO] = own
	for i := CornerX; i < cornerCount; i++ {
		n.Strength[i] = src.Corner(n.Pos[i])
	}
	return n
}

// Neighborhood собирает углы куба ячейки, взяв собственную прочность из чанка
func (c *Chunk) Neighborhood(p vec.Pos) Neighborhood {
	return ResolveNeighborhood(c, p, c.Corner(p))
}

// Corner возвращает прочность угла по индексу
func (n Neighborhood) Corner(i CornerIndex) Corner {
	return n.Strength[i]
}

// At возвращает позицию угла по индексу
func (n Neighborhood) At(i CornerIndex) vec.Pos {
	return n.Pos[i]
}

// Count возвращает число углов с заданной прочностью
func (n Neighborhood) Count(c Corner) int {
	count := 0
	for _, s := range n.Strength {
		if s == c {
			count++
		}
	}
	return count
}
