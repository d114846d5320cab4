package voxel

import (
	"testing"

	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/stretchr/testify/assert"
)

func TestResolveNeighborhood_Positions(t *testing.T) {
	p := vec.MustPos(3, -2, 7)
	n := ResolveNeighborhood(Empty(), p, Weak)

	assert.Equal(t, Weak, n.Corner(CornerO), "собственная прочность берётся из аргумента")
	assert.Equal(t, p, n.At(CornerO))
	assert.Equal(t, vec.MustPos(4, -2, 7), n.At(CornerX))
	assert.Equal(t, vec.MustPos(3, -1, 7), n.At(CornerY))
	assert.Equal(t, vec.MustPos(3, -2, 8), n.At(CornerZ))
	assert.Equal(t, vec.MustPos(4, -1, 7), n.At(CornerXY))
	assert.Equal(t, vec.MustPos(4, -2, 8), n.At(CornerXZ))
	assert.Equal(t, vec.MustPos(3, -1, 8), n.At(CornerYZ))
	assert.Equal(t, vec.MustPos(4, -1, 8), n.At(CornerXYZ))
}

func TestResolveNeighborhood_MissingIsAir(t *testing.T) {
	n := IsolatedCell().Neighborhood(vec.MustPos(0, 0, 0))

	assert.Equal(t, Strong, n.Corner(CornerO))
	assert.Equal(t, 7, n.Count(Air))
	assert.Equal(t, 1, n.Count(Strong))
}

func TestChunkNeighborhood_SolidCube(t *testing.T) {
	n := SolidCubeWeakCorner().Neighborhood(vec.MustPos(1, 1, 1))

	assert.Equal(t, 7, n.Count(Strong))
	assert.Equal(t, Weak, n.Corner(CornerXY))
	assert.Equal(t, vec.MustPos(2, 2, 1), n.At(CornerXY))
}
