package wireframe

import (
	"testing"

	"github.com/annel0/voxelmesh/internal/ir"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/stretchr/testify/assert"
)

func TestDraw_SolidCube(t *testing.T) {
	ch := voxel.SolidCube()
	rec := NewRecorder()

	Draw(ch, ir.Build(ch), rec)

	assert.Len(t, rec.Spheres, 8)
	for _, s := range rec.Spheres {
		assert.Equal(t, White, s.Color)
		assert.Equal(t, CornerRadius, s.Radius)
	}
	// 6 четырёхугольников × 2 половины × 3 линии
	assert.Equal(t, 36, rec.CountLines(Green))
	assert.Zero(t, rec.CountLines(Red))
}

func TestDraw_WeakCorner(t *testing.T) {
	ch := voxel.SolidCubeWeakCorner()
	rec := NewRecorder()

	Draw(ch, ir.Build(ch), rec)

	yellow := 0
	for _, s := range rec.Spheres {
		if s.Color == Yellow {
			yellow++
			assert.Equal(t, [3]float32{2, 2, 1}, s.Center)
		}
	}
	assert.Equal(t, 1, yellow)
	assert.Equal(t, 3*6+3*3, rec.CountLines(Green))
}

func TestDraw_EdgesAndNil(t *testing.T) {
	c := &ir.ChunkIR{Edges: []ir.Edge{{
		Matter: voxel.MatterStone,
		A:      vec.MustPos(0, 0, 0),
		B:      vec.MustPos(1, 0, 0),
	}}}
	rec := NewRecorder()

	Draw(nil, c, rec)
	assert.Empty(t, rec.Spheres)
	assert.Equal(t, 1, rec.CountLines(Red))
	assert.Equal(t, [3]float32{1, 0, 0}, rec.Segments[0].B)

	rec = NewRecorder()
	Draw(voxel.IsolatedCell(), nil, rec)
	assert.Len(t, rec.Spheres, 1)
	assert.Empty(t, rec.Segments)
}

func TestCornerColor(t *testing.T) {
	assert.Equal(t, White, CornerColor(voxel.Strong))
	assert.Equal(t, Yellow, CornerColor(voxel.Weak))
	assert.Equal(t, Grey, CornerColor(voxel.Air))
}
