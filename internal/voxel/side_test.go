package voxel

import (
	"testing"

	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allCorners = [3]Corner{Air, Weak, Strong}

func TestClassifyPattern_AllCombinations(t *testing.T) {
	quads, triangles, none := 0, 0, 0

	for _, o := range allCorners {
		for _, first := range allCorners {
			for _, diag := range allCorners {
				for _, second := range allCorners {
					p := [4]Corner{o, first, diag, second}
					shape, dropped := ClassifyPattern(p)

					air, weak := 0, 0
					for _, c := range p {
						switch c {
						case Air:
							air++
						case Weak:
							weak++
						}
					}

					switch {
					case air == 0 && weak == 0:
						assert.Equal(t, ShapeQuad, shape, "%v", p)
						assert.Equal(t, -1, dropped)
						quads++
					case air == 0 && weak == 1:
						assert.Equal(t, ShapeTriangle, shape, "%v", p)
						assert.Equal(t, Weak, p[dropped], "отброшен должен быть слабый угол")
						triangles++
					default:
						assert.Equal(t, ShapeNone, shape, "%v", p)
						none++
					}
				}
			}
		}
	}

	assert.Equal(t, 81, quads+triangles+none)
	assert.Equal(t, 1, quads)
	assert.Equal(t, 4, triangles)
	assert.Equal(t, 76, none)
}

func TestClassifySide_Table(t *testing.T) {
	o := vec.MustPos(0, 0, 0)
	tests := []struct {
		name   string
		weakAt CornerIndex
		axis   Axis
		shape  Shape
		points []vec.Pos
	}{
		{"x все сильные", cornerCount, AxisX, ShapeQuad,
			[]vec.Pos{o, o.PlusY(), o.PlusYZ(), o.PlusZ()}},
		{"y все сильные", cornerCount, AxisY, ShapeQuad,
			[]vec.Pos{o, o.PlusX(), o.PlusXZ(), o.PlusZ()}},
		{"z все сильные", cornerCount, AxisZ, ShapeQuad,
			[]vec.Pos{o, o.PlusX(), o.PlusXY(), o.PlusY()}},
		{"x слабый o", CornerO, AxisX, ShapeTriangle,
			[]vec.Pos{o.PlusY(), o.PlusYZ(), o.PlusZ()}},
		{"x слабый first", CornerY, AxisX, ShapeTriangle,
			[]vec.Pos{o, o.PlusYZ(), o.PlusZ()}},
		{"y слабый diag", CornerXZ, AxisY, ShapeTriangle,
			[]vec.Pos{o, o.PlusX(), o.PlusZ()}},
		{"z слабый second", CornerY, AxisZ, ShapeTriangle,
			[]vec.Pos{o, o.PlusX(), o.PlusXY()}},
		{"слабый угол вне грани не влияет", CornerXYZ, AxisZ, ShapeQuad,
			[]vec.Pos{o, o.PlusX(), o.PlusXY(), o.PlusY()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			for i, p := range ResolveNeighborhood(Empty(), o, Strong).Pos {
				c := Strong
				if CornerIndex(i) == tt.weakAt {
					c = Weak
				}
				require.NoError(t, b.SetPos(p, NewCell(MatterNone, MatterNone, MatterNone, c)))
			}

			side := ClassifySide(tt.axis, b.Build().Neighborhood(o))
			assert.Equal(t, tt.shape, side.Shape)
			assert.Equal(t, tt.points, side.Vertices())
		})
	}
}

func TestClassifySide_AirBlocksFace(t *testing.T) {
	// Единственная ячейка в пустоте: все соседи — воздух
	ch := IsolatedCell()
	n := ch.Neighborhood(vec.MustPos(0, 0, 0))
	for _, axis := range Axes {
		side := ClassifySide(axis, n)
		assert.Equal(t, ShapeNone, side.Shape, "ось %s", axis)
		assert.Nil(t, side.Vertices())
	}
}

func TestSideCorners_Rotation(t *testing.T) {
	assert.Equal(t, [4]CornerIndex{CornerO, CornerY, CornerYZ, CornerZ}, SideCorners(AxisX))
	assert.Equal(t, [4]CornerIndex{CornerO, CornerX, CornerXZ, CornerZ}, SideCorners(AxisY))
	assert.Equal(t, [4]CornerIndex{CornerO, CornerX, CornerXY, CornerY}, SideCorners(AxisZ))
}
