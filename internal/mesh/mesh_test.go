package mesh

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/annel0/voxelmesh/internal/ir"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(x, y, z int) vec.Pos { return vec.MustPos(x, y, z) }

func TestBuild_TriangleCounts(t *testing.T) {
	cases := []struct {
		name      string
		chunk     *voxel.Chunk
		triangles int
	}{
		{"solid_cube", voxel.SolidCube(), 6 * 4},
		{"weak_corner", voxel.SolidCubeWeakCorner(), 3*4 + 3*2},
		{"three_weak", voxel.SolidCube3WeakCorners(), 1*4 + 2*2},
		{"on_plane", voxel.SolidCubeOnPlane(), 13*4 + 1*2},
		{"isolated", voxel.IsolatedCell(), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf, rep := Build(ir.Build(tc.chunk))
			assert.Equal(t, tc.triangles, buf.TriangleCount())
			assert.Equal(t, tc.triangles*3, buf.VertexCount())
			assert.Len(t, buf.Normals, buf.VertexCount())
			assert.Len(t, buf.UVs, buf.VertexCount())
			assert.Zero(t, rep.Degenerate)
		})
	}
}

func TestBuild_QuadLayout(t *testing.T) {
	c := &ir.ChunkIR{Quads: []ir.Quad{{
		Matter: voxel.MatterDirt,
		A:      p(1, 1, 1), B: p(1, 2, 1), C: p(1, 2, 2), D: p(1, 1, 2),
	}}}

	buf, _ := Build(c)
	faces := buf.Triangles()
	require.Len(t, faces, 4)

	a, b, cc, d := [3]float32{1, 1, 1}, [3]float32{1, 2, 1}, [3]float32{1, 2, 2}, [3]float32{1, 1, 2}
	assert.Equal(t, [3][3]float32{a, b, cc}, faces[0].Positions)
	assert.Equal(t, [3][3]float32{a, cc, b}, faces[1].Positions)
	assert.Equal(t, [3][3]float32{a, cc, d}, faces[2].Positions)
	assert.Equal(t, [3][3]float32{a, d, cc}, faces[3].Positions)

	plusX := [3]float32{1, 0, 0}
	minusX := [3]float32{-1, 0, 0}
	assert.Equal(t, plusX, faces[0].Normals[0])
	assert.Equal(t, minusX, faces[1].Normals[0])
	assert.Equal(t, plusX, faces[2].Normals[0])
	assert.Equal(t, minusX, faces[3].Normals[0])

	// Развёртка следует за вершиной: a(0,0) b(0,1) c(1,1) d(1,0)
	assert.Equal(t, [3][2]float32{{0, 0}, {0, 1}, {1, 1}}, faces[0].UVs)
	assert.Equal(t, [3][2]float32{{0, 0}, {1, 1}, {0, 1}}, faces[1].UVs)
	assert.Equal(t, [3][2]float32{{0, 0}, {1, 1}, {1, 0}}, faces[2].UVs)
	assert.Equal(t, [3][2]float32{{0, 0}, {1, 0}, {1, 1}}, faces[3].UVs)
}

func TestBuild_DoubleSided(t *testing.T) {
	for name, ch := range voxel.ExampleChunks() {
		t.Run(name, func(t *testing.T) {
			buf, _ := Build(ir.Build(ch))
			faces := buf.Triangles()
			require.Zero(t, len(faces)%2)

			// Треугольники идут парами: та же тройка точек, обратный обход, противоположная нормаль
			for i := 0; i < len(faces); i += 2 {
				front, back := faces[i], faces[i+1]
				assert.Equal(t, front.Positions[0], back.Positions[0])
				assert.Equal(t, front.Positions[1], back.Positions[2])
				assert.Equal(t, front.Positions[2], back.Positions[1])

				n := mgl32.Vec3(front.Normals[0])
				m := mgl32.Vec3(back.Normals[0])
				assert.InDelta(t, 1.0, float64(n.Len()), 1e-6)
				assert.True(t, n.Add(m).ApproxEqual(mgl32.Vec3{}), "нормали %v и %v не противоположны", n, m)
			}
		})
	}
}

func TestBuild_NormalsMatchWinding(t *testing.T) {
	buf, _ := Build(ir.Build(voxel.SolidCubeOnPlane()))
	for _, f := range buf.Triangles() {
		a, b, c := mgl32.Vec3(f.Positions[0]), mgl32.Vec3(f.Positions[1]), mgl32.Vec3(f.Positions[2])
		want := b.Sub(a).Cross(c.Sub(a)).Normalize()
		for _, n := range f.Normals {
			assert.True(t, want.ApproxEqual(mgl32.Vec3(n)))
		}
	}
}

func TestBuild_DegenerateSkipped(t *testing.T) {
	c := &ir.ChunkIR{
		Quads: []ir.Quad{{
			Matter: voxel.MatterStone,
			A:      p(0, 0, 0), B: p(1, 0, 0), C: p(2, 0, 0), D: p(0, 1, 0),
		}},
		Triangles: []ir.Triangle{{
			Matter: voxel.MatterStone,
			A:      p(0, 0, 0), B: p(0, 0, 0), C: p(1, 1, 1),
		}},
	}

	buf, rep := Build(c)
	assert.Equal(t, 2, rep.Degenerate)
	assert.Zero(t, buf.TriangleCount(), "вырожденный четырёхугольник не даёт ни одной половины")
	for _, n := range buf.Normals {
		v := mgl32.Vec3(n)
		assert.False(t, v.Len() != v.Len(), "NaN в нормали")
	}
}

func TestBuild_DegenerateQuadSkippedWhole(t *testing.T) {
	// (a,b,c) коллинеарны, а (a,c,d) сама по себе невырождена
	c := &ir.ChunkIR{
		Quads: []ir.Quad{
			{Matter: voxel.MatterStone, A: p(0, 0, 0), B: p(1, 0, 0), C: p(2, 0, 0), D: p(0, 1, 0)},
			{Matter: voxel.MatterStone, A: p(0, 0, 0), B: p(1, 0, 0), C: p(1, 1, 0), D: p(0, 1, 0)},
		},
	}

	buf, rep := Build(c)
	assert.Equal(t, 1, rep.Degenerate)
	require.Equal(t, 4, buf.TriangleCount())
	for _, f := range buf.Triangles() {
		for _, v := range f.Positions {
			assert.NotEqual(t, [3]float32{2, 0, 0}, v, "вершина вырожденного четырёхугольника попала в буфер")
		}
	}
}

func TestInspect_MatchesBuild(t *testing.T) {
	c := &ir.ChunkIR{
		Quads: []ir.Quad{
			{Matter: voxel.MatterStone, A: p(0, 0, 0), B: p(1, 0, 0), C: p(2, 0, 0), D: p(0, 1, 0)},
			{Matter: voxel.MatterStone, A: p(0, 0, 0), B: p(1, 0, 0), C: p(1, 1, 0), D: p(0, 1, 0)},
		},
		Triangles: []ir.Triangle{{Matter: voxel.MatterStone, A: p(0, 0, 0), B: p(0, 0, 0), C: p(1, 1, 1)}},
	}

	_, rep := Build(c)
	assert.Equal(t, rep, Inspect(c))
	assert.Zero(t, Inspect(nil).Degenerate)
}

func TestBuild_QuadHalvesShareNormal(t *testing.T) {
	c := &ir.ChunkIR{
		Quads: []ir.Quad{{Matter: voxel.MatterStone, A: p(0, 0, 0), B: p(1, 0, 0), C: p(1, 1, 0), D: p(0, 1, 0)}},
	}

	buf, _ := Build(c)
	faces := buf.Triangles()
	require.Len(t, faces, 4)
	assert.Equal(t, faces[0].Normals[0], faces[2].Normals[0])
	assert.Equal(t, faces[1].Normals[0], faces[3].Normals[0])
	assert.Equal(t, [3]float32{0, 0, 1}, faces[0].Normals[0])
}

func TestBuild_Idempotent(t *testing.T) {
	ch := voxel.SolidCubeWeakCorner()
	first, _ := Build(ir.Build(ch))
	second, _ := Build(ir.Build(ch))

	assert.Equal(t, faceKeys(first), faceKeys(second))
}

func TestBuild_NilAndEmpty(t *testing.T) {
	buf, rep := Build(nil)
	assert.Zero(t, buf.TriangleCount())
	assert.Zero(t, rep.Degenerate)

	buf, _ = Build(ir.Build(voxel.Empty()))
	assert.NotNil(t, buf.Indices)
	assert.Zero(t, buf.VertexCount())
}

func TestWriteOBJ(t *testing.T) {
	buf, _ := Build(ir.Build(voxel.SolidCube()))

	var out bytes.Buffer
	require.NoError(t, WriteOBJ(&out, buf))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	count := map[string]int{}
	for _, l := range lines {
		count[strings.Fields(l)[0]]++
	}
	assert.Equal(t, 72, count["v"])
	assert.Equal(t, 72, count["vt"])
	assert.Equal(t, 72, count["vn"])
	assert.Equal(t, 24, count["f"])
	assert.Contains(t, out.String(), "f 1/1/1 2/2/2 3/3/3\n")
}

func faceKeys(b *Buffer) []string {
	keys := make([]string, 0, b.TriangleCount())
	for _, f := range b.Triangles() {
		keys = append(keys, fmt.Sprintf("%v %v", f.Positions, f.Normals))
	}
	sort.Strings(keys)
	return keys
}
