package voxel

import (
	"encoding/json"
	"testing"

	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_DefaultAir(t *testing.T) {
	ch := SolidCube()

	assert.Equal(t, Strong, ch.Corner(vec.MustPos(1, 1, 1)))
	assert.Equal(t, Air, ch.Corner(vec.MustPos(5, 5, 5)), "отсутствующий узел должен быть воздухом")
	assert.Equal(t, Air, ch.Corner(vec.MustPos(-1, 0, 0)))

	_, ok := ch.Cell(vec.MustPos(9, 9, 9))
	assert.False(t, ok)

	var nilChunk *Chunk
	assert.Equal(t, Air, nilChunk.Corner(vec.MustPos(0, 0, 0)))
	assert.Zero(t, nilChunk.Len())
}

func TestBuilder_RejectsOutOfRange(t *testing.T) {
	b := NewBuilder()

	err := b.Set(127, 0, 0, NewCell(MatterDirt, MatterNone, MatterNone, Strong))
	assert.ErrorIs(t, err, vec.ErrPosOutOfRange)

	err = b.SetPos(vec.Pos{X: 127}, NewCell(MatterNone, MatterNone, MatterNone, Strong))
	assert.ErrorIs(t, err, vec.ErrPosOutOfRange)

	err = b.Set(0, 0, 0, Cell{Corner: Corner(9)})
	assert.ErrorIs(t, err, ErrInvalidCell)

	assert.Zero(t, b.Len(), "некорректные ячейки не должны попадать в чанк")
}

func TestBuilder_BuildIsSnapshot(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Set(0, 0, 0, NewCell(MatterDirt, MatterNone, MatterNone, Strong)))
	ch := b.Build()

	require.NoError(t, b.Set(1, 0, 0, NewCell(MatterNone, MatterNone, MatterNone, Strong)))
	assert.Equal(t, 1, ch.Len(), "собранный чанк не должен меняться вместе со сборщиком")
	assert.Equal(t, 2, b.Build().Len())
}

func TestChunk_EntriesSorted(t *testing.T) {
	entries := SolidCube().Entries()
	require.Len(t, entries, 8)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Pos.Less(entries[i].Pos))
	}
}

func TestChunk_DigestIndependentOfInsertionOrder(t *testing.T) {
	entries := SolidCubeWeakCorner().Entries()

	reversed := make([]Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	a, err := FromEntries(entries)
	require.NoError(t, err)
	b, err := FromEntries(reversed)
	require.NoError(t, err)

	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, SolidCube().Digest(), a.Digest(), "изменённый угол должен менять дайджест")
	assert.Len(t, a.DigestHex(), 64)
}

func TestChunk_Edges(t *testing.T) {
	b := NewBuilder()
	p := vec.MustPos(1, 1, 1)
	require.NoError(t, b.AddEdge(p, Edge{Matter: MatterWood, Kind: EdgeXYZ}))
	assert.Error(t, b.AddEdge(p, Edge{Kind: EdgeKind(200)}))

	ch := b.Build()
	assert.Equal(t, []Edge{{Matter: MatterWood, Kind: EdgeXYZ}}, ch.Edges(p))
	assert.Equal(t, 1, ch.EdgeCount())
	assert.Empty(t, ch.Edges(vec.MustPos(0, 0, 0)))
}

func TestEdgeKind_Offsets(t *testing.T) {
	assert.Equal(t, 37, EdgeKindCount)
	assert.Equal(t, [3]int8{1, 0, 0}, EdgeX.Offset())
	assert.Equal(t, [3]int8{1, -1, -2}, EdgeXYmZmext.Offset())
	assert.Equal(t, "(2,-1,1)", EdgeXextYmZ.String())

	seen := make(map[[3]int8]bool)
	for k := EdgeKind(0); k.Valid(); k++ {
		off := k.Offset()
		assert.False(t, seen[off], "направление %s повторяется", k)
		seen[off] = true
	}
}

func TestCornerAndMatter_Text(t *testing.T) {
	data, err := json.Marshal(struct {
		C Corner `json:"c"`
		M Matter `json:"m"`
	}{Weak, MatterWood})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"weak","m":"wood"}`, string(data))

	var c Corner
	require.NoError(t, c.UnmarshalText([]byte("strong")))
	assert.Equal(t, Strong, c)
	assert.Error(t, c.UnmarshalText([]byte("granite")))

	m, err := ParseMatter("none")
	require.NoError(t, err)
	assert.False(t, m.IsSet())
	_, err = ParseMatter("lava")
	assert.Error(t, err)
}
