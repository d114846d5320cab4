package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *ChunkStorage {
	t.Helper()
	st, err := NewChunkStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestChunkStorage_SaveAndLoad(t *testing.T) {
	st := setupTestStorage(t)
	pos := vec.ChunkPos{X: 1, Y: -2, Z: 3}
	chunk := voxel.SolidCubeOnPlane()

	require.NoError(t, st.SaveChunk(pos, chunk))

	loaded, err := st.LoadChunk(pos)
	require.NoError(t, err)
	assert.Equal(t, chunk.DigestHex(), loaded.DigestHex())
	assert.Equal(t, chunk.Len(), loaded.Len())
}

func TestChunkStorage_NotFound(t *testing.T) {
	st := setupTestStorage(t)
	_, err := st.LoadChunk(vec.ChunkPos{X: 9})
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestChunkStorage_ListAndDelete(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	a := vec.ChunkPos{X: 1}
	b := vec.ChunkPos{X: -1}
	require.NoError(t, st.SaveChunk(a, voxel.SolidCube()))
	require.NoError(t, st.SaveChunk(b, voxel.IsolatedCell()))
	require.NoError(t, st.Store(ctx, "mesh:"+a.Key()+":aa", []byte("blob")))

	list, err := st.ListChunks()
	require.NoError(t, err)
	assert.Equal(t, []vec.ChunkPos{b, a}, list)

	require.NoError(t, st.DeleteChunk(a))
	_, err = st.LoadChunk(a)
	assert.ErrorIs(t, err, ErrChunkNotFound)
	_, err = st.Load(ctx, "mesh:"+a.Key()+":aa")
	assert.Error(t, err, "сетки удалённого чанка тоже удаляются")

	list, err = st.ListChunks()
	require.NoError(t, err)
	assert.Equal(t, []vec.ChunkPos{b}, list)
}

func TestChunkStorage_ColdStorage(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.Store(ctx, "mesh:0:0:0:ff", []byte{1, 2, 3}))
	got, err := st.Load(ctx, "mesh:0:0:0:ff")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	assert.Error(t, st.Store(ctx, "chunk:0:0:0", []byte("x")))
	_, err = st.Load(ctx, "chunk:0:0:0")
	assert.Error(t, err)
}

func TestChunkStorage_Closed(t *testing.T) {
	st, err := NewChunkStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	assert.Error(t, st.SaveChunk(vec.ChunkPos{}, voxel.SolidCube()))
	_, err = st.ListChunks()
	assert.Error(t, err)
}

func exerciseIndex(t *testing.T, idx MeshIndex) {
	ctx := context.Background()
	now := time.UnixMilli(time.Now().UnixMilli())

	_, found, err := idx.Get(ctx, "0:0:0")
	require.NoError(t, err)
	assert.False(t, found)

	rec := MeshRecord{ChunkKey: "0:0:0", Digest: "aa", Quads: 6, Vertices: 24, UpdatedAt: now}
	require.NoError(t, idx.Record(ctx, rec))
	require.NoError(t, idx.Record(ctx, MeshRecord{ChunkKey: "-1:0:0", Digest: "bb", Triangles: 1, Vertices: 3, UpdatedAt: now}))

	got, found, err := idx.Get(ctx, "0:0:0")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec.Digest, got.Digest)
	assert.Equal(t, 6, got.Quads)
	assert.True(t, now.Equal(got.UpdatedAt))

	// Перезапись по тому же ключу
	rec.Digest, rec.Quads = "cc", 3
	require.NoError(t, idx.Record(ctx, rec))
	got, _, err = idx.Get(ctx, "0:0:0")
	require.NoError(t, err)
	assert.Equal(t, "cc", got.Digest)

	list, err := idx.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "-1:0:0", list[0].ChunkKey)

	require.NoError(t, idx.Delete(ctx, "-1:0:0"))
	list, err = idx.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Error(t, idx.Record(ctx, MeshRecord{}))
}

func TestMemoryMeshIndex(t *testing.T) {
	idx := NewMemoryMeshIndex()
	exerciseIndex(t, idx)
	assert.Equal(t, 1, idx.Count())
}

func TestSQLMeshIndex_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "meshes.db")
	idx, err := OpenMeshIndex("sqlite", path)
	require.NoError(t, err)
	defer idx.Close()

	exerciseIndex(t, idx)
}

func TestOpenMeshIndex_BadDriver(t *testing.T) {
	_, err := OpenMeshIndex("postgres", "x")
	assert.Error(t, err)
	_, err = OpenMeshIndex("sqlite", "")
	assert.Error(t, err)
}
