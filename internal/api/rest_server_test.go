package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/voxelmesh/internal/auth"
	"github.com/annel0/voxelmesh/internal/codec"
	"github.com/annel0/voxelmesh/internal/eventbus"
	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/annel0/voxelmesh/internal/storage"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/annel0/voxelmesh/internal/world"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv   *RestServer
	world *world.World
	bus   eventbus.EventBus
	index *storage.MemoryMeshIndex
}

func newTestEnv(t *testing.T, authn *auth.Authenticator) *testEnv {
	t.Helper()
	logger := logging.NewWriterLogger("api-test", io.Discard, logging.ERROR)

	w := world.NewWorld()
	w.Put(vec.ChunkPos{}, voxel.SolidCube())
	w.Put(vec.ChunkPos{X: 1}, voxel.SolidCubeWeakCorner())

	bus := eventbus.NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })
	idx := storage.NewMemoryMeshIndex()

	mesher := world.NewMesher(w, world.MesherConfig{Bus: bus, Index: idx, Logger: logger})
	reg := prometheus.NewRegistry()
	srv := NewRestServer(Config{
		Mesher:     mesher,
		Index:      idx,
		Auth:       authn,
		Bus:        bus,
		Logger:     logger,
		Registerer: reg,
		Gatherer:   reg,
	})
	return &testEnv{srv: srv, world: w, bus: bus, index: idx}
}

func newAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()
	adminHash, err := auth.HashPassword("admin-pw")
	require.NoError(t, err)
	userHash, err := auth.HashPassword("user-pw")
	require.NoError(t, err)

	repo, err := auth.NewMemoryUserRepoFromSeeds([]auth.OperatorSeed{
		{Username: "admin", PasswordHash: adminHash, Admin: true},
		{Username: "builder", PasswordHash: userHash},
	})
	require.NoError(t, err)
	a, err := auth.NewAuthenticator(repo, []byte(strings.Repeat("s", 32)), time.Minute)
	require.NoError(t, err)
	return a
}

func (e *testEnv) do(t *testing.T, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, user, password string) string {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Username: user, Password: password})
	rec := e.do(t, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthAndServerInfo(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))

	rec = env.do(t, http.MethodGet, "/api/server", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp.Data["chunks"])

	rec = env.do(t, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListAndGetChunk(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/chunks", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []ChunkSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "0:0:0", list.Data[0].Key)
	assert.Equal(t, voxel.SolidCube().DigestHex(), list.Data[0].Digest)

	rec = env.do(t, http.MethodGet, "/api/chunks/0:0:0", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chunk, err := codec.UnmarshalChunk(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, voxel.SolidCube().DigestHex(), chunk.DigestHex())

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/chunks/zzz", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/chunks/9:9:9", "", nil).Code)
}

func TestGetIRAndWireframe(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/chunks/1:0:0/ir", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chunkIR struct {
		Quads     []json.RawMessage `json:"quads"`
		Triangles []json.RawMessage `json:"triangles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chunkIR))
	assert.Len(t, chunkIR.Quads, 3)
	assert.Len(t, chunkIR.Triangles, 3)

	rec = env.do(t, http.MethodGet, "/api/chunks/0:0:0/wireframe", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wf struct {
		Segments []json.RawMessage `json:"segments"`
		Spheres  []json.RawMessage `json:"spheres"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	assert.Len(t, wf.Spheres, voxel.SolidCube().Len())
	// 6 четырёхугольников по 2 треугольника по 3 линии
	assert.Len(t, wf.Segments, 36)
}

func TestGetMeshFormats(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/chunks/0:0:0/mesh", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Triangles int `json:"triangles"`
		Vertices  int `json:"vertices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 24, resp.Triangles)
	assert.Equal(t, 72, resp.Vertices)
	assert.Equal(t, `"`+voxel.SolidCube().DigestHex()+`"`, rec.Header().Get("ETag"))

	rec = env.do(t, http.MethodGet, "/api/chunks/0:0:0/mesh?format=bin", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	buf, err := codec.UnpackMesh(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 24, buf.TriangleCount())

	rec = env.do(t, http.MethodGet, "/api/chunks/0:0:0/mesh?format=obj", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 24, strings.Count(rec.Body.String(), "\nf "))

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/chunks/0:0:0/mesh?format=gltf", "", nil).Code)

	// Сборка попала в индекс
	rec = env.do(t, http.MethodGet, "/api/index", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.index.Count())
}

func TestMutationsRequireAuth(t *testing.T) {
	env := newTestEnv(t, newAuthenticator(t))
	doc, err := codec.MarshalChunk(voxel.IsolatedCell())
	require.NoError(t, err)

	rec := env.do(t, http.MethodPut, "/api/chunks/5:0:0", "", doc)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodPut, "/api/chunks/5:0:0", "garbage", doc)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", []byte(`{"username":"builder","password":"nope"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := env.login(t, "builder", "user-pw")
	rec = env.do(t, http.MethodPut, "/api/chunks/5:0:0", token, doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, ok := env.world.Get(vec.ChunkPos{X: 5})
	require.True(t, ok)
	assert.Equal(t, voxel.IsolatedCell().DigestHex(), got.DigestHex())

	// Документ не проходит схему
	rec = env.do(t, http.MethodPut, "/api/chunks/5:0:0", token, []byte(`{"cells":[{"pos":[0,0,0],"corner":"solid"}]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/chunks/5:0:0/rebuild", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Удаление только для администратора
	rec = env.do(t, http.MethodDelete, "/api/chunks/5:0:0", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := env.login(t, "admin", "admin-pw")
	rec = env.do(t, http.MethodDelete, "/api/chunks/5:0:0", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok = env.world.Get(vec.ChunkPos{X: 5})
	assert.False(t, ok)
}

func TestMutationsWithoutAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	doc, err := codec.MarshalChunk(voxel.SolidCube3WeakCorners())
	require.NoError(t, err)

	rec := env.do(t, http.MethodPut, "/api/chunks/0:0:0", "", doc)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/chunks/0:0:0/ir", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chunkIR struct {
		Quads     []json.RawMessage `json:"quads"`
		Triangles []json.RawMessage `json:"triangles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chunkIR))
	assert.Len(t, chunkIR.Quads, 1)
	assert.Len(t, chunkIR.Triangles, 2)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/auth/login", "", []byte(`{}`)).Code)
}

func TestEventsWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events?types=" + eventbus.EventChunkMeshed
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Подписка оформляется после апгрейда; повторяем запрос, пока событие не придёт
	got := make(chan eventbus.Envelope, 1)
	go func() {
		var ev eventbus.Envelope
		if err := conn.ReadJSON(&ev); err == nil {
			got <- ev
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		resp, err := http.Get(ts.URL + "/api/chunks/0:0:0/mesh")
		require.NoError(t, err)
		resp.Body.Close()

		select {
		case ev := <-got:
			assert.Equal(t, eventbus.EventChunkMeshed, ev.EventType)
			payload, err := eventbus.DecodeChunkMeshed(&ev)
			require.NoError(t, err)
			assert.Equal(t, "0:0:0", payload.Chunk)
			assert.Equal(t, 6, payload.Quads)
			return
		case <-deadline:
			t.Fatal("событие не получено")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
