package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/annel0/voxelmesh/internal/codec"
	"github.com/annel0/voxelmesh/internal/mesh"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/annel0/voxelmesh/internal/wireframe"
	"github.com/annel0/voxelmesh/internal/world"
	"github.com/gin-gonic/gin"
)

// maxChunkBody — предел тела PUT /api/chunks/:key
const maxChunkBody = 8 << 20

// ChunkSummary — элемент списка чанков
type ChunkSummary struct {
	Key     string `json:"key"`
	Digest  string `json:"digest"`
	Cells   int    `json:"cells"`
	Edges   int    `json:"edges"`
	Version uint64 `json:"version"`
}

// chunkFromPath разбирает :key и достаёт чанк; при ошибке ответ уже записан
func (rs *RestServer) chunkFromPath(c *gin.Context) (vec.ChunkPos, *voxel.Chunk, bool) {
	pos, err := vec.ParseChunkKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return pos, nil, false
	}
	chunk, ok := rs.world.Get(pos)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Чанк не найден"})
		return pos, nil, false
	}
	return pos, chunk, true
}

func (rs *RestServer) handleListChunks(c *gin.Context) {
	positions := rs.world.Positions()
	out := make([]ChunkSummary, 0, len(positions))
	for _, pos := range positions {
		chunk, ok := rs.world.Get(pos)
		if !ok {
			continue
		}
		out = append(out, ChunkSummary{
			Key:     pos.Key(),
			Digest:  chunk.DigestHex(),
			Cells:   chunk.Len(),
			Edges:   chunk.EdgeCount(),
			Version: rs.world.Version(pos),
		})
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Список чанков", Data: out})
}

// handleGetChunk возвращает документ чанка в формате хранения
func (rs *RestServer) handleGetChunk(c *gin.Context) {
	_, chunk, ok := rs.chunkFromPath(c)
	if !ok {
		return
	}
	c.Header("ETag", `"`+chunk.DigestHex()+`"`)
	c.JSON(http.StatusOK, codec.NewChunkDocument(chunk))
}

// handleGetIR возвращает каноничный ChunkIR
func (rs *RestServer) handleGetIR(c *gin.Context) {
	pos, _, ok := rs.chunkFromPath(c)
	if !ok {
		return
	}
	chunkIR, err := rs.mesher.BuildIR(pos)
	if err != nil {
		rs.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chunkIR.Canonical())
}

// handleGetMesh отдаёт сетку: format=json (по умолчанию), bin (protobuf wire + zstd) или obj
func (rs *RestServer) handleGetMesh(c *gin.Context) {
	pos, _, ok := rs.chunkFromPath(c)
	if !ok {
		return
	}
	res, err := rs.mesher.Extract(c.Request.Context(), pos)
	if err != nil {
		rs.respondError(c, err)
		return
	}

	c.Header("ETag", `"`+res.Digest+`"`)
	if res.Cached {
		c.Header("X-Mesh-Cache", "hit")
	} else {
		c.Header("X-Mesh-Cache", "miss")
	}

	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		c.JSON(http.StatusOK, gin.H{
			"chunk":      pos.Key(),
			"digest":     res.Digest,
			"stats":      res.Stats,
			"report":     res.Report,
			"cached":     res.Cached,
			"vertices":   res.Mesh.VertexCount(),
			"triangles":  res.Mesh.TriangleCount(),
			"mesh":       res.Mesh,
			"elapsed_us": res.Duration.Microseconds(),
		})
	case "bin":
		packed, err := codec.PackMesh(res.Mesh)
		if err != nil {
			rs.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", packed)
	case "obj":
		var buf bytes.Buffer
		if err := mesh.WriteOBJ(&buf, res.Mesh); err != nil {
			rs.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "format: json | bin | obj"})
	}
}

// handleGetWireframe возвращает отладочную проволочную модель
func (rs *RestServer) handleGetWireframe(c *gin.Context) {
	pos, chunk, ok := rs.chunkFromPath(c)
	if !ok {
		return
	}
	chunkIR, err := rs.mesher.BuildIR(pos)
	if err != nil {
		rs.respondError(c, err)
		return
	}
	rec := wireframe.NewRecorder()
	wireframe.Draw(chunk, chunkIR, rec)
	c.JSON(http.StatusOK, rec)
}

// handlePutChunk заменяет чанк документом из тела (валидируется по JSON Schema)
func (rs *RestServer) handlePutChunk(c *gin.Context) {
	pos, err := vec.ParseChunkKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxChunkBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Не удалось прочитать тело"})
		return
	}
	if len(body) > maxChunkBody {
		c.JSON(http.StatusRequestEntityTooLarge, GenericResponse{Success: false, Message: "Слишком большой чанк"})
		return
	}

	chunk, err := codec.DecodeChunkStrict(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	if rs.sink != nil {
		if err := rs.sink.SaveChunk(pos, chunk); err != nil {
			rs.respondError(c, err)
			return
		}
	}
	version := rs.world.Put(pos, chunk)
	rs.mesher.ChunkChanged(c.Request.Context(), pos)
	rs.log.Info("✏️ Чанк %s заменён (%s, версия %d)", pos, c.GetString(ctxUsername), version)

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Чанк сохранён",
		Data: ChunkSummary{
			Key:     pos.Key(),
			Digest:  chunk.DigestHex(),
			Cells:   chunk.Len(),
			Edges:   chunk.EdgeCount(),
			Version: version,
		},
	})
}

// handleRebuildChunk принудительно пересобирает сетку мимо кэша
func (rs *RestServer) handleRebuildChunk(c *gin.Context) {
	pos, _, ok := rs.chunkFromPath(c)
	if !ok {
		return
	}
	rs.mesher.Forget(c.Request.Context(), pos)
	res, err := rs.mesher.Extract(c.Request.Context(), pos)
	if err != nil {
		rs.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Сетка пересобрана",
		Data: gin.H{
			"digest":     res.Digest,
			"stats":      res.Stats,
			"report":     res.Report,
			"elapsed_us": res.Duration.Microseconds(),
		},
	})
}

// handleDeleteChunk удаляет чанк (только администратор)
func (rs *RestServer) handleDeleteChunk(c *gin.Context) {
	pos, _, ok := rs.chunkFromPath(c)
	if !ok {
		return
	}
	if rs.sink != nil {
		if err := rs.sink.DeleteChunk(pos); err != nil {
			rs.respondError(c, err)
			return
		}
	}
	rs.world.Delete(pos)
	rs.mesher.ChunkChanged(c.Request.Context(), pos)
	rs.log.Info("🗑️ Чанк %s удалён (%s)", pos, c.GetString(ctxUsername))

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк удалён"})
}

func (rs *RestServer) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, world.ErrChunkNotFound):
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Чанк не найден"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "Запрос отменён"})
	default:
		rs.log.Error("Ошибка обработки %s: %v", c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Внутренняя ошибка сервера"})
	}
}
