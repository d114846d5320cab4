package vec

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkPos представляет координаты чанка в мире (индексы чанков, не вокселей)
type ChunkPos struct {
	X, Y, Z int32
}

// Key возвращает ключ чанка в формате "x:y:z" для хранилища и API
func (c ChunkPos) Key() string {
	return fmt.Sprintf("%d:%d:%d", c.X, c.Y, c.Z)
}

// String возвращает строковое представление координат чанка
func (c ChunkPos) String() string {
	return fmt.Sprintf("chunk(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Less задаёт порядок обхода чанков
func (c ChunkPos) Less(other ChunkPos) bool {
	if c.X != other.X {
		return c.X < other.X
	}
	if c.Y != other.Y {
		return c.Y < other.Y
	}
	return c.Z < other.Z
}

// ParseChunkKey разбирает ключ вида "x:y:z"
func ParseChunkKey(key string) (ChunkPos, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		return ChunkPos{}, fmt.Errorf("неверный ключ чанка %q: ожидается x:y:z", key)
	}

	var out [3]int32
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return ChunkPos{}, fmt.Errorf("неверный ключ чанка %q: %w", key, err)
		}
		out[i] = int32(v)
	}
	return ChunkPos{X: out[0], Y: out[1], Z: out[2]}, nil
}

// Column представляет столбец мира (x,z) для карты высот генератора
type Column struct {
	X, Z int
}

// ToChunk возвращает координаты чанка для глобального столбца
func (c Column) ToChunk(size int) (int32, int32) {
	return int32(floorDiv(c.X, size)), int32(floorDiv(c.Z, size))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
