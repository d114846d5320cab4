package codec

import (
	"fmt"
	"sync"

	"github.com/annel0/voxelmesh/internal/mesh"
	"github.com/klauspost/compress/zstd"
)

// Кодер и декодер zstd потокобезопасны для EncodeAll/DecodeAll,
// поэтому создаются один раз на процесс.
var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func initZstd() error {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdErr
}

// Compress сжимает блок zstd
func Compress(data []byte) ([]byte, error) {
	if err := initZstd(); err != nil {
		return nil, fmt.Errorf("не удалось создать компрессор: %w", err)
	}
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress распаковывает блок zstd
func Decompress(data []byte) ([]byte, error) {
	if err := initZstd(); err != nil {
		return nil, fmt.Errorf("не удалось создать декомпрессор: %w", err)
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки: %w", err)
	}
	return out, nil
}

// PackMesh кодирует и сжимает сетку для хранения и кэша
func PackMesh(b *mesh.Buffer) ([]byte, error) {
	return Compress(EncodeMesh(b))
}

// UnpackMesh обратна PackMesh
func UnpackMesh(data []byte) (*mesh.Buffer, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	return DecodeMesh(raw)
}
