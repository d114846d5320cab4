package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/voxelmesh/internal/mesh"
	"google.golang.org/protobuf/encoding/protowire"
)

// Номера полей бинарного формата сетки (совместим с protobuf-сообщением
// из четырёх packed-полей)
const (
	fieldPositions protowire.Number = 1
	fieldNormals   protowire.Number = 2
	fieldUVs       protowire.Number = 3
	fieldIndices   protowire.Number = 4
)

// ErrMalformedMesh — бинарная сетка повреждена
var ErrMalformedMesh = errors.New("повреждённые данные сетки")

// EncodeMesh кодирует буфер в бинарный формат
func EncodeMesh(b *mesh.Buffer) []byte {
	out := make([]byte, 0, 16+len(b.Positions)*32+len(b.Indices)*2)
	out = appendFloats(out, fieldPositions, flatten3(b.Positions))
	out = appendFloats(out, fieldNormals, flatten3(b.Normals))
	out = appendFloats(out, fieldUVs, flatten2(b.UVs))

	var packed []byte
	for _, idx := range b.Indices {
		packed = protowire.AppendVarint(packed, uint64(idx))
	}
	out = protowire.AppendTag(out, fieldIndices, protowire.BytesType)
	out = protowire.AppendBytes(out, packed)
	return out
}

// DecodeMesh разбирает бинарный формат. Неизвестные поля пропускаются.
func DecodeMesh(data []byte) (*mesh.Buffer, error) {
	var positions, normals, uvs []float32
	indices := make([]uint32, 0)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.BytesType || num < fieldPositions || num > fieldIndices {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		payload, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
		}
		data = data[n:]

		var err error
		switch num {
		case fieldPositions:
			positions, err = consumeFloats(payload)
		case fieldNormals:
			normals, err = consumeFloats(payload)
		case fieldUVs:
			uvs, err = consumeFloats(payload)
		case fieldIndices:
			indices, err = consumeIndices(payload)
		}
		if err != nil {
			return nil, fmt.Errorf("поле %d: %w", num, err)
		}
	}

	if len(positions)%3 != 0 || len(normals)%3 != 0 || len(uvs)%2 != 0 {
		return nil, fmt.Errorf("%w: неполные векторы", ErrMalformedMesh)
	}
	buf := mesh.NewBuffer()
	buf.Positions = unflatten3(positions)
	buf.Normals = unflatten3(normals)
	buf.UVs = unflatten2(uvs)
	buf.Indices = indices

	vertices := uint32(len(buf.Positions))
	if len(buf.Normals) != len(buf.Positions) || len(buf.UVs) != len(buf.Positions) {
		return nil, fmt.Errorf("%w: разная длина атрибутов", ErrMalformedMesh)
	}
	for _, idx := range buf.Indices {
		if idx >= vertices {
			return nil, fmt.Errorf("%w: индекс %d вне буфера из %d вершин", ErrMalformedMesh, idx, vertices)
		}
	}
	return buf, nil
}

func appendFloats(out []byte, num protowire.Number, vals []float32) []byte {
	packed := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendBytes(out, packed)
}

func consumeFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: длина %d не кратна 4", ErrMalformedMesh, len(b))
	}
	out := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
		}
		out = append(out, math.Float32frombits(v))
		b = b[n:]
	}
	return out, nil
}

func consumeIndices(b []byte) ([]uint32, error) {
	out := make([]uint32, 0, len(b))
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
		}
		if v > math.MaxUint32 {
			return nil, fmt.Errorf("%w: индекс %d", ErrMalformedMesh, v)
		}
		out = append(out, uint32(v))
		b = b[n:]
	}
	return out, nil
}

func flatten3(vs [][3]float32) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func flatten2(vs [][2]float32) []float32 {
	out := make([]float32, 0, len(vs)*2)
	for _, v := range vs {
		out = append(out, v[0], v[1])
	}
	return out
}

func unflatten3(f []float32) [][3]float32 {
	out := make([][3]float32, 0, len(f)/3)
	for i := 0; i+2 < len(f); i += 3 {
		out = append(out, [3]float32{f[i], f[i+1], f[i+2]})
	}
	return out
}

func unflatten2(f []float32) [][2]float32 {
	out := make([][2]float32, 0, len(f)/2)
	for i := 0; i+1 < len(f); i += 2 {
		out = append(out, [2]float32{f[i], f[i+1]})
	}
	return out
}
