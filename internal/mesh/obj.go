package mesh

import (
	"bufio"
	"fmt"
	"io"
)

// WriteOBJ выгружает буфер в формате Wavefront OBJ
func WriteOBJ(w io.Writer, b *Buffer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# voxelmesh: %d vertices, %d triangles\n", b.VertexCount(), b.TriangleCount())
	for _, p := range b.Positions {
		fmt.Fprintf(bw, "v %g %g %g\n", p[0], p[1], p[2])
	}
	for _, uv := range b.UVs {
		fmt.Fprintf(bw, "vt %g %g\n", uv[0], uv[1])
	}
	for _, n := range b.Normals {
		fmt.Fprintf(bw, "vn %g %g %g\n", n[0], n[1], n[2])
	}
	// OBJ индексирует с единицы
	for i := 0; i+2 < len(b.Indices); i += 3 {
		a, c, d := b.Indices[i]+1, b.Indices[i+1]+1, b.Indices[i+2]+1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, c, c, c, d, d, d)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("ошибка записи OBJ: %w", err)
	}
	return nil
}
