package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/annel0/voxelmesh/internal/codec"
	"github.com/annel0/voxelmesh/internal/ir"
	"github.com/annel0/voxelmesh/internal/mesh"
	"github.com/annel0/voxelmesh/internal/vec"
	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/annel0/voxelmesh/internal/wireframe"
	"github.com/annel0/voxelmesh/internal/world"
)

func main() {
	var (
		fixture   = flag.String("fixture", "", "Built-in chunk: solid_cube, solid_cube_weak_corner, ...")
		input     = flag.String("in", "", "Chunk JSON document")
		seed      = flag.Int64("seed", 0, "Generate chunk with this seed (with -chunk)")
		chunkKey  = flag.String("chunk", "0:0:0", "Chunk position x:y:z for generation")
		size      = flag.Int("size", 16, "Generated chunk size")
		maxHeight = flag.Int("height", 24, "Generated terrain max height")
		inner     = flag.Bool("inner", false, "Enable experimental inner sides")
		objPath   = flag.String("obj", "", "Write mesh as Wavefront OBJ")
		wirePath  = flag.String("wire", "", "Write debug wireframe as JSON")
		dumpIR    = flag.Bool("ir", false, "Print canonical IR as JSON")
		list      = flag.Bool("list", false, "List built-in chunks")
	)
	flag.Parse()

	if *list {
		listFixtures()
		return
	}

	chunk, name, err := loadChunk(*fixture, *input, *seed, *chunkKey, *size, *maxHeight)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	chunkIR := ir.BuildWithOptions(chunk, ir.Options{InnerSides: *inner})
	buf, report := mesh.Build(chunkIR)
	stats := chunkIR.Stats()

	fmt.Printf("🧊 %s: cells=%d edges=%d digest=%s\n", name, chunk.Len(), chunk.EdgeCount(), chunk.DigestHex()[:12])
	fmt.Printf("   IR: quads=%d triangles=%d edges=%d\n", stats.Quads, stats.Triangles, stats.Edges)
	fmt.Printf("   Mesh: vertices=%d triangles=%d degenerate=%d\n", buf.VertexCount(), buf.TriangleCount(), report.Degenerate)

	if *dumpIR {
		if err := writeJSON(os.Stdout, chunkIR.Canonical()); err != nil {
			log.Fatalf("❌ IR dump failed: %v", err)
		}
	}

	if *objPath != "" {
		if err := writeFile(*objPath, func(w *bufio.Writer) error { return mesh.WriteOBJ(w, buf) }); err != nil {
			log.Fatalf("❌ OBJ export failed: %v", err)
		}
		fmt.Printf("✅ OBJ written to %s\n", *objPath)
	}

	if *wirePath != "" {
		rec := wireframe.NewRecorder()
		wireframe.Draw(chunk, chunkIR, rec)
		if err := writeFile(*wirePath, func(w *bufio.Writer) error { return writeJSON(w, rec) }); err != nil {
			log.Fatalf("❌ Wireframe export failed: %v", err)
		}
		fmt.Printf("✅ Wireframe written to %s (%d lines, %d spheres)\n", *wirePath, len(rec.Segments), len(rec.Spheres))
	}
}

// loadChunk выбирает источник чанка: фикстура, JSON файл или генератор
func loadChunk(fixture, input string, seed int64, key string, size, maxHeight int) (*voxel.Chunk, string, error) {
	switch {
	case fixture != "":
		ch, ok := voxel.ExampleChunks()[fixture]
		if !ok {
			return nil, "", fmt.Errorf("unknown fixture %q (see -list)", fixture)
		}
		return ch, fixture, nil

	case input != "":
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, "", err
		}
		ch, err := codec.DecodeChunkStrict(data)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", input, err)
		}
		return ch, input, nil

	case seed != 0:
		pos, err := vec.ParseChunkKey(key)
		if err != nil {
			return nil, "", err
		}
		gen, err := world.NewGenerator(seed, size, maxHeight)
		if err != nil {
			return nil, "", err
		}
		ch, err := gen.Generate(pos)
		if err != nil {
			return nil, "", err
		}
		return ch, pos.String(), nil
	}
	return nil, "", fmt.Errorf("one of -fixture, -in or -seed is required")
}

func listFixtures() {
	fixtures := voxel.ExampleChunks()
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("📋 Built-in chunks")
	for _, name := range names {
		s := ir.Build(fixtures[name]).Stats()
		fmt.Printf("  %-26s quads=%d triangles=%d edges=%d\n", name, s.Quads, s.Triangles, s.Edges)
	}
}

func writeFile(path string, fn func(w *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
