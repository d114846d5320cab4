package voxel

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/voxelmesh/internal/vec"
)

// ErrInvalidCell возвращается при попытке сохранить ячейку с неизвестными значениями
var ErrInvalidCell = errors.New("некорректная ячейка")

// Entry — пара (позиция, ячейка); в таком виде чанк сериализуется
type Entry struct {
	Pos  vec.Pos
	Cell Cell
}

// Chunk — разреженная область вокселей, единица извлечения сетки.
// После сборки чанк неизменяем: экстракция только читает его.
type Chunk struct {
	cells  map[vec.Pos]Cell
	edges  map[vec.Pos][]Edge
	digest [32]byte
}

// Corner возвращает прочность узла; отсутствующий узел — Air
func (c *Chunk) Corner(p vec.Pos) Corner {
	if c == nil {
		return Air
	}
	return c.cells[p].Corner
}

// Cell возвращает ячейку по позиции
func (c *Chunk) Cell(p vec.Pos) (Cell, bool) {
	if c == nil {
		return Cell{}, false
	}
	cell, ok := c.cells[p]
	return cell, ok
}

// Len возвращает число сохранённых ячеек
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.cells)
}

// Edges возвращает метаданные рёбер узла (точка расширения, обычно пусто)
func (c *Chunk) Edges(p vec.Pos) []Edge {
	if c == nil {
		return nil
	}
	edges := c.edges[p]
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// EdgeCount возвращает общее число объявленных рёбер
func (c *Chunk) EdgeCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, edges := range c.edges {
		n += len(edges)
	}
	return n
}

// Each обходит ячейки в порядке карты (порядок не гарантирован)
func (c *Chunk) Each(fn func(p vec.Pos, cell Cell)) {
	if c == nil {
		return
	}
	for p, cell := range c.cells {
		fn(p, cell)
	}
}

// Positions возвращает отсортированный список позиций
func (c *Chunk) Positions() []vec.Pos {
	if c == nil {
		return nil
	}
	out := make([]vec.Pos, 0, len(c.cells))
	for p := range c.cells {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Entries возвращает пары (позиция, ячейка), отсортированные по позиции
func (c *Chunk) Entries() []Entry {
	positions := c.Positions()
	out := make([]Entry, 0, len(positions))
	for _, p := range positions {
		out = append(out, Entry{Pos: p, Cell: c.cells[p]})
	}
	return out
}

// Digest возвращает sha256 содержимого чанка; не зависит от порядка вставки
func (c *Chunk) Digest() [32]byte {
	if c == nil {
		return [32]byte{}
	}
	return c.digest
}

// DigestHex возвращает дайджест в виде hex-строки (ключ кеша)
func (c *Chunk) DigestHex() string {
	d := c.Digest()
	return fmt.Sprintf("%x", d[:])
}

func computeDigest(entries []Entry) [32]byte {
	h := sha256.New()
	var rec [8]byte
	for _, e := range entries {
		rec[0] = byte(e.Pos.X)
		rec[1] = byte(e.Pos.Y)
		rec[2] = byte(e.Pos.Z)
		rec[3] = byte(e.Cell.X)
		rec[4] = byte(e.Cell.Y)
		rec[5] = byte(e.Cell.Z)
		rec[6] = byte(e.Cell.Inner)
		rec[7] = byte(e.Cell.Corner)
		h.Write(rec[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Builder собирает чанк. Некорректные координаты отклоняются сразу,
// до извлечения сетки.
type Builder struct {
	cells map[vec.Pos]Cell
	edges map[vec.Pos][]Edge
}

// NewBuilder создаёт пустой сборщик
func NewBuilder() *Builder {
	return &Builder{
		cells: make(map[vec.Pos]Cell),
		edges: make(map[vec.Pos][]Edge),
	}
}

// Set сохраняет ячейку по целочисленным координатам
func (b *Builder) Set(x, y, z int, cell Cell) error {
	p, err := vec.NewPos(x, y, z)
	if err != nil {
		return err
	}
	return b.SetPos(p, cell)
}

// SetPos сохраняет ячейку по позиции
func (b *Builder) SetPos(p vec.Pos, cell Cell) error {
	if !vec.InRange(int(p.X)) || !vec.InRange(int(p.Y)) || !vec.InRange(int(p.Z)) {
		return fmt.Errorf("%w: %s", vec.ErrPosOutOfRange, p)
	}
	if err := cell.Validate(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidCell, p, err)
	}
	b.cells[p] = cell
	return nil
}

// AddEdge объявляет ребро в узле
func (b *Builder) AddEdge(p vec.Pos, e Edge) error {
	if !vec.InRange(int(p.X)) || !vec.InRange(int(p.Y)) || !vec.InRange(int(p.Z)) {
		return fmt.Errorf("%w: %s", vec.ErrPosOutOfRange, p)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("неизвестное направление ребра %d", uint8(e.Kind))
	}
	b.edges[p] = append(b.edges[p], e)
	return nil
}

// Len возвращает число уже добавленных ячеек
func (b *Builder) Len() int {
	return len(b.cells)
}

// Build фиксирует содержимое. Сборщик можно продолжать использовать:
// чанк получает собственные копии карт.
func (b *Builder) Build() *Chunk {
	cells := make(map[vec.Pos]Cell, len(b.cells))
	for p, cell := range b.cells {
		cells[p] = cell
	}
	edges := make(map[vec.Pos][]Edge, len(b.edges))
	for p, list := range b.edges {
		cp := make([]Edge, len(list))
		copy(cp, list)
		edges[p] = cp
	}

	ch := &Chunk{cells: cells, edges: edges}
	ch.digest = computeDigest(ch.Entries())
	return ch
}

// FromEntries собирает чанк из списка пар
func FromEntries(entries []Entry) (*Chunk, error) {
	b := NewBuilder()
	for _, e := range entries {
		if err := b.SetPos(e.Pos, e.Cell); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Empty возвращает чанк без ячеек
func Empty() *Chunk {
	return NewBuilder().Build()
}
