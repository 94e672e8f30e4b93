// Package partition computes the contiguous row-block
// decomposition of a 2-D grid across a fixed group of
// ranked workers, including the halo rows and buffer
// offsets each worker needs for boundary exchange.
package partition

import "fmt"

// A Neighbor identifies an adjacent rank in the 1-D chain
// of row blocks. The zero value means no neighbor exists
// on that side.
type Neighbor struct {
	Rank int
	OK   bool
}

// A Partition describes one worker's share of the grid.
// It is computed once per run and never mutated.
//
// The worker's local buffer is laid out as:
//
//	[leading halo row]? [interior rows...] [trailing halo row]?
//
// where the leading halo exists iff Prev.OK and the
// trailing halo exists iff Next.OK.
type Partition struct {
	Rank int
	Size int

	// Cols is the row width in elements.
	Cols int

	// RowStart and RowCount give the interior row range
	// this worker owns within the global grid.
	RowStart int
	RowCount int

	// Prev and Next are the ranks on either side of this
	// worker in the row-block chain.
	Prev Neighbor
	Next Neighbor
}

// Split computes the partition for one rank.
//
// Rows are divided into size contiguous blocks of
// rows/size rows each, rounded down; the remainder rows
// fold into the last rank's block. Ranks 0 and size-1
// carry one halo row (trailing and leading respectively);
// every other rank carries both.
//
// Split panics if the arguments cannot produce a valid
// partition, since a bad partition is a programming error
// that would otherwise surface as a distributed hang.
func Split(rows, cols, size, rank int) Partition {
	if rows < 1 || cols < 1 {
		panic(fmt.Sprintf("invalid grid shape: %dx%d", rows, cols))
	}
	if size < 1 || size > rows {
		panic(fmt.Sprintf("cannot split %d rows across %d workers", rows, size))
	}
	if rank < 0 || rank >= size {
		panic(fmt.Sprintf("rank %d out of range [0, %d)", rank, size))
	}

	block := rows / size
	p := Partition{
		Rank:     rank,
		Size:     size,
		Cols:     cols,
		RowStart: rank * block,
		RowCount: block,
	}
	if rank == size-1 {
		// The remainder rows belong to the last block.
		p.RowCount = rows - p.RowStart
	}
	if rank > 0 {
		p.Prev = Neighbor{Rank: rank - 1, OK: true}
	}
	if rank < size-1 {
		p.Next = Neighbor{Rank: rank + 1, OK: true}
	}
	return p
}

// SplitAll computes the partitions of every rank.
func SplitAll(rows, cols, size int) []Partition {
	parts := make([]Partition, size)
	for rank := range parts {
		parts[rank] = Split(rows, cols, size, rank)
	}
	return parts
}

// HaloRows returns the number of halo rows in the local
// buffer (0, 1 or 2).
func (p Partition) HaloRows() int {
	var n int
	if p.Prev.OK {
		n++
	}
	if p.Next.OK {
		n++
	}
	return n
}

// LocalRows returns the local buffer's row count,
// interior plus halos.
func (p Partition) LocalRows() int {
	return p.RowCount + p.HaloRows()
}

// BufferLen returns the local buffer's length in
// elements.
func (p Partition) BufferLen() int {
	return p.LocalRows() * p.Cols
}

// GlobalStart returns the element offset within the
// global grid where this worker's buffer begins,
// including the leading halo row if one exists.
func (p Partition) GlobalStart() int {
	start := p.RowStart * p.Cols
	if p.Prev.OK {
		start -= p.Cols
	}
	return start
}

// SendPrev is the offset of the row sent to the previous
// rank: the first interior row, one row in from the
// leading halo.
func (p Partition) SendPrev() int {
	if !p.Prev.OK {
		panic("no previous neighbor")
	}
	return p.Cols
}

// RecvPrev is the offset of the leading halo row slot,
// filled from the previous rank's last interior row.
func (p Partition) RecvPrev() int {
	if !p.Prev.OK {
		panic("no previous neighbor")
	}
	return 0
}

// SendNext is the offset of the row sent to the next
// rank: the last interior row, one row in from the
// trailing halo.
func (p Partition) SendNext() int {
	if !p.Next.OK {
		panic("no next neighbor")
	}
	return p.BufferLen() - 2*p.Cols
}

// RecvNext is the offset of the trailing halo row slot,
// filled from the next rank's first interior row.
func (p Partition) RecvNext() int {
	if !p.Next.OK {
		panic("no next neighbor")
	}
	return p.BufferLen() - p.Cols
}

// InteriorStart returns the offset of the first interior
// element within the local buffer.
func (p Partition) InteriorStart() int {
	if p.Prev.OK {
		return p.Cols
	}
	return 0
}

// Interior slices the interior rows out of a local
// buffer, excluding all halo rows. The result aliases
// buf.
func (p Partition) Interior(buf []float64) []float64 {
	if len(buf) != p.BufferLen() {
		panic(fmt.Sprintf("buffer has %d elements but partition expects %d",
			len(buf), p.BufferLen()))
	}
	start := p.InteriorStart()
	return buf[start : start+p.RowCount*p.Cols]
}

// String returns a compact description for logging.
func (p Partition) String() string {
	return fmt.Sprintf("rank %d/%d rows [%d, %d) + %d halo",
		p.Rank, p.Size, p.RowStart, p.RowStart+p.RowCount, p.HaloRows())
}
