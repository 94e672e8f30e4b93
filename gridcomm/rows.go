package gridcomm

import (
	"fmt"

	"github.com/unixpickle/dist-pde/partition"
)

// ScatterGrid distributes the initial grid from rank 0 to
// every worker and returns this worker's local buffer,
// sized to its partition (interior rows plus halos).
//
// Only rank 0 reads global; other ranks may pass nil.
// The per-rank slice the root sends and the length each
// worker expects both derive from the same Partition
// values, so the transfer sizes always agree.
func (c *Comm) ScatterGrid(global []float64, parts []partition.Partition) []float64 {
	p := parts[c.rank]
	if c.rank == 0 {
		rows := parts[len(parts)-1].RowStart + parts[len(parts)-1].RowCount
		if len(global) != rows*p.Cols {
			panic(fmt.Sprintf("grid has %d elements but partitions cover %d",
				len(global), rows*p.Cols))
		}
		for _, peer := range parts[1:] {
			start := peer.GlobalStart()
			c.send(peer.Rank, tagScatter, 0, global[start:start+peer.BufferLen()])
		}
		local := make([]float64, p.BufferLen())
		copy(local, global[:p.BufferLen()])
		return local
	}

	pkt := c.recv(0, tagScatter, 0)
	if len(pkt.rows) != p.BufferLen() {
		panic(fmt.Sprintf("rank %d received %d elements but expected %d",
			c.rank, len(pkt.rows), p.BufferLen()))
	}
	return pkt.rows
}

// GatherGrid collects every worker's interior rows at
// rank 0 and returns the assembled grid there; all other
// ranks return nil.
//
// Halo rows are excluded from each contribution, so the
// assembled grid contains every global row exactly once,
// in rank order.
func (c *Comm) GatherGrid(local []float64, parts []partition.Partition, iter int) []float64 {
	p := parts[c.rank]
	if c.rank != 0 {
		c.send(0, tagGather, iter, p.Interior(local))
		return nil
	}

	last := parts[len(parts)-1]
	global := make([]float64, (last.RowStart+last.RowCount)*p.Cols)
	copy(global[p.RowStart*p.Cols:], p.Interior(local))
	for range parts[1:] {
		pkt := c.recv(AnySource, tagGather, iter)
		peer := parts[pkt.src]
		if len(pkt.rows) != peer.RowCount*peer.Cols {
			panic(fmt.Sprintf("rank %d contributed %d elements but owns %d",
				pkt.src, len(pkt.rows), peer.RowCount*peer.Cols))
		}
		copy(global[peer.RowStart*peer.Cols:], pkt.rows)
	}
	return global
}
