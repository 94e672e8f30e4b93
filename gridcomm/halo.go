package gridcomm

import (
	"fmt"

	"github.com/unixpickle/dist-pde/partition"
)

// ExchangeRows performs one round of halo exchange,
// mutating buf in place.
//
// For each neighbor that exists, the worker sends its
// edge interior row and receives the neighbor's edge
// interior row into the matching halo slot: first the
// previous rank, then the next rank. Each pairwise
// exchange is a combined send-then-blocking-receive, so
// no two workers can deadlock on unmatched sends.
//
// Every rank must call ExchangeRows exactly once per
// iteration with the same iteration number.
func (c *Comm) ExchangeRows(buf []float64, p partition.Partition, iter int) {
	if len(buf) != p.BufferLen() {
		panic(fmt.Sprintf("buffer has %d elements but partition expects %d",
			len(buf), p.BufferLen()))
	}
	n := p.Cols
	if p.Prev.OK {
		c.send(p.Prev.Rank, tagHalo, iter, buf[p.SendPrev():p.SendPrev()+n])
		pkt := c.recv(p.Prev.Rank, tagHalo, iter)
		copyRow(buf[p.RecvPrev():p.RecvPrev()+n], pkt.rows)
	}
	if p.Next.OK {
		c.send(p.Next.Rank, tagHalo, iter, buf[p.SendNext():p.SendNext()+n])
		pkt := c.recv(p.Next.Rank, tagHalo, iter)
		copyRow(buf[p.RecvNext():p.RecvNext()+n], pkt.rows)
	}
}

func copyRow(dst, src []float64) {
	if len(dst) != len(src) {
		panic(fmt.Sprintf("halo row has %d elements but expected %d",
			len(src), len(dst)))
	}
	copy(dst, src)
}
