// Package gridcomm implements the rank-addressed
// communication a row-partitioned grid solver needs:
// paired halo-row exchange between neighbors, tree
// allreduce for convergence flags and timing sums, and
// rank-0-rooted scatter and gather of row blocks.
package gridcomm

import (
	"fmt"

	"github.com/unixpickle/dist-pde/simulator"
	"github.com/unixpickle/essentials"
)

// A Comm is one worker's view of the process group.
// Every worker in the group holds a Comm with the same
// port list, fixed for the lifetime of the run.
type Comm struct {
	// Handle is the worker's main Goroutine's handle on
	// the event loop.
	Handle *simulator.Handle

	// Port is the current worker's port.
	Port *simulator.Port

	// Ports contains ports to all the workers in the
	// group, indexed by rank.
	Ports []*simulator.Port

	// Network is the network connecting the workers.
	Network simulator.Network

	rank int

	// Packets that arrived while waiting for a different
	// tag. Consumed before polling the port again.
	held []*packet
}

// Spawn creates one node, port and Comm per rank and
// calls f for each rank in its own Goroutine.
func Spawn(loop *simulator.EventLoop, network simulator.Network, size int,
	f func(c *Comm)) {
	ports := make([]*simulator.Port, size)
	for i := range ports {
		ports[i] = simulator.NewNode().Port(loop)
	}
	for i := range ports {
		rank := i
		loop.Go(func(h *simulator.Handle) {
			f(&Comm{
				Handle:  h,
				Port:    ports[rank],
				Ports:   ports,
				Network: network,
				rank:    rank,
			})
		})
	}
}

// Rank returns the current worker's rank.
func (c *Comm) Rank() int {
	return c.rank
}

// Size gets the number of workers in the group.
func (c *Comm) Size() int {
	return len(c.Ports)
}

// A packetTag identifies which protocol phase a packet
// belongs to, so that traffic from different phases can
// never cross-match under a reordering network.
type packetTag int

const (
	tagScatter packetTag = iota
	tagHalo
	tagReduce
	tagGather
)

func (p packetTag) String() string {
	switch p {
	case tagScatter:
		return "scatter"
	case tagHalo:
		return "halo"
	case tagReduce:
		return "reduce"
	case tagGather:
		return "gather"
	}
	return fmt.Sprintf("packetTag(%d)", int(p))
}

// A packet is one tagged row-data transfer.
type packet struct {
	tag  packetTag
	iter int
	src  int
	rows []float64
}

func (p *packet) size() float64 {
	// 8 bytes per sample plus a small header.
	return float64(len(p.rows)*8) + 16.0
}

// send sends rows to the destination rank.
//
// The payload is copied before it enters the network, so
// the caller may keep mutating its buffer.
func (c *Comm) send(dst int, tag packetTag, iter int, rows []float64) {
	payload := append([]float64{}, rows...)
	pkt := &packet{tag: tag, iter: iter, src: c.rank, rows: payload}
	c.Network.Send(c.Handle, &simulator.Message{
		Source:  c.Port,
		Dest:    c.Ports[dst],
		Message: pkt,
		Size:    pkt.size(),
	})
}

// recv blocks until a packet with the given tag and
// iteration arrives from src (or from any rank, if src is
// AnySource). Packets for other phases are held aside in
// arrival order.
func (c *Comm) recv(src int, tag packetTag, iter int) *packet {
	match := func(p *packet) bool {
		return p.tag == tag && p.iter == iter &&
			(src == AnySource || p.src == src)
	}
	for i, p := range c.held {
		if match(p) {
			essentials.OrderedDelete(&c.held, i)
			return p
		}
	}
	for {
		msg := c.Port.Recv(c.Handle)
		p := msg.Message.(*packet)
		if match(p) {
			return p
		}
		c.held = append(c.held, p)
	}
}

// AnySource matches a packet from any rank.
const AnySource = -1
