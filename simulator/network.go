package simulator

import (
	"math/rand"
	"sync"
)

// A Node represents a machine on a virtual network.
type Node struct {
	unused int
}

// NewNode creates a new, unique Node.
func NewNode() *Node {
	return &Node{}
}

// Port creates a new Port connected to the Node.
func (n *Node) Port(loop *EventLoop) *Port {
	return &Port{Node: n, Incoming: loop.Stream()}
}

// A Port identifies a point of communication on a Node.
// Data is sent from Ports and received on Ports.
type Port struct {
	// The Node to which the Port is attached.
	Node *Node

	// A stream of *Message objects.
	Incoming *EventStream
}

// Recv receives the next message.
func (p *Port) Recv(h *Handle) *Message {
	return h.Poll(p.Incoming).Message.(*Message)
}

// A Message is a chunk of data sent between nodes over a
// network.
type Message struct {
	Source  *Port
	Dest    *Port
	Message interface{}
	Size    float64
}

// A Network represents an abstract way of communicating
// between nodes.
type Network interface {
	// Send message objects from one node to another.
	// The message will arrive on the receiving port's
	// incoming EventStream if the communication is
	// successful.
	//
	// This is a non-blocking operation.
	Send(h *Handle, msgs ...*Message)
}

// An InstantNetwork delivers every message with zero
// delay, making virtual timing fully deterministic.
// Message ordering between concurrent senders is still
// randomized by the event loop.
type InstantNetwork struct{}

// Send delivers the messages immediately.
func (i InstantNetwork) Send(h *Handle, msgs ...*Message) {
	for _, msg := range msgs {
		h.Schedule(msg.Dest.Incoming, msg, 0)
	}
}

// A RandomNetwork is a network that assigns random delays
// to every message, regardless of its size. Useful for
// shaking out ordering assumptions in protocols.
type RandomNetwork struct{}

// Send sends the messages with random delays.
func (r RandomNetwork) Send(h *Handle, msgs ...*Message) {
	for _, msg := range msgs {
		h.Schedule(msg.Dest.Incoming, msg, rand.Float64())
	}
}

// A LatencyNetwork models a network where every message
// pays a constant latency plus a size-proportional
// transmission time, and each receiving node drains its
// incoming messages one at a time.
//
// Messages to the same destination are serialized: a
// message queues up behind whatever is already in flight
// toward that node.
type LatencyNetwork struct {
	// Latency is the constant per-message delay.
	Latency float64

	// Rate is the NIC rate in size units per virtual
	// second.
	Rate float64

	lock      sync.Mutex
	nextTimes map[*Node]float64
}

// NewLatencyNetwork creates a LatencyNetwork with the
// given per-message latency and NIC rate.
func NewLatencyNetwork(latency, rate float64) *LatencyNetwork {
	return &LatencyNetwork{
		Latency:   latency,
		Rate:      rate,
		nextTimes: map[*Node]float64{},
	}
}

// Send sends the messages, serializing deliveries per
// destination node.
func (l *LatencyNetwork) Send(h *Handle, msgs ...*Message) {
	l.lock.Lock()
	defer l.lock.Unlock()

	curTime := h.Time()
	for _, msg := range msgs {
		dest := msg.Dest.Node
		delay := l.Latency + msg.Size/l.Rate
		if t, ok := l.nextTimes[dest]; ok && t > curTime {
			delay += t - curTime
		}
		h.Schedule(msg.Dest.Incoming, msg, delay)
		l.nextTimes[dest] = curTime + delay
	}
}
