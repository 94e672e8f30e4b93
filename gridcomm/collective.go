package gridcomm

// A ReduceOp combines a peer's vector into an
// accumulator, in place.
type ReduceOp func(acc, vec []float64)

// SumOp adds vec into acc componentwise.
func SumOp(acc, vec []float64) {
	if len(acc) != len(vec) {
		panic("mismatching lengths")
	}
	for i, x := range vec {
		acc[i] += x
	}
}

// AndOp treats the vectors as boolean flags (non-zero is
// true) and ANDs vec into acc componentwise.
func AndOp(acc, vec []float64) {
	if len(acc) != len(vec) {
		panic("mismatching lengths")
	}
	for i, x := range vec {
		if x == 0 {
			acc[i] = 0
		}
	}
}

// Allreduce reduces the workers' vectors with op and
// returns the combined result, identical on every rank.
//
// The workers are arranged in a binary tree by rank;
// partial reductions flow up to rank 0 and the result is
// broadcast back down the same tree. Every rank must call
// Allreduce with the same iteration number in the same
// round.
func (c *Comm) Allreduce(data []float64, iter int, op ReduceOp) []float64 {
	parent, children := c.treePosition()

	acc := append([]float64{}, data...)
	for range children {
		pkt := c.recv(AnySource, tagReduce, iter)
		op(acc, pkt.rows)
	}

	if parent >= 0 {
		c.send(parent, tagReduce, iter, acc)
		acc = c.recv(parent, tagReduce, iter).rows
	}

	for _, child := range children {
		c.send(child, tagReduce, iter, acc)
	}

	return acc
}

// AllAnd combines each worker's flag with a logical AND,
// so that every rank learns in the same round whether all
// workers have raised their flag.
func (c *Comm) AllAnd(flag bool, iter int) bool {
	x := 0.0
	if flag {
		x = 1.0
	}
	res := c.Allreduce([]float64{x}, iter, AndOp)
	return res[0] != 0
}

// AllSum sums a scalar across all workers.
func (c *Comm) AllSum(x float64, iter int) float64 {
	return c.Allreduce([]float64{x}, iter, SumOp)[0]
}

// treePosition returns the parent rank (or -1 for the
// root) and child ranks of this worker in the binary
// reduction tree.
//
// Rank r's children are 2r+1 and 2r+2, so rank 0 is
// always the root.
func (c *Comm) treePosition() (parent int, children []int) {
	parent = -1
	if c.rank > 0 {
		parent = (c.rank - 1) / 2
	}
	for i := 0; i < 2; i++ {
		child := c.rank*2 + 1 + i
		if child < c.Size() {
			children = append(children, child)
		}
	}
	return
}
