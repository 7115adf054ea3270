package workload

import "golang.org/x/exp/rand"

// numUniqueValues is the size of the pre-generated payload pool. Values
// repeat cyclically; consumers treat payloads as opaque bytes, so a
// small pool keeps memory flat without skewing the benchmark.
const numUniqueValues = 100

// valueGenerator hands out write payloads from a fixed pool of random
// buffers. Returned slices are shared and must not be mutated.
type valueGenerator struct {
	values [][]byte
	next   int
}

func newValueGenerator(rng *rand.Rand, valueSize int) *valueGenerator {
	g := &valueGenerator{values: make([][]byte, numUniqueValues)}
	for i := range g.values {
		buf := make([]byte, valueSize)
		rng.Read(buf)
		g.values[i] = buf
	}
	return g
}

func (g *valueGenerator) nextValue() []byte {
	v := g.values[g.next]
	g.next = (g.next + 1) % numUniqueValues
	return v
}
