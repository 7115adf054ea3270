package dist

import (
	"math"
	"sort"
	"sync"
)

func powUint(i uint64, theta float64) float64 {
	return math.Pow(float64(i), theta)
}

// extendZeta continues the harmonic partial sum zeta(n, theta) forward
// from a previously computed zeta(prevN, theta). Summation order matters:
// extending from any cached prefix yields the exact bits a from-scratch
// forward sum would, so cached and uncached paths agree.
func extendZeta(n uint64, theta float64, prevN uint64, prevZeta float64) float64 {
	zeta := prevZeta
	for i := prevN + 1; i <= n; i++ {
		zeta += 1.0 / powUint(i, theta)
	}
	return zeta
}

// shrinkZeta derives zeta(n, theta) from zeta(prevN, theta) for n < prevN
// by subtracting the tail terms. Cheaper than recomputing when the item
// count drops by a small amount, at the cost of exact bit agreement with
// the forward sum.
func shrinkZeta(n uint64, theta float64, prevN uint64, prevZeta float64) float64 {
	zeta := prevZeta
	for i := n + 1; i <= prevN; i++ {
		zeta -= 1.0 / powUint(i, theta)
	}
	return zeta
}

// zetaEntry pairs an item count with its computed partial sum.
type zetaEntry struct {
	n    uint64
	zeta float64
}

// zetaCache memoizes zeta(n, theta) partial sums across all choosers in
// the process. Workloads routinely build one Zipfian chooser per producer
// per phase over the same item counts; without the cache each one would
// redo an O(n) summation.
type zetaCache struct {
	mu sync.Mutex
	// Per theta, entries sorted by ascending n.
	byTheta map[float64][]zetaEntry
}

var sharedZetaCache = &zetaCache{byTheta: make(map[float64][]zetaEntry)}

// lookupOrCompute returns zeta(n, theta), reusing the nearest cached
// partial sum as a starting point and caching the result.
func (c *zetaCache) lookupOrCompute(n uint64, theta float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.byTheta[theta]
	i := sort.Search(len(entries), func(i int) bool { return entries[i].n >= n })
	if i < len(entries) && entries[i].n == n {
		return entries[i].zeta
	}

	var prev zetaEntry
	if i > 0 {
		// Largest cached count below n; extend forward from it.
		prev = entries[i-1]
	}
	zeta := extendZeta(n, theta, prev.n, prev.zeta)

	entries = append(entries, zetaEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = zetaEntry{n: n, zeta: zeta}
	c.byTheta[theta] = entries
	return zeta
}
