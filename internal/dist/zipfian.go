package dist

import (
	"math"

	"golang.org/x/exp/rand"
)

// Zipfian draws indices with the skew described by Gray et al. in
// "Quickly Generating Billion-Record Synthetic Databases" (SIGMOD '94):
// index 0 is the most popular, index 1 next, and so on, with the skew
// controlled by theta in (0, 1). Item count changes reuse the shared
// zeta cache or incrementally adjust the partial sum, so growing the
// space by one key per insert stays cheap.
type Zipfian struct {
	itemCount uint64
	theta     float64

	alpha float64
	thres float64
	zeta2 float64
	zetaN float64
	eta   float64
}

// NewZipfian returns a Zipfian chooser over n items with skew theta.
// n must be positive and theta must lie in (0, 1).
func NewZipfian(n uint64, theta float64) *Zipfian {
	z := &Zipfian{
		itemCount: n,
		theta:     theta,
		alpha:     1.0 / (1.0 - theta),
		thres:     1.0 + math.Pow(0.5, theta),
		zeta2:     extendZeta(2, theta, 0, 0),
	}
	z.zetaN = sharedZetaCache.lookupOrCompute(n, theta)
	z.updateEta()
	return z
}

func (z *Zipfian) updateEta() {
	n := float64(z.itemCount)
	z.eta = (1.0 - math.Pow(2.0/n, 1.0-z.theta)) / (1.0 - z.zeta2/z.zetaN)
}

func (z *Zipfian) Next(rng *rand.Rand) uint64 {
	u := rng.Float64()
	uz := u * z.zetaN
	if uz < 1.0 {
		return 0
	}
	if uz < z.thres {
		return 1
	}
	return uint64(float64(z.itemCount) * math.Pow(z.eta*u-z.eta+1.0, z.alpha))
}

func (z *Zipfian) SetItemCount(n uint64) {
	z.itemCount = n
	z.zetaN = sharedZetaCache.lookupOrCompute(n, z.theta)
	z.updateEta()
}

// GrowItemCount extends the partial sum in place rather than going
// through the cache; per-insert growth would otherwise flood the cache
// with every intermediate count.
func (z *Zipfian) GrowItemCount(delta uint64) {
	n := z.itemCount + delta
	z.zetaN = extendZeta(n, z.theta, z.itemCount, z.zetaN)
	z.itemCount = n
	z.updateEta()
}

func (z *Zipfian) ShrinkItemCount(delta uint64) {
	n := z.itemCount - delta
	z.zetaN = shrinkZeta(n, z.theta, z.itemCount, z.zetaN)
	z.itemCount = n
	z.updateEta()
}

// ItemCount returns the current number of items.
func (z *Zipfian) ItemCount() uint64 { return z.itemCount }
