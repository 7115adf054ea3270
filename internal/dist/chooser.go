// Package dist implements the index distributions used to pick keys and
// scan lengths: uniform, Zipfian (clustered and scattered), and latest.
// Choosers return indices in [0, item count); mapping an index to a key
// is the caller's concern.
package dist

import "golang.org/x/exp/rand"

// Chooser draws indices in [0, n) from some distribution over n items.
// Implementations are not safe for concurrent use; each producer owns
// its choosers and mutates their item counts as the visible key space
// grows and shrinks.
type Chooser interface {
	// Next draws the next index using rng.
	Next(rng *rand.Rand) uint64
	// SetItemCount replaces the item count. n must be positive.
	SetItemCount(n uint64)
	// GrowItemCount raises the item count by delta.
	GrowItemCount(delta uint64)
	// ShrinkItemCount lowers the item count by delta. The resulting
	// count must stay positive.
	ShrinkItemCount(delta uint64)
}

// Uniform draws each index with equal probability.
type Uniform struct {
	itemCount uint64
}

// NewUniform returns a uniform chooser over n items.
func NewUniform(n uint64) *Uniform {
	return &Uniform{itemCount: n}
}

func (u *Uniform) Next(rng *rand.Rand) uint64 {
	return rng.Uint64n(u.itemCount)
}

func (u *Uniform) SetItemCount(n uint64) {
	u.itemCount = n
}

func (u *Uniform) GrowItemCount(delta uint64) {
	u.itemCount += delta
}

func (u *Uniform) ShrinkItemCount(delta uint64) {
	u.itemCount -= delta
}
