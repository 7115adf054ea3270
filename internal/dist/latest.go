package dist

import "golang.org/x/exp/rand"

// Latest skews toward the most recently added items: it mirrors a
// Zipfian draw so that index n-1 (the newest) is the most popular.
type Latest struct {
	zipf *Zipfian
}

// NewLatest returns a latest chooser over n items with skew theta.
func NewLatest(n uint64, theta float64) *Latest {
	return &Latest{zipf: NewZipfian(n, theta)}
}

func (l *Latest) Next(rng *rand.Rand) uint64 {
	return l.zipf.ItemCount() - 1 - l.zipf.Next(rng)
}

func (l *Latest) SetItemCount(n uint64)        { l.zipf.SetItemCount(n) }
func (l *Latest) GrowItemCount(delta uint64)   { l.zipf.GrowItemCount(delta) }
func (l *Latest) ShrinkItemCount(delta uint64) { l.zipf.ShrinkItemCount(delta) }
