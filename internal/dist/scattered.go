package dist

import (
	"math/bits"

	"golang.org/x/exp/rand"
)

const (
	fnvOffsetBasis64 uint64 = 0xCBF29CE484222325
	fnvPrime64       uint64 = 0x100000001B3
)

// fnv1a64 hashes the eight bytes of v, least significant first.
func fnv1a64(v uint64) uint64 {
	h := fnvOffsetBasis64
	for i := 0; i < 8; i++ {
		h ^= v & 0xFF
		h *= fnvPrime64
		v >>= 8
	}
	return h
}

// ScatteredZipfian is a Zipfian chooser whose popularity ranks are
// scattered across the index space instead of clustered at low indices.
// Each Zipfian draw is hashed together with a salt and reduced back into
// [0, n), so the hot set lands on a salt-dependent pseudorandom subset.
type ScatteredZipfian struct {
	zipf *Zipfian
	salt uint64
}

// NewScatteredZipfian returns a scattered Zipfian chooser over n items
// with skew theta. Distinct salts pick distinct hot sets.
func NewScatteredZipfian(n uint64, theta float64, salt uint64) *ScatteredZipfian {
	return &ScatteredZipfian{zipf: NewZipfian(n, theta), salt: salt}
}

func (s *ScatteredZipfian) Next(rng *rand.Rand) uint64 {
	h := fnv1a64(s.zipf.Next(rng) ^ s.salt)
	// Multiplicative range reduction: (h * n) >> 64. Unbiased enough for
	// a workload generator and much cheaper than a modulo.
	hi, _ := bits.Mul64(h, s.zipf.ItemCount())
	return hi
}

func (s *ScatteredZipfian) SetItemCount(n uint64)        { s.zipf.SetItemCount(n) }
func (s *ScatteredZipfian) GrowItemCount(delta uint64)   { s.zipf.GrowItemCount(delta) }
func (s *ScatteredZipfian) ShrinkItemCount(delta uint64) { s.zipf.ShrinkItemCount(delta) }
