package dist

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/exp/rand"
)

// TestProperty_ChooserRange validates that every chooser only ever
// returns indices inside [0, item count), for arbitrary item counts,
// skews, and seeds.
func TestProperty_ChooserRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	inRange := func(c Chooser, n uint64, seed uint64) bool {
		rng := rand.New(rand.NewSource(seed))
		for i := 0; i < 2000; i++ {
			if c.Next(rng) >= n {
				return false
			}
		}
		return true
	}

	properties.Property("uniform draws stay in range", prop.ForAll(
		func(n uint64, seed uint64) bool {
			return inRange(NewUniform(n), n, seed)
		},
		gen.UInt64Range(1, 1<<40),
		gen.UInt64(),
	))

	properties.Property("zipfian draws stay in range", prop.ForAll(
		func(n uint64, theta float64, seed uint64) bool {
			return inRange(NewZipfian(n, theta), n, seed)
		},
		gen.UInt64Range(2, 100000),
		gen.Float64Range(0.01, 0.99),
		gen.UInt64(),
	))

	properties.Property("scattered zipfian draws stay in range", prop.ForAll(
		func(n uint64, theta float64, salt uint64, seed uint64) bool {
			return inRange(NewScatteredZipfian(n, theta, salt), n, seed)
		},
		gen.UInt64Range(2, 100000),
		gen.Float64Range(0.01, 0.99),
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.Property("latest draws stay in range", prop.ForAll(
		func(n uint64, theta float64, seed uint64) bool {
			return inRange(NewLatest(n, theta), n, seed)
		},
		gen.UInt64Range(2, 100000),
		gen.Float64Range(0.01, 0.99),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// TestProperty_ChooserDeterminism validates that two choosers with the
// same configuration fed from identically seeded generators emit the
// same sequence.
func TestProperty_ChooserDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("scattered zipfian sequences repeat per seed", prop.ForAll(
		func(n uint64, theta float64, salt uint64, seed uint64) bool {
			a := NewScatteredZipfian(n, theta, salt)
			b := NewScatteredZipfian(n, theta, salt)
			rngA := rand.New(rand.NewSource(seed))
			rngB := rand.New(rand.NewSource(seed))
			for i := 0; i < 500; i++ {
				if a.Next(rngA) != b.Next(rngB) {
					return false
				}
			}
			return true
		},
		gen.UInt64Range(2, 1000000),
		gen.Float64Range(0.01, 0.99),
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.Property("zeta extension matches from-scratch sums", prop.ForAll(
		func(n uint64, mid uint64, theta float64) bool {
			if mid > n {
				n, mid = mid, n
			}
			scratch := extendZeta(n, theta, 0, 0)
			step := extendZeta(n, theta, mid, extendZeta(mid, theta, 0, 0))
			return scratch == step
		},
		gen.UInt64Range(1, 20000),
		gen.UInt64Range(1, 20000),
		gen.Float64Range(0.01, 0.99),
	))

	properties.TestingRun(t)
}
