package dist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestUniformRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	u := NewUniform(10)
	seen := make(map[uint64]int)
	for i := 0; i < 100000; i++ {
		v := u.Next(rng)
		require.Less(t, v, uint64(10))
		seen[v]++
	}
	// Every value shows up, and none is wildly over- or under-represented.
	for v := uint64(0); v < 10; v++ {
		assert.Greater(t, seen[v], 8000, "value %d drawn too rarely", v)
		assert.Less(t, seen[v], 12000, "value %d drawn too often", v)
	}
}

func TestUniformItemCountChanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u := NewUniform(5)
	u.GrowItemCount(5)
	for i := 0; i < 1000; i++ {
		assert.Less(t, u.Next(rng), uint64(10))
	}
	u.ShrinkItemCount(9)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, uint64(0), u.Next(rng))
	}
	u.SetItemCount(3)
	for i := 0; i < 1000; i++ {
		assert.Less(t, u.Next(rng), uint64(3))
	}
}

func TestZipfianRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	z := NewZipfian(1000, 0.99)
	for i := 0; i < 100000; i++ {
		require.Less(t, z.Next(rng), uint64(1000))
	}
}

func TestZipfianSkew(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	z := NewZipfian(1000, 0.99)
	counts := make([]int, 1000)
	const draws = 200000
	for i := 0; i < draws; i++ {
		counts[z.Next(rng)]++
	}
	// Rank 0 dominates and low ranks are ordered well above the tail.
	assert.Greater(t, counts[0], counts[1])
	assert.Greater(t, counts[1], counts[10])
	assert.Greater(t, counts[0], draws/20)
}

func TestZipfianGrowMatchesSet(t *testing.T) {
	a := NewZipfian(500, 0.75)
	a.GrowItemCount(500)
	b := NewZipfian(1000, 0.75)
	// Growing extends the same forward partial sum the cache computes.
	assert.Equal(t, b.zetaN, a.zetaN)
	assert.Equal(t, b.eta, a.eta)
	assert.Equal(t, uint64(1000), a.ItemCount())
}

func TestZipfianShrinkApproximatesSet(t *testing.T) {
	a := NewZipfian(1000, 0.8)
	a.ShrinkItemCount(400)
	b := NewZipfian(600, 0.8)
	assert.InDelta(t, b.zetaN, a.zetaN, 1e-9)
	assert.Equal(t, uint64(600), a.ItemCount())
}

func TestZipfianSetItemCountDeterministic(t *testing.T) {
	// The same (n, theta) always resolves to the identical zeta value.
	a := NewZipfian(12345, 0.6)
	b := NewZipfian(12345, 0.6)
	assert.Equal(t, a.zetaN, b.zetaN)

	rngA := rand.New(rand.NewSource(99))
	rngB := rand.New(rand.NewSource(99))
	for i := 0; i < 10000; i++ {
		require.Equal(t, a.Next(rngA), b.Next(rngB))
	}
}

func TestZetaExtensionBitIdentity(t *testing.T) {
	const theta = 0.55
	scratch := extendZeta(2000, theta, 0, 0)
	mid := extendZeta(700, theta, 0, 0)
	extended := extendZeta(2000, theta, 700, mid)
	assert.Equal(t, scratch, extended)
}

func TestZetaCacheReuse(t *testing.T) {
	const theta = 0.435
	c := &zetaCache{byTheta: make(map[float64][]zetaEntry)}
	first := c.lookupOrCompute(1000, theta)
	assert.Equal(t, extendZeta(1000, theta, 0, 0), first)

	// A later lookup past the largest cached count extends from it and
	// still matches the from-scratch sum.
	second := c.lookupOrCompute(2500, theta)
	assert.Equal(t, extendZeta(2500, theta, 0, 0), second)

	// A lookup between cached counts extends from the largest one below.
	third := c.lookupOrCompute(1700, theta)
	assert.Equal(t, extendZeta(1700, theta, 0, 0), third)

	// Exact hits come straight out of the cache.
	assert.Equal(t, first, c.lookupOrCompute(1000, theta))
	assert.Len(t, c.byTheta[theta], 3)
}

func TestZetaCacheSeparatesThetas(t *testing.T) {
	c := &zetaCache{byTheta: make(map[float64][]zetaEntry)}
	a := c.lookupOrCompute(100, 0.5)
	b := c.lookupOrCompute(100, 0.9)
	assert.NotEqual(t, a, b)
}

func TestScatteredZipfianRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := NewScatteredZipfian(1000, 0.99, 0xDEADBEEF)
	for i := 0; i < 100000; i++ {
		require.Less(t, s.Next(rng), uint64(1000))
	}
}

func TestScatteredZipfianSaltSelectsHotSet(t *testing.T) {
	draw := func(salt uint64) uint64 {
		rng := rand.New(rand.NewSource(5))
		s := NewScatteredZipfian(1 << 20, 0.99, salt)
		counts := make(map[uint64]int)
		for i := 0; i < 20000; i++ {
			counts[s.Next(rng)]++
		}
		var hot uint64
		best := 0
		for v, n := range counts {
			if n > best {
				hot, best = v, n
			}
		}
		return hot
	}
	// The same salt lands the hot set on the same index; a different
	// salt moves it.
	assert.Equal(t, draw(1), draw(1))
	assert.NotEqual(t, draw(1), draw(2))
}

func TestLatestSkewsToNewest(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	l := NewLatest(1000, 0.99)
	counts := make([]int, 1000)
	for i := 0; i < 100000; i++ {
		v := l.Next(rng)
		require.Less(t, v, uint64(1000))
		counts[v]++
	}
	assert.Greater(t, counts[999], counts[998])
	assert.Greater(t, counts[999], counts[0])
}

func TestLatestTracksGrowth(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	l := NewLatest(10, 0.5)
	l.GrowItemCount(90)
	sawHigh := false
	for i := 0; i < 10000; i++ {
		v := l.Next(rng)
		require.Less(t, v, uint64(100))
		if v >= 10 {
			sawHigh = true
		}
	}
	assert.True(t, sawHigh)
}
