package keygen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/keyline/keyline/pkg/request"
)

func requireDistinctInRange(t *testing.T, keys []request.Key, r request.KeyRange) {
	t.Helper()
	seen := make(map[request.Key]struct{}, len(keys))
	for _, k := range keys {
		require.True(t, r.Contains(uint64(k)), "key %d outside [%d, %d]", k, r.Min, r.Max)
		_, dup := seen[k]
		require.False(t, dup, "duplicate key %d", k)
		seen[k] = struct{}{}
	}
}

func TestUniformSparse(t *testing.T) {
	r := request.KeyRange{Min: 1000, Max: 1000000}
	g, err := NewUniform(5000, r)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	keys := make([]request.Key, 5000)
	g.Generate(rng, keys)
	requireDistinctInRange(t, keys, r)
}

func TestUniformDense(t *testing.T) {
	// More than half the range requested forces the shuffle path.
	r := request.KeyRange{Min: 10, Max: 109}
	g, err := NewUniform(80, r)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(2))
	keys := make([]request.Key, 80)
	g.Generate(rng, keys)
	requireDistinctInRange(t, keys, r)
}

func TestUniformExhaustsRange(t *testing.T) {
	r := request.KeyRange{Min: 0, Max: 99}
	g, err := NewUniform(100, r)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	keys := make([]request.Key, 100)
	g.Generate(rng, keys)
	requireDistinctInRange(t, keys, r)
}

func TestUniformDeterministic(t *testing.T) {
	r := request.KeyRange{Min: 0, Max: 1 << 30}
	g, err := NewUniform(1000, r)
	require.NoError(t, err)

	a := make([]request.Key, 1000)
	b := make([]request.Key, 1000)
	g.Generate(rand.New(rand.NewSource(77)), a)
	g.Generate(rand.New(rand.NewSource(77)), b)
	assert.Equal(t, a, b)
}

func TestUniformRejectsOversizedRequest(t *testing.T) {
	_, err := NewUniform(101, request.KeyRange{Min: 0, Max: 99})
	require.Error(t, err)
	_, err = NewUniform(0, request.KeyRange{Min: 0, Max: 99})
	require.Error(t, err)
	_, err = NewUniform(10, request.KeyRange{Min: 0, Max: request.MaxLogicalKey + 1})
	require.Error(t, err)
}

func TestHotspotProportions(t *testing.T) {
	overall := request.KeyRange{Min: 0, Max: 99999}
	hot := request.KeyRange{Min: 40000, Max: 40999}
	g, err := NewHotspot(overall, hot, 90)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(4))
	keys := make([]request.Key, 100000)
	g.Generate(rng, keys)

	inHot := 0
	for _, k := range keys {
		require.True(t, overall.Contains(uint64(k)))
		if hot.Contains(uint64(k)) {
			inHot++
		}
	}
	// 90% of draws ± a generous margin land in the hot range.
	assert.Greater(t, inHot, 88000)
	assert.Less(t, inHot, 92000)
}

func TestHotspotColdDrawsSpanBothSides(t *testing.T) {
	overall := request.KeyRange{Min: 0, Max: 999}
	hot := request.KeyRange{Min: 400, Max: 599}
	g, err := NewHotspot(overall, hot, 0)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	keys := make([]request.Key, 20000)
	g.Generate(rng, keys)

	sawBelow, sawAbove := false, false
	for _, k := range keys {
		require.False(t, hot.Contains(uint64(k)))
		if uint64(k) < hot.Min {
			sawBelow = true
		} else {
			sawAbove = true
		}
	}
	assert.True(t, sawBelow)
	assert.True(t, sawAbove)
}

func TestHotspotValidation(t *testing.T) {
	overall := request.KeyRange{Min: 100, Max: 200}
	_, err := NewHotspot(overall, request.KeyRange{Min: 50, Max: 150}, 50)
	require.Error(t, err)
	_, err = NewHotspot(overall, request.KeyRange{Min: 150, Max: 250}, 50)
	require.Error(t, err)
	_, err = NewHotspot(overall, request.KeyRange{Min: 120, Max: 130}, 101)
	require.Error(t, err)
	// Hot range covering everything leaves no cold keys to draw.
	_, err = NewHotspot(overall, overall, 50)
	require.Error(t, err)
	_, err = NewHotspot(overall, overall, 100)
	require.NoError(t, err)
}

func TestLinspace(t *testing.T) {
	g, err := NewLinspace(100, 10, 5)
	require.NoError(t, err)

	keys := make([]request.Key, 5)
	g.Generate(nil, keys)
	assert.Equal(t, []request.Key{100, 110, 120, 130, 140}, keys)
}

func TestLinspaceOverflow(t *testing.T) {
	_, err := NewLinspace(request.MaxLogicalKey, 1, 2)
	require.Error(t, err)
	_, err = NewLinspace(0, request.MaxLogicalKey, 3)
	require.Error(t, err)
	_, err = NewLinspace(request.MaxLogicalKey, 1, 1)
	require.NoError(t, err)
	_, err = NewLinspace(0, 0, 5)
	require.Error(t, err)
	_, err = NewLinspace(0, 1, 0)
	require.Error(t, err)
}
