// Package keygen produces batches of raw logical keys for dataset loads
// and insert streams. Generators emit untagged keys; callers apply phase
// and producer tags afterwards.
package keygen

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/keyline/keyline/pkg/request"
)

// Generator fills dst with logical keys. Implementations state whether
// the emitted keys are distinct. len(dst) must equal the key count the
// generator was constructed for.
type Generator interface {
	Generate(rng *rand.Rand, dst []request.Key)
}

// Uniform draws distinct keys uniformly from an inclusive range.
type Uniform struct {
	numKeys uint64
	keys    request.KeyRange
}

// NewUniform returns a generator for numKeys distinct keys drawn
// uniformly from r.
func NewUniform(numKeys uint64, r request.KeyRange) (*Uniform, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if numKeys == 0 {
		return nil, fmt.Errorf("uniform generator needs at least one key")
	}
	if numKeys > r.Size() {
		return nil, fmt.Errorf("cannot draw %d distinct keys from a range of %d", numKeys, r.Size())
	}
	return &Uniform{numKeys: numKeys, keys: r}, nil
}

func (u *Uniform) Generate(rng *rand.Rand, dst []request.Key) {
	size := u.keys.Size()
	if u.numKeys*2 >= size {
		// Dense range: shuffling the whole range beats rejection
		// sampling once more than half the keys are taken.
		all := make([]request.Key, size)
		for i := range all {
			all[i] = request.Key(u.keys.Min + uint64(i))
		}
		rng.Shuffle(len(all), func(i, j int) {
			all[i], all[j] = all[j], all[i]
		})
		copy(dst, all[:u.numKeys])
		return
	}

	seen := make(map[uint64]struct{}, u.numKeys)
	for i := range dst {
		for {
			v := u.keys.Min + rng.Uint64n(size)
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			dst[i] = request.Key(v)
			break
		}
	}
}

// Hotspot draws keys from a hot sub-range with a configured probability
// and from the remaining cold keys otherwise. Keys may repeat.
type Hotspot struct {
	overall  request.KeyRange
	hot      request.KeyRange
	hotPct   uint32
	coldSize uint64
}

// NewHotspot returns a hotspot generator. hot must lie inside overall,
// and hotPct is the percentage of draws taken from hot.
func NewHotspot(overall, hot request.KeyRange, hotPct uint32) (*Hotspot, error) {
	if err := overall.Validate(); err != nil {
		return nil, err
	}
	if err := hot.Validate(); err != nil {
		return nil, err
	}
	if hot.Min < overall.Min || hot.Max > overall.Max {
		return nil, fmt.Errorf("hot range [%d, %d] is not contained in [%d, %d]",
			hot.Min, hot.Max, overall.Min, overall.Max)
	}
	if hotPct > 100 {
		return nil, fmt.Errorf("hot proportion %d%% exceeds 100%%", hotPct)
	}
	coldSize := overall.Size() - hot.Size()
	if coldSize == 0 && hotPct < 100 {
		return nil, fmt.Errorf("no cold keys available for %d%% cold draws", 100-hotPct)
	}
	return &Hotspot{overall: overall, hot: hot, hotPct: hotPct, coldSize: coldSize}, nil
}

func (h *Hotspot) Generate(rng *rand.Rand, dst []request.Key) {
	for i := range dst {
		if rng.Uint64n(100) < uint64(h.hotPct) {
			dst[i] = request.Key(h.hot.Min + rng.Uint64n(h.hot.Size()))
			continue
		}
		v := rng.Uint64n(h.coldSize)
		below := h.hot.Min - h.overall.Min
		if v < below {
			dst[i] = request.Key(h.overall.Min + v)
		} else {
			dst[i] = request.Key(h.hot.Max + 1 + (v - below))
		}
	}
}

// Linspace emits evenly spaced keys: start, start+step, start+2*step, ...
// The sequence is deterministic and ignores the random source.
type Linspace struct {
	start uint64
	step  uint64
}

// NewLinspace returns a generator for numKeys evenly spaced keys. The
// last key must still be representable as a logical key.
func NewLinspace(start, step, numKeys uint64) (*Linspace, error) {
	if numKeys == 0 {
		return nil, fmt.Errorf("linspace generator needs at least one key")
	}
	if step == 0 {
		return nil, fmt.Errorf("linspace step size must be positive")
	}
	span := (numKeys - 1) * step
	if span/step != numKeys-1 || span > request.MaxLogicalKey || start > request.MaxLogicalKey-span {
		return nil, fmt.Errorf("linspace keys starting at %d with step %d overflow the logical key space", start, step)
	}
	return &Linspace{start: start, step: step}, nil
}

func (l *Linspace) Generate(_ *rand.Rand, dst []request.Key) {
	for i := range dst {
		dst[i] = request.Key(l.start + uint64(i)*l.step)
	}
}
