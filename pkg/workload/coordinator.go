package workload

import (
	"sort"
	"sync"

	"github.com/keyline/keyline/pkg/request"
)

// deletionSet tracks which physical slots of a key vector have been
// deleted, and maps logical (live) indices back to physical ones by
// skipping the deleted slots. Deletions per run are bounded by the
// request count, so a sorted slice with binary search suffices.
type deletionSet struct {
	positions []uint64
}

func (d *deletionSet) size() uint64 { return uint64(len(d.positions)) }

// countThrough returns how many deleted slots lie at or below pos.
func (d *deletionSet) countThrough(pos uint64) uint64 {
	return uint64(sort.Search(len(d.positions), func(i int) bool {
		return d.positions[i] > pos
	}))
}

// add records the deletion of physical slot pos. pos must not already
// be recorded.
func (d *deletionSet) add(pos uint64) {
	i := sort.Search(len(d.positions), func(i int) bool {
		return d.positions[i] >= pos
	})
	d.positions = append(d.positions, 0)
	copy(d.positions[i+1:], d.positions[i:])
	d.positions[i] = pos
}

// physical resolves the logical index of a live slot to its physical
// position: the fixpoint of pos = logical + deletions at or below pos.
// Each iteration jumps past the deletions discovered so far, so the
// walk converges on the first live slot with the requested rank.
func (d *deletionSet) physical(logical uint64) uint64 {
	pos := logical
	for {
		next := logical + d.countThrough(pos)
		if next == pos {
			return pos
		}
		pos = next
	}
}

// coordinator is the state shared by all producers of one workload: the
// bulk-loaded key vector and its deletion set, guarded by a single
// mutex. Producers hold a reference; the workload owns it.
type coordinator struct {
	mu            sync.Mutex
	loadKeys      []request.Key
	loadDeletions deletionSet
}

func newCoordinator(loadKeys []request.Key) *coordinator {
	return &coordinator{loadKeys: loadKeys}
}

// liveLoadCountLocked returns the number of load keys not yet deleted.
// Callers must hold mu.
func (c *coordinator) liveLoadCountLocked() uint64 {
	return uint64(len(c.loadKeys)) - c.loadDeletions.size()
}
