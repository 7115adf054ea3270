package workload

import "github.com/keyline/keyline/internal/dist"

// Phase is one producer's mutable view of a workload stage: its request
// partition, insert budget, cumulative operation thresholds, and one
// chooser per enabled operation. Only the owning producer mutates a
// Phase, except that chooser item counts are adjusted under the shared
// coordinator mutex at phase boundaries.
type Phase struct {
	ID uint8

	NumRequests     uint64
	NumRequestsLeft uint64
	NumInserts      uint64
	NumInsertsLeft  uint64
	MaxScanLength   uint64

	// Cumulative thresholds compared against a U[0, 100) draw.
	ReadThres         uint32
	RMWThres          uint32
	NegativeReadThres uint32
	ScanThres         uint32
	UpdateThres       uint32
	DeleteThres       uint32

	ReadChooser         dist.Chooser
	RMWChooser          dist.Chooser
	NegativeReadChooser dist.Chooser
	ScanChooser         dist.Chooser
	UpdateChooser       dist.Chooser
	DeleteChooser       dist.Chooser
	ScanLengthChooser   dist.Chooser
}

// HasNext reports whether the phase still owes requests.
func (p *Phase) HasNext() bool { return p.NumRequestsLeft > 0 }

func (p *Phase) eachChooser(f func(dist.Chooser)) {
	for _, c := range []dist.Chooser{
		p.ReadChooser, p.RMWChooser, p.NegativeReadChooser,
		p.ScanChooser, p.UpdateChooser, p.DeleteChooser,
	} {
		if c != nil {
			f(c)
		}
	}
}

// SetItemCount sets the visible key-space size on every access chooser.
// The scan length chooser is excluded; its range is fixed by config.
func (p *Phase) SetItemCount(n uint64) {
	p.eachChooser(func(c dist.Chooser) { c.SetItemCount(n) })
}

// GrowItemCount widens the visible key space, e.g. after an insert.
func (p *Phase) GrowItemCount(delta uint64) {
	p.eachChooser(func(c dist.Chooser) { c.GrowItemCount(delta) })
}

// ShrinkItemCount narrows the visible key space after deletions.
func (p *Phase) ShrinkItemCount(delta uint64) {
	p.eachChooser(func(c dist.Chooser) { c.ShrinkItemCount(delta) })
}
