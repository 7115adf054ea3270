package workload

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/keyline/keyline/internal/dist"
	"github.com/keyline/keyline/pkg/request"
)

// Producer emits one deterministic request stream for a single worker.
// The stream depends only on the workload config and the producer's
// seed (master seed XOR producer id); two runs with the same inputs
// produce identical sequences.
//
// Producers are not safe for concurrent use. They synchronize with each
// other only through the coordinator when resolving keys in the shared
// load space.
type Producer struct {
	id           uint8
	numProducers int
	cfg          *Config
	rng          *rand.Rand
	coord        *coordinator
	customLists  map[string][]request.Key

	phases       []*Phase
	currentPhase int

	insertKeys      []request.Key
	nextInsertIndex uint64
	insertDeletions deletionSet

	// Last observed live load count; lags behind the coordinator so
	// that deletions by other producers are folded into this
	// producer's choosers on its next draw.
	numLoadPrevious uint64

	// Upper bound of the operation draw. 100 normally; clamped to the
	// delete threshold once the phase's insert budget is spent.
	opBound uint64

	valuegen *valueGenerator
}

func newProducer(cfg *Config, coord *coordinator, customLists map[string][]request.Key,
	id uint8, numProducers int, seed uint64) *Producer {
	return &Producer{
		id:           id,
		numProducers: numProducers,
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(seed)),
		coord:        coord,
		customLists:  customLists,
		opBound:      100,
	}
}

// ID returns the producer's zero-based id.
func (p *Producer) ID() uint8 { return p.id }

// Prepare materializes the phases and pre-generates this producer's
// insert keys. Must be called once, before the first Next.
func (p *Producer) Prepare() error {
	// The payload pool draws from the producer's PRNG first so the key
	// streams stay aligned regardless of later config changes.
	p.valuegen = newValueGenerator(p.rng, p.cfg.ValueSize())

	p.phases = make([]*Phase, 0, len(p.cfg.Run))
	for i := range p.cfg.Run {
		ph, err := p.cfg.phase(uint8(i), p.id, p.numProducers)
		if err != nil {
			return fmt.Errorf("phase %d: %w", i, err)
		}
		p.phases = append(p.phases, ph)
	}

	for _, ph := range p.phases {
		if ph.NumInserts == 0 {
			continue
		}
		start := len(p.insertKeys)
		src := p.cfg.insertSource(ph.ID)
		if src.Type == DistCustom {
			list, ok := p.customLists[src.Name]
			if !ok {
				return fmt.Errorf("phase %d: no custom key list named %q", ph.ID, src.Name)
			}
			if uint64(len(list)) < src.Offset || uint64(len(list))-src.Offset < ph.NumInserts {
				return fmt.Errorf("phase %d: not enough keys in %q to make all requested inserts", ph.ID, src.Name)
			}
			p.insertKeys = append(p.insertKeys, list[src.Offset:src.Offset+ph.NumInserts]...)
		} else {
			gen, err := makeGenerator(src, ph.NumInserts)
			if err != nil {
				return fmt.Errorf("phase %d: insert generator: %w", ph.ID, err)
			}
			p.insertKeys = append(p.insertKeys, make([]request.Key, ph.NumInserts)...)
			gen.Generate(p.rng, p.insertKeys[start:])
		}
		// Phase and producer tags start at 1; 0 marks the initial load.
		request.TagAll(p.insertKeys[start:], ph.ID+1, p.id+1)
	}

	// Establish each phase's visible key space at entry: the full load
	// plus every preceding phase's inserts.
	p.coord.mu.Lock()
	count := uint64(len(p.coord.loadKeys))
	p.numLoadPrevious = p.coord.liveLoadCountLocked()
	p.coord.mu.Unlock()
	for _, ph := range p.phases {
		ph.SetItemCount(count)
		count += ph.NumInserts
	}
	return nil
}

// HasNext reports whether the stream has more requests.
func (p *Producer) HasNext() bool {
	return p.currentPhase < len(p.phases) && p.phases[p.currentPhase].HasNext()
}

// Next returns the next request. HasNext must be true.
func (p *Producer) Next() request.Request {
	ph := p.phases[p.currentPhase]

	// Once the remaining requests are all owed to the insert budget,
	// inserts are forced; otherwise the op mix decides.
	op := request.OpInsert
	if ph.NumInsertsLeft < ph.NumRequestsLeft {
		c := uint32(p.rng.Uint64n(p.opBound))
		switch {
		case c < ph.ReadThres:
			op = request.OpRead
		case c < ph.RMWThres:
			op = request.OpReadModifyWrite
		case c < ph.NegativeReadThres:
			op = request.OpNegativeRead
		case c < ph.ScanThres:
			op = request.OpScan
		case c < ph.UpdateThres:
			op = request.OpUpdate
		case c < ph.DeleteThres:
			op = request.OpDelete
		default:
			op = request.OpInsert
		}
	}

	var req request.Request
	switch op {
	case request.OpRead:
		req = request.Request{Op: request.OpRead, Key: p.chooseKey(ph, ph.ReadChooser)}

	case request.OpReadModifyWrite:
		req = request.Request{
			Op:    request.OpReadModifyWrite,
			Key:   p.chooseKey(ph, ph.RMWChooser),
			Value: p.valuegen.nextValue(),
		}

	case request.OpNegativeRead:
		key := p.chooseKey(ph, ph.NegativeReadChooser).Unreadable()
		req = request.Request{Op: request.OpNegativeRead, Key: key}

	case request.OpScan:
		req = request.Request{
			Op:         request.OpScan,
			Key:        p.chooseKey(ph, ph.ScanChooser),
			ScanAmount: uint32(ph.ScanLengthChooser.Next(p.rng) + 1),
		}

	case request.OpUpdate:
		req = request.Request{
			Op:    request.OpUpdate,
			Key:   p.chooseKey(ph, ph.UpdateChooser),
			Value: p.valuegen.nextValue(),
		}

	case request.OpDelete:
		req = request.Request{Op: request.OpDelete, Key: p.deleteChooseKey(ph, ph.DeleteChooser)}

	case request.OpInsert:
		req = request.Request{
			Op:    request.OpInsert,
			Key:   p.insertKeys[p.nextInsertIndex],
			Value: p.valuegen.nextValue(),
		}
		p.nextInsertIndex++
		ph.NumInsertsLeft--
		ph.GrowItemCount(1)
		if ph.NumInsertsLeft == 0 {
			if ph.DeleteThres > 0 {
				// Clamp the op draw so inserts are no longer selected
				// for the rest of this phase.
				p.opBound = uint64(ph.DeleteThres)
			}
			// DeleteThres == 0 only in an insert-only phase, in which
			// case this was the phase's final request.
		}
	}

	ph.NumRequestsLeft--
	if ph.NumRequestsLeft == 0 {
		p.currentPhase++
		if p.currentPhase < len(p.phases) {
			next := p.phases[p.currentPhase]
			p.coord.mu.Lock()
			// The next phase sees the whole load plus every key in the
			// producer's insert vector, minus deletions on both sides.
			next.SetItemCount(uint64(len(p.coord.loadKeys)) + uint64(len(p.insertKeys)) -
				p.coord.loadDeletions.size() - p.insertDeletions.size())
			p.numLoadPrevious = p.coord.liveLoadCountLocked()
			p.coord.mu.Unlock()
		}
		p.opBound = 100
	}
	return req
}

// chooseKey resolves a chooser draw to a live key. Indices below the
// live load count land in the shared load space; the rest index the
// producer's own insert keys. Deleted slots are skipped on both sides.
func (p *Producer) chooseKey(ph *Phase, c dist.Chooser) request.Key {
	p.coord.mu.Lock()
	live := p.coord.liveLoadCountLocked()
	if live < p.numLoadPrevious {
		// Other producers deleted load keys since our last draw; fold
		// the shrinkage into this phase's choosers.
		ph.ShrinkItemCount(p.numLoadPrevious - live)
	}
	p.numLoadPrevious = live

	index := c.Next(p.rng)
	if index < live {
		key := p.coord.loadKeys[p.coord.loadDeletions.physical(index)]
		p.coord.mu.Unlock()
		return key
	}
	p.coord.mu.Unlock()

	index -= live
	return p.insertKeys[p.insertDeletions.physical(index)]
}

// deleteChooseKey is chooseKey plus removal: the chosen slot is added
// to the owning deletion set and the phase's visible space shrinks by
// one. A deleted key is never returned by later draws.
func (p *Producer) deleteChooseKey(ph *Phase, c dist.Chooser) request.Key {
	p.coord.mu.Lock()
	live := p.coord.liveLoadCountLocked()
	if live < p.numLoadPrevious {
		ph.ShrinkItemCount(p.numLoadPrevious - live)
	}
	p.numLoadPrevious = live

	index := c.Next(p.rng)
	if index < live {
		phys := p.coord.loadDeletions.physical(index)
		key := p.coord.loadKeys[phys]
		p.coord.loadDeletions.add(phys)
		ph.ShrinkItemCount(1)
		p.numLoadPrevious = live - 1
		p.coord.mu.Unlock()
		return key
	}
	p.coord.mu.Unlock()

	index -= live
	phys := p.insertDeletions.physical(index)
	p.insertDeletions.add(phys)
	ph.ShrinkItemCount(1)
	return p.insertKeys[phys]
}
