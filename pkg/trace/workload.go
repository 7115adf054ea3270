package trace

import (
	"fmt"

	"github.com/keyline/keyline/pkg/request"
)

// Workload adapts a trace to the harness's workload shape by splitting
// it into contiguous slices, one per producer. Requests keep their
// relative order within a slice; no cross-producer order is implied.
type Workload struct {
	trace *Trace
}

// NewWorkload wraps a trace for replay.
func NewWorkload(t *Trace) *Workload {
	return &Workload{trace: t}
}

// GetProducers splits the trace across numProducers producers. The
// remainder of an uneven split lands on the lowest producer ids.
func (w *Workload) GetProducers(numProducers int) ([]*Producer, error) {
	if numProducers <= 0 {
		return nil, fmt.Errorf("at least one producer is required")
	}
	reqs := w.trace.Requests()
	total := len(reqs)
	base := total / numProducers
	remainder := total % numProducers

	producers := make([]*Producer, numProducers)
	start := 0
	for i := range producers {
		n := base
		if i < remainder {
			n++
		}
		producers[i] = &Producer{requests: reqs[start : start+n]}
		start += n
	}
	return producers, nil
}

// Producer replays one slice of a trace.
type Producer struct {
	requests []request.Request
	next     int
}

// Prepare is a no-op; trace slices are ready as built.
func (p *Producer) Prepare() error { return nil }

// HasNext reports whether the slice has more requests.
func (p *Producer) HasNext() bool { return p.next < len(p.requests) }

// Next returns the next request in the slice.
func (p *Producer) Next() request.Request {
	r := p.requests[p.next]
	p.next++
	return r
}
