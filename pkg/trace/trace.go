// Package trace holds materialized request sequences: bulk-load traces
// for priming a database, and captured request traces replayed through
// the benchmark harness.
package trace

import (
	"fmt"

	"github.com/keyline/keyline/pkg/request"
)

// Trace is an immutable sequence of requests.
type Trace struct {
	requests []request.Request
}

// NewTrace wraps a request slice. The slice is owned by the trace
// afterwards.
func NewTrace(reqs []request.Request) *Trace {
	return &Trace{requests: reqs}
}

// Requests returns the underlying request slice. Callers must not
// modify it.
func (t *Trace) Requests() []request.Request { return t.requests }

// Len returns the number of requests.
func (t *Trace) Len() int { return len(t.requests) }

// MinMaxKeys returns the smallest and largest key in the trace.
func (t *Trace) MinMaxKeys() (request.Key, request.Key, error) {
	if len(t.requests) == 0 {
		return 0, 0, fmt.Errorf("the trace is empty")
	}
	min, max := t.requests[0].Key, t.requests[0].Key
	for _, r := range t.requests[1:] {
		if r.Key < min {
			min = r.Key
		}
		if r.Key > max {
			max = r.Key
		}
	}
	return min, max, nil
}

// BulkLoadTrace is a trace of inserts only, used to prime a database
// before a run.
type BulkLoadTrace struct {
	Trace
}

// NewBulkLoadTrace validates that every request is an insert carrying a
// payload and wraps them.
func NewBulkLoadTrace(reqs []request.Request) (*BulkLoadTrace, error) {
	for i, r := range reqs {
		if r.Op != request.OpInsert {
			return nil, fmt.Errorf("request %d: bulk-load traces may only contain inserts (got %s)", i, r.Op)
		}
		if len(r.Value) == 0 {
			return nil, fmt.Errorf("request %d: bulk-load inserts must carry a payload", i)
		}
	}
	return &BulkLoadTrace{Trace{requests: reqs}}, nil
}

// DatasetSizeBytes returns the total footprint of the dataset: an
// 8-byte key plus the payload, per record.
func (t *BulkLoadTrace) DatasetSizeBytes() uint64 {
	var total uint64
	for _, r := range t.requests {
		total += 8 + uint64(len(r.Value))
	}
	return total
}
