// Package metrics accumulates per-operation measurements during a
// benchmark run and aggregates them into a final result.
package metrics

import (
	"sort"
	"time"
)

// Meter accumulates one operation class: sampled latencies, bytes
// moved, and request/record counts. A Meter belongs to one executor
// thread; cross-thread aggregation happens at freeze time.
type Meter struct {
	latencies    []time.Duration
	totalBytes   uint64
	requestCount uint64
	recordCount  uint64
}

// NewMeter returns a meter with room for a typical run's latency
// samples.
func NewMeter() *Meter {
	return &Meter{latencies: make([]time.Duration, 0, 4096)}
}

// Record notes one request moving bytes. The latency is stored only
// when timed is true; untimed requests still count.
func (m *Meter) Record(latency time.Duration, timed bool, bytes uint64) {
	m.RecordMultiple(latency, timed, bytes, 1)
}

// RecordMultiple notes one request that touched records records, e.g. a
// scan returning many rows.
func (m *Meter) RecordMultiple(latency time.Duration, timed bool, bytes, records uint64) {
	if timed {
		m.latencies = append(m.latencies, latency)
	}
	m.totalBytes += bytes
	m.requestCount++
	m.recordCount += records
}

// RecordCount returns the records touched so far; used for throughput
// sampling mid-run.
func (m *Meter) RecordCount() uint64 { return m.recordCount }

// Freeze sorts the latency samples and returns an immutable view.
func (m *Meter) Freeze() FrozenMeter {
	lat := make([]time.Duration, len(m.latencies))
	copy(lat, m.latencies)
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
	return FrozenMeter{
		latencies:    lat,
		totalBytes:   m.totalBytes,
		requestCount: m.requestCount,
		recordCount:  m.recordCount,
	}
}

// FreezeGroup merges the meters of all executors for one operation
// class into a single frozen view.
func FreezeGroup(meters []*Meter) FrozenMeter {
	var g FrozenMeter
	total := 0
	for _, m := range meters {
		total += len(m.latencies)
	}
	g.latencies = make([]time.Duration, 0, total)
	for _, m := range meters {
		g.latencies = append(g.latencies, m.latencies...)
		g.totalBytes += m.totalBytes
		g.requestCount += m.requestCount
		g.recordCount += m.recordCount
	}
	sort.Slice(g.latencies, func(i, j int) bool { return g.latencies[i] < g.latencies[j] })
	return g
}

// FrozenMeter is an immutable aggregate with sorted latency samples.
type FrozenMeter struct {
	latencies    []time.Duration
	totalBytes   uint64
	requestCount uint64
	recordCount  uint64
}

// NumRequests returns the number of successful requests recorded.
func (f FrozenMeter) NumRequests() uint64 { return f.requestCount }

// NumRecords returns the number of records touched.
func (f FrozenMeter) NumRecords() uint64 { return f.recordCount }

// TotalBytes returns the bytes moved.
func (f FrozenMeter) TotalBytes() uint64 { return f.totalBytes }

// LatencyMin returns the smallest sampled latency, or 0 without
// samples.
func (f FrozenMeter) LatencyMin() time.Duration {
	if len(f.latencies) == 0 {
		return 0
	}
	return f.latencies[0]
}

// LatencyMax returns the largest sampled latency, or 0 without samples.
func (f FrozenMeter) LatencyMax() time.Duration {
	if len(f.latencies) == 0 {
		return 0
	}
	return f.latencies[len(f.latencies)-1]
}

// LatencyMean returns the average sampled latency, or 0 without
// samples.
func (f FrozenMeter) LatencyMean() time.Duration {
	if len(f.latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range f.latencies {
		sum += l
	}
	return sum / time.Duration(len(f.latencies))
}

// LatencyPercentile returns the p-th percentile (p in [0, 1]) of the
// sampled latencies by rank, or 0 without samples.
func (f FrozenMeter) LatencyPercentile(p float64) time.Duration {
	if len(f.latencies) == 0 {
		return 0
	}
	index := int(p * float64(len(f.latencies)))
	if index >= len(f.latencies) {
		index = len(f.latencies) - 1
	}
	return f.latencies[index]
}
