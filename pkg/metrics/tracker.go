package metrics

import (
	"time"
)

// Tracker collects the measurements of a single executor thread.
// Reads, writes (inserts, updates, and read-modify-writes), scans, and
// deletes each feed their own meter; failures only bump counters.
type Tracker struct {
	reads   *Meter
	writes  *Meter
	scans   *Meter
	deletes *Meter

	failedReads   uint64
	failedWrites  uint64
	failedScans   uint64
	failedDeletes uint64

	readXOR uint32

	lastSampleRecords uint64
	lastSampleTime    time.Time
}

// NewTracker returns a tracker ready for use by one executor.
func NewTracker() *Tracker {
	return &Tracker{
		reads:          NewMeter(),
		writes:         NewMeter(),
		scans:          NewMeter(),
		deletes:        NewMeter(),
		lastSampleTime: time.Now(),
	}
}

// RecordRead notes one read. Failed reads count but contribute no
// latency or bytes.
func (t *Tracker) RecordRead(latency time.Duration, timed bool, bytes uint64, succeeded bool) {
	if !succeeded {
		t.failedReads++
		return
	}
	t.reads.Record(latency, timed, bytes)
}

// RecordWrite notes one insert, update, or read-modify-write.
func (t *Tracker) RecordWrite(latency time.Duration, timed bool, bytes uint64, succeeded bool) {
	if !succeeded {
		t.failedWrites++
		return
	}
	t.writes.Record(latency, timed, bytes)
}

// RecordScan notes one scan that touched scannedRecords records.
func (t *Tracker) RecordScan(latency time.Duration, timed bool, bytes, scannedRecords uint64, succeeded bool) {
	if !succeeded {
		t.failedScans++
		return
	}
	t.scans.RecordMultiple(latency, timed, bytes, scannedRecords)
}

// RecordDelete notes one delete. Deletes move no payload bytes.
func (t *Tracker) RecordDelete(latency time.Duration, timed bool, succeeded bool) {
	if !succeeded {
		t.failedDeletes++
		return
	}
	t.deletes.Record(latency, timed, 0)
}

// SetReadXOR stores the executor's running XOR of read payload
// prefixes. Keeping the value observable stops the compiler from
// eliding the reads.
func (t *Tracker) SetReadXOR(x uint32) { t.readXOR = x }

// ReadXOR returns the stored read checksum.
func (t *Tracker) ReadXOR() uint32 { return t.readXOR }

// ThroughputSample is a windowed record count used for mid-run
// throughput reporting.
type ThroughputSample struct {
	Records uint64
	Elapsed time.Duration
}

// MRecordsPerSecond returns the sample's throughput in millions of
// records per second.
func (s ThroughputSample) MRecordsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Records) / float64(s.Elapsed.Microseconds())
}

func (t *Tracker) totalRecords() uint64 {
	return t.reads.RecordCount() + t.writes.RecordCount() +
		t.scans.RecordCount() + t.deletes.RecordCount()
}

// GetSample returns the records processed and time elapsed since the
// last call to ResetSample.
func (t *Tracker) GetSample() ThroughputSample {
	return ThroughputSample{
		Records: t.totalRecords() - t.lastSampleRecords,
		Elapsed: time.Since(t.lastSampleTime),
	}
}

// ResetSample starts a new throughput window at the current instant.
func (t *Tracker) ResetSample() {
	t.lastSampleRecords = t.totalRecords()
	t.lastSampleTime = time.Now()
}

// Finalize aggregates the trackers of all executors into a result for
// a run that took runTime.
func Finalize(runTime time.Duration, trackers []*Tracker) *BenchmarkResult {
	reads := make([]*Meter, len(trackers))
	writes := make([]*Meter, len(trackers))
	scans := make([]*Meter, len(trackers))
	deletes := make([]*Meter, len(trackers))
	res := &BenchmarkResult{runTime: runTime}
	for i, tr := range trackers {
		reads[i] = tr.reads
		writes[i] = tr.writes
		scans[i] = tr.scans
		deletes[i] = tr.deletes
		res.failedReads += tr.failedReads
		res.failedWrites += tr.failedWrites
		res.failedScans += tr.failedScans
		res.failedDeletes += tr.failedDeletes
		res.readXOR ^= tr.readXOR
	}
	res.reads = FreezeGroup(reads)
	res.writes = FreezeGroup(writes)
	res.scans = FreezeGroup(scans)
	res.deletes = FreezeGroup(deletes)
	return res
}
