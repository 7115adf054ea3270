package metrics

import (
	"fmt"
	"io"
	"time"
)

// BenchmarkResult holds the aggregate outcome of one workload run.
type BenchmarkResult struct {
	runTime time.Duration

	reads   FrozenMeter
	writes  FrozenMeter
	scans   FrozenMeter
	deletes FrozenMeter

	failedReads   uint64
	failedWrites  uint64
	failedScans   uint64
	failedDeletes uint64

	readXOR uint32
}

// RunTime returns the wall-clock duration of the run.
func (r *BenchmarkResult) RunTime() time.Duration { return r.runTime }

// Reads returns the frozen read meter.
func (r *BenchmarkResult) Reads() FrozenMeter { return r.reads }

// Writes returns the frozen write meter (inserts, updates, and
// read-modify-writes).
func (r *BenchmarkResult) Writes() FrozenMeter { return r.writes }

// Scans returns the frozen scan meter.
func (r *BenchmarkResult) Scans() FrozenMeter { return r.scans }

// Deletes returns the frozen delete meter.
func (r *BenchmarkResult) Deletes() FrozenMeter { return r.deletes }

// NumFailedReads returns the number of reads that missed.
func (r *BenchmarkResult) NumFailedReads() uint64 { return r.failedReads }

// NumFailedWrites returns the number of writes that were rejected.
func (r *BenchmarkResult) NumFailedWrites() uint64 { return r.failedWrites }

// NumFailedScans returns the number of scans that failed outright.
func (r *BenchmarkResult) NumFailedScans() uint64 { return r.failedScans }

// NumFailedDeletes returns the number of deletes of absent keys.
func (r *BenchmarkResult) NumFailedDeletes() uint64 { return r.failedDeletes }

// ReadXOR returns the combined checksum of read payload prefixes.
func (r *BenchmarkResult) ReadXOR() uint32 { return r.readXOR }

func (r *BenchmarkResult) totalRequests() uint64 {
	return r.reads.NumRequests() + r.writes.NumRequests() +
		r.scans.NumRequests() + r.deletes.NumRequests()
}

func (r *BenchmarkResult) totalRecords() uint64 {
	return r.reads.NumRecords() + r.writes.NumRecords() +
		r.scans.NumRecords() + r.deletes.NumRecords()
}

// KRequestsPerSecond returns successful request throughput in
// thousands per second.
func (r *BenchmarkResult) KRequestsPerSecond() float64 {
	if r.runTime <= 0 {
		return 0
	}
	return float64(r.totalRequests()) / r.runTime.Seconds() / 1000.0
}

// KRecordsPerSecond returns record throughput in thousands per second.
// Scans contribute every record they return.
func (r *BenchmarkResult) KRecordsPerSecond() float64 {
	if r.runTime <= 0 {
		return 0
	}
	return float64(r.totalRecords()) / r.runTime.Seconds() / 1000.0
}

const mib = 1024.0 * 1024.0

// ReadMiBPerSecond returns the read and scan payload bandwidth.
func (r *BenchmarkResult) ReadMiBPerSecond() float64 {
	if r.runTime <= 0 {
		return 0
	}
	return float64(r.reads.TotalBytes()+r.scans.TotalBytes()) / mib / r.runTime.Seconds()
}

// WriteMiBPerSecond returns the write payload bandwidth.
func (r *BenchmarkResult) WriteMiBPerSecond() float64 {
	if r.runTime <= 0 {
		return 0
	}
	return float64(r.writes.TotalBytes()) / mib / r.runTime.Seconds()
}

// csvHeader is the fixed column layout of result rows.
const csvHeader = "total_time,num_reads,num_writes,num_scans,num_deletes," +
	"failed_reads,failed_writes,failed_scans,failed_deletes,num_scanned_keys," +
	"reads_ns_p99,reads_ns_p50,writes_ns_p99,writes_ns_p50," +
	"krequests_per_s,krecords_per_s,read_mib_per_s,write_mib_per_s"

// WriteCSVHeader writes the result column names followed by a newline.
func WriteCSVHeader(w io.Writer) error {
	_, err := fmt.Fprintln(w, csvHeader)
	return err
}

// WriteCSV writes the result as one CSV row. Times are in nanoseconds.
func (r *BenchmarkResult) WriteCSV(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%.3f,%.3f,%.3f,%.3f\n",
		r.runTime.Nanoseconds(),
		r.reads.NumRequests(),
		r.writes.NumRequests(),
		r.scans.NumRequests(),
		r.deletes.NumRequests(),
		r.failedReads,
		r.failedWrites,
		r.failedScans,
		r.failedDeletes,
		r.scans.NumRecords(),
		r.reads.LatencyPercentile(0.99).Nanoseconds(),
		r.reads.LatencyPercentile(0.50).Nanoseconds(),
		r.writes.LatencyPercentile(0.99).Nanoseconds(),
		r.writes.LatencyPercentile(0.50).Nanoseconds(),
		r.KRequestsPerSecond(),
		r.KRecordsPerSecond(),
		r.ReadMiBPerSecond(),
		r.WriteMiBPerSecond(),
	)
	return err
}

// String renders a human-readable summary of the result.
func (r *BenchmarkResult) String() string {
	return fmt.Sprintf(
		"total time:      %v\n"+
			"reads:           %d (%d failed, p50 %v, p99 %v)\n"+
			"writes:          %d (%d failed, p50 %v, p99 %v)\n"+
			"scans:           %d (%d failed, %d keys scanned)\n"+
			"deletes:         %d (%d failed)\n"+
			"throughput:      %.3f krequests/s, %.3f krecords/s\n"+
			"read bandwidth:  %.3f MiB/s\n"+
			"write bandwidth: %.3f MiB/s",
		r.runTime,
		r.reads.NumRequests(), r.failedReads,
		r.reads.LatencyPercentile(0.50), r.reads.LatencyPercentile(0.99),
		r.writes.NumRequests(), r.failedWrites,
		r.writes.LatencyPercentile(0.50), r.writes.LatencyPercentile(0.99),
		r.scans.NumRequests(), r.failedScans, r.scans.NumRecords(),
		r.deletes.NumRequests(), r.failedDeletes,
		r.KRequestsPerSecond(), r.KRecordsPerSecond(),
		r.ReadMiBPerSecond(), r.WriteMiBPerSecond(),
	)
}
