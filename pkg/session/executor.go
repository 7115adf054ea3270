package session

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/keyline/keyline/pkg/db"
	"github.com/keyline/keyline/pkg/metrics"
	"github.com/keyline/keyline/pkg/request"
)

// Producer is the stream of requests one executor thread consumes.
// Prepare runs on the executor's own thread before the run starts;
// Next must only be called while HasNext reports true.
type Producer interface {
	Prepare() error
	HasNext() bool
	Next() request.Request
}

// executor issues one producer's requests against the database on a
// single pool thread and meters the outcomes.
type executor struct {
	database db.Database
	tracker  *metrics.Tracker
	opts     RunOptions
	threadID int

	samples *bufio.Writer
	file    *os.File
}

func newExecutor(database db.Database, tracker *metrics.Tracker, opts RunOptions, threadID int) *executor {
	return &executor{database: database, tracker: tracker, opts: opts, threadID: threadID}
}

func (e *executor) openSampleFile() error {
	if e.opts.ThroughputSamplePeriod == 0 {
		return nil
	}
	path := filepath.Join(e.opts.OutputDir,
		fmt.Sprintf("%s%d.csv", e.opts.ThroughputOutputFilePrefix, e.threadID))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("session: failed to create throughput file: %w", err)
	}
	e.file = f
	e.samples = bufio.NewWriter(f)
	if _, err := fmt.Fprintln(e.samples, "mrecords_per_s,elapsed_ns"); err != nil {
		f.Close()
		return fmt.Errorf("session: failed to write throughput header: %w", err)
	}
	return nil
}

func (e *executor) writeSample() error {
	s := e.tracker.GetSample()
	e.tracker.ResetSample()
	_, err := fmt.Fprintf(e.samples, "%.6f,%d\n", s.MRecordsPerSecond(), s.Elapsed.Nanoseconds())
	return err
}

func (e *executor) closeSampleFile() error {
	if e.file == nil {
		return nil
	}
	if err := e.samples.Flush(); err != nil {
		e.file.Close()
		return err
	}
	return e.file.Close()
}

// xorPrefix folds the first bytes of each read value into a running
// checksum so value reads cannot be optimized away.
func xorPrefix(acc uint32, value []byte) uint32 {
	if len(value) < 4 {
		return acc
	}
	return acc ^ binary.LittleEndian.Uint32(value)
}

// run consumes the producer until exhaustion. It is called on the
// executor's pool thread after the start flag is raised.
func (e *executor) run(p Producer) error {
	if err := e.openSampleFile(); err != nil {
		return err
	}
	defer e.closeSampleFile()

	e.tracker.ResetSample()
	var readXOR uint32
	var issued uint64
	for p.HasNext() {
		req := p.Next()
		timed := issued%e.opts.LatencySamplePeriod == 0

		var start time.Time
		if timed {
			start = time.Now()
		}

		var (
			succeeded bool
			failure   error
		)
		switch req.Op {
		case request.OpRead:
			value, ok := e.database.Read(req.Key)
			succeeded = ok
			if ok {
				readXOR = xorPrefix(readXOR, value)
			}
			var latency time.Duration
			if timed {
				latency = time.Since(start)
			}
			e.tracker.RecordRead(latency, timed, uint64(len(value)), ok)

		case request.OpNegativeRead:
			// The key carries an unreadable tag; finding it stored
			// means the database returned a record it was never given.
			value, ok := e.database.Read(req.Key)
			succeeded = !ok
			if ok {
				readXOR = xorPrefix(readXOR, value)
			}
			var latency time.Duration
			if timed {
				latency = time.Since(start)
			}
			e.tracker.RecordRead(latency, timed, 0, succeeded)

		case request.OpInsert:
			ok := e.database.Insert(req.Key, req.Value)
			succeeded = ok
			var latency time.Duration
			if timed {
				latency = time.Since(start)
			}
			// Inserts grow the store by the key as well as the value.
			e.tracker.RecordWrite(latency, timed, uint64(len(req.Value))+8, ok)

		case request.OpUpdate:
			ok := e.database.Update(req.Key, req.Value)
			succeeded = ok
			var latency time.Duration
			if timed {
				latency = time.Since(start)
			}
			e.tracker.RecordWrite(latency, timed, uint64(len(req.Value)), ok)

		case request.OpReadModifyWrite:
			value, ok := e.database.Read(req.Key)
			if ok {
				readXOR = xorPrefix(readXOR, value)
				ok = e.database.Update(req.Key, req.Value)
			}
			succeeded = ok
			var latency time.Duration
			if timed {
				latency = time.Since(start)
			}
			e.tracker.RecordWrite(latency, timed, uint64(len(req.Value)), ok)

		case request.OpScan:
			records, ok := e.database.Scan(req.Key, req.ScanAmount)
			succeeded = ok
			var scannedBytes uint64
			for _, kv := range records {
				readXOR = xorPrefix(readXOR, kv.Value)
				scannedBytes += uint64(len(kv.Value))
			}
			var latency time.Duration
			if timed {
				latency = time.Since(start)
			}
			e.tracker.RecordScan(latency, timed, scannedBytes, uint64(len(records)), ok)
			if ok && e.opts.ExpectScanAmountFound && uint32(len(records)) < req.ScanAmount {
				failure = fmt.Errorf("session: scan at key %#x returned %d of %d records",
					uint64(req.Key), len(records), req.ScanAmount)
			}

		case request.OpDelete:
			ok := e.database.Delete(req.Key)
			succeeded = ok
			var latency time.Duration
			if timed {
				latency = time.Since(start)
			}
			e.tracker.RecordDelete(latency, timed, ok)

		default:
			return fmt.Errorf("session: unknown operation %v", req.Op)
		}

		if failure != nil {
			return failure
		}
		if e.opts.ExpectRequestSuccess && !succeeded {
			return fmt.Errorf("session: %v of key %#x failed", req.Op, uint64(req.Key))
		}

		issued++
		if e.opts.ThroughputSamplePeriod != 0 && issued%e.opts.ThroughputSamplePeriod == 0 {
			if err := e.writeSample(); err != nil {
				return fmt.Errorf("session: failed to write throughput sample: %w", err)
			}
		}
	}
	e.tracker.SetReadXOR(readXOR)
	return nil
}
