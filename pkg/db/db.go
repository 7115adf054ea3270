// Package db defines the interface a key-value store implements to be
// driven by a benchmark session, along with reference backends.
package db

import (
	"github.com/keyline/keyline/pkg/request"
	"github.com/keyline/keyline/pkg/trace"
)

// KV is one record returned by a scan.
type KV struct {
	Key   request.Key
	Value []byte
}

// Database is the surface a store exposes to the benchmark. Lifecycle
// hooks bracket the run; the data operations are called concurrently
// by the executor threads and must be safe for that.
type Database interface {
	// InitializeWorker runs on each executor thread before any
	// requests are issued to it. threadID is in [0, numThreads).
	InitializeWorker(threadID int)

	// InitializeDatabase runs once before any workers start.
	InitializeDatabase() error

	// ShutdownWorker runs on each executor thread after its last
	// request.
	ShutdownWorker(threadID int)

	// ShutdownDatabase runs once after all workers have stopped.
	ShutdownDatabase() error

	// BulkLoad installs the load trace, typically via a bulk path
	// faster than per-key inserts.
	BulkLoad(load *trace.BulkLoadTrace) error

	// Read returns the value stored under key and whether it exists.
	Read(key request.Key) ([]byte, bool)

	// Insert stores a new record. Returns false if rejected.
	Insert(key request.Key, value []byte) bool

	// Update overwrites an existing record. Returns false if rejected.
	Update(key request.Key, value []byte) bool

	// Delete removes a record, reporting whether it was present.
	Delete(key request.Key) bool

	// Scan returns up to amount records starting at the smallest key
	// >= start, in ascending key order.
	Scan(start request.Key, amount uint32) ([]KV, bool)
}
