// Package request defines the key, operation, and request types exchanged
// between workload producers and the benchmark runner.
package request

import "fmt"

// Key is a 64-bit record identifier. The upper 48 bits carry the logical
// key drawn from a distribution; the low 16 bits carry provenance tags
// (phase and producer) so that concurrently inserting producers can never
// collide with each other or with the bulk-loaded dataset.
type Key uint64

const (
	// MaxLogicalKey is the largest logical key that fits above the tag bytes.
	MaxLogicalKey uint64 = (1 << 48) - 1

	logicalShift = 16
	phaseShift   = 8
	phaseMask    = 0xFF << phaseShift
	producerMask = 0xFF
)

// Tag combines a logical key with phase and producer tag bytes.
// The logical key must not exceed MaxLogicalKey.
func Tag(logical uint64, phase, producer uint8) Key {
	return Key(logical<<logicalShift) | Key(phase)<<phaseShift | Key(producer)
}

// TagAll tags every key in keys in place, treating the existing key value
// as the logical key.
func TagAll(keys []Key, phase, producer uint8) {
	for i, k := range keys {
		keys[i] = Tag(uint64(k), phase, producer)
	}
}

// Logical returns the logical (untagged) portion of the key.
func (k Key) Logical() uint64 { return uint64(k) >> logicalShift }

// Phase returns the phase tag byte.
func (k Key) Phase() uint8 { return uint8((k & phaseMask) >> phaseShift) }

// Producer returns the producer tag byte.
func (k Key) Producer() uint8 { return uint8(k & producerMask) }

// Unreadable returns a variant of k whose phase tag byte is saturated.
// No generated key ever carries a saturated phase byte, so the returned
// key is guaranteed absent from the database. Used for reads that are
// expected to miss.
func (k Key) Unreadable() Key { return k | phaseMask }

func (k Key) String() string {
	return fmt.Sprintf("%d(p%d/w%d)", k.Logical(), k.Phase(), k.Producer())
}

// Op identifies a request type.
type Op uint8

const (
	OpRead Op = iota
	OpInsert
	OpUpdate
	OpScan
	OpReadModifyWrite
	OpNegativeRead
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpScan:
		return "scan"
	case OpReadModifyWrite:
		return "readmodifywrite"
	case OpNegativeRead:
		return "negativeread"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Request is a single operation to run against a database under test.
// Value is non-nil only for inserts, updates, and read-modify-writes;
// ScanAmount is meaningful only for scans.
type Request struct {
	Op         Op
	Key        Key
	ScanAmount uint32
	Value      []byte
}

// KeyRange is an inclusive range of logical keys.
type KeyRange struct {
	Min uint64
	Max uint64
}

// Size returns the number of keys in the range.
func (r KeyRange) Size() uint64 { return r.Max - r.Min + 1 }

// Contains reports whether the logical key k falls inside the range.
func (r KeyRange) Contains(k uint64) bool { return k >= r.Min && k <= r.Max }

// Validate checks that the range is well formed and representable.
func (r KeyRange) Validate() error {
	if r.Max < r.Min {
		return fmt.Errorf("key range max (%d) is below min (%d)", r.Max, r.Min)
	}
	if r.Max > MaxLogicalKey {
		return fmt.Errorf("key range max (%d) exceeds the largest logical key (%d)", r.Max, MaxLogicalKey)
	}
	return nil
}
