package trace

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/golang/snappy"

	"github.com/keyline/keyline/pkg/request"
)

// Trace files are a snappy-compressed block: a fixed header followed by
// length-prefixed records. The format exists so traces captured by
// external tooling can be replayed through the harness; it is not a
// capture mechanism for the harness's own streams.
const (
	traceMagic   uint32 = 0x4B4C5452 // "KLTR"
	traceVersion uint32 = 1

	traceHeaderSize = 16
	recordFixedSize = 1 + 8 + 4 + 4 // op, key, scan amount, value length
)

// WriteFile serializes the trace to path, snappy-compressed.
func (t *Trace) WriteFile(path string) error {
	size := traceHeaderSize
	for _, r := range t.requests {
		size += recordFixedSize + len(r.Value)
	}
	buf := make([]byte, 0, size)

	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], traceMagic)
	buf = append(buf, scratch[:4]...)
	binary.LittleEndian.PutUint32(scratch[:4], traceVersion)
	buf = append(buf, scratch[:4]...)
	binary.LittleEndian.PutUint64(scratch[:], uint64(len(t.requests)))
	buf = append(buf, scratch[:]...)

	for _, r := range t.requests {
		buf = append(buf, byte(r.Op))
		binary.LittleEndian.PutUint64(scratch[:], uint64(r.Key))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint32(scratch[:4], r.ScanAmount)
		buf = append(buf, scratch[:4]...)
		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(r.Value)))
		buf = append(buf, scratch[:4]...)
		buf = append(buf, r.Value...)
	}

	if err := os.WriteFile(path, snappy.Encode(nil, buf), 0o644); err != nil {
		return fmt.Errorf("writing trace file: %w", err)
	}
	return nil
}

// ReadFile loads a trace previously written with WriteFile.
func ReadFile(path string) (*Trace, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace file: %w", err)
	}
	buf, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing trace file: %w", err)
	}
	if len(buf) < traceHeaderSize {
		return nil, fmt.Errorf("trace file %s is truncated", path)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != traceMagic {
		return nil, fmt.Errorf("%s is not a trace file", path)
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != traceVersion {
		return nil, fmt.Errorf("unsupported trace file version %d", v)
	}
	count := binary.LittleEndian.Uint64(buf[8:16])

	reqs := make([]request.Request, 0, count)
	off := traceHeaderSize
	for i := uint64(0); i < count; i++ {
		if len(buf)-off < recordFixedSize {
			return nil, fmt.Errorf("trace file %s is truncated at record %d", path, i)
		}
		r := request.Request{
			Op:         request.Op(buf[off]),
			Key:        request.Key(binary.LittleEndian.Uint64(buf[off+1 : off+9])),
			ScanAmount: binary.LittleEndian.Uint32(buf[off+9 : off+13]),
		}
		valueLen := int(binary.LittleEndian.Uint32(buf[off+13 : off+17]))
		off += recordFixedSize
		if len(buf)-off < valueLen {
			return nil, fmt.Errorf("trace file %s is truncated at record %d", path, i)
		}
		if valueLen > 0 {
			r.Value = buf[off : off+valueLen : off+valueLen]
			off += valueLen
		}
		reqs = append(reqs, r)
	}
	return &Trace{requests: reqs}, nil
}
