package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyline/keyline/pkg/db"
	"github.com/keyline/keyline/pkg/request"
	"github.com/keyline/keyline/pkg/trace"
)

func TestFlag(t *testing.T) {
	f := NewFlag()
	assert.False(t, f.Raised())
	f.Raise()
	assert.True(t, f.Raised())
	f.Wait() // must not block once raised
	f.Raise() // raising again is harmless
}

func TestPoolRunsJobsInOrder(t *testing.T) {
	p, err := newPool(1, nil, nil, nil)
	require.NoError(t, err)
	defer p.shutdown()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		p.submit(func() { order = append(order, i) })
	}
	p.wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPoolLifecycleHooks(t *testing.T) {
	var started, stopped atomic.Int32
	p, err := newPool(3, nil,
		func(int) { started.Add(1) },
		func(int) { stopped.Add(1) })
	require.NoError(t, err)
	p.submit(func() {})
	p.wait()
	p.shutdown()
	assert.Equal(t, int32(3), started.Load())
	assert.Equal(t, int32(3), stopped.Load())
}

func TestPoolRejectsBadCoreMap(t *testing.T) {
	_, err := newPool(2, []int{0}, nil, nil)
	assert.Error(t, err)
}

// scriptedWorkload hands each thread a fixed request list.
type scriptedWorkload struct {
	perThread [][]request.Request
}

type scriptedProducer struct {
	requests []request.Request
	next     int
}

func (p *scriptedProducer) Prepare() error { return nil }
func (p *scriptedProducer) HasNext() bool  { return p.next < len(p.requests) }
func (p *scriptedProducer) Next() request.Request {
	r := p.requests[p.next]
	p.next++
	return r
}

func (w *scriptedWorkload) GetProducers(numProducers int) ([]*scriptedProducer, error) {
	producers := make([]*scriptedProducer, numProducers)
	for i := range producers {
		producers[i] = &scriptedProducer{requests: w.perThread[i]}
	}
	return producers, nil
}

func newTestSession(t *testing.T, numThreads int) (*Session, *db.MemDB) {
	t.Helper()
	mem := db.NewMemDB()
	s, err := NewSession(mem, numThreads, nil)
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	t.Cleanup(func() {
		require.NoError(t, s.Terminate())
	})
	return s, mem
}

func TestSessionLifecycle(t *testing.T) {
	mem := db.NewMemDB()
	s, err := NewSession(mem, 2, nil)
	require.NoError(t, err)

	// Operations before Initialize are rejected.
	err = s.ReplayBulkLoadTrace(&trace.BulkLoadTrace{})
	assert.Error(t, err)

	require.NoError(t, s.Initialize())
	require.NoError(t, s.Initialize()) // idempotent
	require.NoError(t, s.Terminate())
	require.NoError(t, s.Terminate()) // idempotent
	assert.Error(t, s.Initialize())   // no restart after Terminate
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(nil, 1, nil)
	assert.Error(t, err)
	_, err = NewSession(db.NewMemDB(), 0, nil)
	assert.Error(t, err)
	_, err = NewSession(db.NewMemDB(), 2, []int{0})
	assert.Error(t, err)
}

func TestRunWorkloadMetersOperations(t *testing.T) {
	s, mem := newTestSession(t, 2)

	value := []byte("0123456789")
	w := &scriptedWorkload{perThread: [][]request.Request{
		{
			{Op: request.OpInsert, Key: 1, Value: value},
			{Op: request.OpRead, Key: 1},
			{Op: request.OpUpdate, Key: 1, Value: value},
			{Op: request.OpReadModifyWrite, Key: 1, Value: value},
		},
		{
			{Op: request.OpInsert, Key: 100, Value: value},
			{Op: request.OpInsert, Key: 101, Value: value},
			{Op: request.OpScan, Key: 100, ScanAmount: 2},
			{Op: request.OpDelete, Key: 101},
			{Op: request.OpRead, Key: 999}, // miss
		},
	}}

	res, err := RunWorkload[*scriptedProducer](s, w, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), res.Reads().NumRequests())
	assert.Equal(t, uint64(1), res.NumFailedReads())
	// 3 inserts + 1 update + 1 read-modify-write.
	assert.Equal(t, uint64(5), res.Writes().NumRequests())
	assert.Equal(t, uint64(1), res.Scans().NumRequests())
	assert.Equal(t, uint64(2), res.Scans().NumRecords())
	assert.Equal(t, uint64(1), res.Deletes().NumRequests())
	// Inserts account for key bytes on top of the payload.
	assert.Equal(t, uint64(3*(10+8)+2*10), res.Writes().TotalBytes())

	assert.Equal(t, 2, mem.Size()) // keys 1 and 100 remain
}

func TestRunWorkloadNegativeRead(t *testing.T) {
	s, _ := newTestSession(t, 1)

	key := request.Key(0).Unreadable()
	w := &scriptedWorkload{perThread: [][]request.Request{
		{{Op: request.OpNegativeRead, Key: key}},
	}}
	res, err := RunWorkload[*scriptedProducer](s, w, RunOptions{ExpectRequestSuccess: true})
	require.NoError(t, err)
	// A negative read succeeds precisely because the key is absent.
	assert.Equal(t, uint64(1), res.Reads().NumRequests())
	assert.Equal(t, uint64(0), res.NumFailedReads())
}

func TestRunWorkloadExpectRequestSuccess(t *testing.T) {
	s, _ := newTestSession(t, 1)

	w := &scriptedWorkload{perThread: [][]request.Request{
		{{Op: request.OpRead, Key: 42}},
	}}
	_, err := RunWorkload[*scriptedProducer](s, w, RunOptions{ExpectRequestSuccess: true})
	assert.Error(t, err)
}

func TestRunWorkloadExpectScanAmountFound(t *testing.T) {
	s, _ := newTestSession(t, 1)

	w := &scriptedWorkload{perThread: [][]request.Request{
		{
			{Op: request.OpInsert, Key: 1, Value: []byte("v")},
			{Op: request.OpScan, Key: 1, ScanAmount: 5},
		},
	}}
	_, err := RunWorkload[*scriptedProducer](s, w, RunOptions{ExpectScanAmountFound: true})
	assert.Error(t, err)
}

func TestRunWorkloadThroughputSamples(t *testing.T) {
	s, _ := newTestSession(t, 2)
	dir := t.TempDir()

	reqs := make([]request.Request, 10)
	for i := range reqs {
		reqs[i] = request.Request{Op: request.OpInsert, Key: request.Key(i), Value: []byte("v")}
	}
	w := &scriptedWorkload{perThread: [][]request.Request{reqs[:5], reqs[5:]}}

	_, err := RunWorkload[*scriptedProducer](s, w, RunOptions{
		ThroughputSamplePeriod:     2,
		OutputDir:                  dir,
		ThroughputOutputFilePrefix: "tp-",
	})
	require.NoError(t, err)

	for id := 0; id < 2; id++ {
		data, err := os.ReadFile(filepath.Join(dir, "tp-"+string(rune('0'+id))+".csv"))
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Equal(t, "mrecords_per_s,elapsed_ns", lines[0])
		// 5 requests at a period of 2 yields 2 samples.
		assert.Len(t, lines, 3)
	}
}

func TestReplayBulkLoadAndTrace(t *testing.T) {
	s, mem := newTestSession(t, 2)

	loadReqs := []request.Request{
		{Op: request.OpInsert, Key: 1, Value: []byte("one!")},
		{Op: request.OpInsert, Key: 2, Value: []byte("two!")},
	}
	load, err := trace.NewBulkLoadTrace(loadReqs)
	require.NoError(t, err)
	require.NoError(t, s.ReplayBulkLoadTrace(load))
	assert.Equal(t, 2, mem.Size())

	replay := trace.NewTrace([]request.Request{
		{Op: request.OpRead, Key: 1},
		{Op: request.OpRead, Key: 2},
	})
	res, err := ReplayTrace(s, replay, RunOptions{ExpectRequestSuccess: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Reads().NumRequests())
	assert.Equal(t, uint64(8), res.Reads().TotalBytes())
}
