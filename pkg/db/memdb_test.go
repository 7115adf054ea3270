package db

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyline/keyline/pkg/request"
	"github.com/keyline/keyline/pkg/trace"
)

func makeLoadTrace(t *testing.T, keys ...request.Key) *trace.BulkLoadTrace {
	t.Helper()
	reqs := make([]request.Request, len(keys))
	for i, k := range keys {
		reqs[i] = request.Request{
			Op:    request.OpInsert,
			Key:   k,
			Value: []byte(fmt.Sprintf("value-%d", uint64(k))),
		}
	}
	lt, err := trace.NewBulkLoadTrace(reqs)
	require.NoError(t, err)
	return lt
}

func TestMemDBPointOps(t *testing.T) {
	m := NewMemDB()
	require.NoError(t, m.InitializeDatabase())

	assert.True(t, m.Insert(10, []byte("a")))
	v, ok := m.Read(10)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), v)

	_, ok = m.Read(11)
	assert.False(t, ok)

	assert.True(t, m.Update(10, []byte("b")))
	v, _ = m.Read(10)
	assert.Equal(t, []byte("b"), v)

	// Updates of absent keys are rejected.
	assert.False(t, m.Update(11, []byte("c")))

	assert.True(t, m.Delete(10))
	assert.False(t, m.Delete(10))
	_, ok = m.Read(10)
	assert.False(t, ok)

	require.NoError(t, m.ShutdownDatabase())
}

func TestMemDBBulkLoad(t *testing.T) {
	m := NewMemDB()
	require.NoError(t, m.BulkLoad(makeLoadTrace(t, 1, 2, 3)))
	assert.Equal(t, 3, m.Size())
	v, ok := m.Read(2)
	assert.True(t, ok)
	assert.Equal(t, []byte("value-2"), v)
}

func TestMemDBScanOrderedFromStart(t *testing.T) {
	m := NewMemDB()
	require.NoError(t, m.BulkLoad(makeLoadTrace(t, 50, 10, 30, 20, 40)))

	out, ok := m.Scan(15, 3)
	require.True(t, ok)
	require.Len(t, out, 3)
	assert.Equal(t, request.Key(20), out[0].Key)
	assert.Equal(t, request.Key(30), out[1].Key)
	assert.Equal(t, request.Key(40), out[2].Key)

	// The start key itself is included when present.
	out, ok = m.Scan(30, 10)
	require.True(t, ok)
	require.Len(t, out, 3)
	assert.Equal(t, request.Key(30), out[0].Key)

	// Scanning past the end returns the tail, not a failure.
	out, ok = m.Scan(60, 5)
	require.True(t, ok)
	assert.Empty(t, out)
}

func TestMemDBConcurrentAccess(t *testing.T) {
	m := NewMemDB()
	const (
		threads       = 8
		keysPerThread = 500
	)
	var wg sync.WaitGroup
	for tid := 0; tid < threads; tid++ {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			base := request.Key(tid * keysPerThread)
			for i := 0; i < keysPerThread; i++ {
				k := base + request.Key(i)
				m.Insert(k, []byte{byte(tid)})
				if v, ok := m.Read(k); assert.True(t, ok) {
					assert.Equal(t, []byte{byte(tid)}, v)
				}
			}
		}(tid)
	}
	wg.Wait()
	assert.Equal(t, threads*keysPerThread, m.Size())
}
