package db

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/keyline/keyline/pkg/request"
	"github.com/keyline/keyline/pkg/trace"
)

const memShards = 64

type memShard struct {
	mu   sync.RWMutex
	data map[request.Key][]byte
}

// MemDB is a sharded in-memory store used for interface validation and
// as the harness's own yardstick. Point operations touch one shard;
// scans gather across all shards.
type MemDB struct {
	shards [memShards]memShard
}

// NewMemDB returns an empty in-memory store.
func NewMemDB() *MemDB {
	m := &MemDB{}
	for i := range m.shards {
		m.shards[i].data = make(map[request.Key][]byte)
	}
	return m
}

func (m *MemDB) shard(key request.Key) *memShard {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return &m.shards[murmur3.Sum64(buf[:])%memShards]
}

// InitializeWorker implements Database.
func (m *MemDB) InitializeWorker(threadID int) {}

// InitializeDatabase implements Database.
func (m *MemDB) InitializeDatabase() error { return nil }

// ShutdownWorker implements Database.
func (m *MemDB) ShutdownWorker(threadID int) {}

// ShutdownDatabase implements Database.
func (m *MemDB) ShutdownDatabase() error { return nil }

// BulkLoad implements Database.
func (m *MemDB) BulkLoad(load *trace.BulkLoadTrace) error {
	for _, req := range load.Requests() {
		s := m.shard(req.Key)
		s.mu.Lock()
		s.data[req.Key] = append([]byte(nil), req.Value...)
		s.mu.Unlock()
	}
	return nil
}

// Read implements Database.
func (m *MemDB) Read(key request.Key) ([]byte, bool) {
	s := m.shard(key)
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	return v, ok
}

// Insert implements Database.
func (m *MemDB) Insert(key request.Key, value []byte) bool {
	s := m.shard(key)
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return true
}

// Update implements Database.
func (m *MemDB) Update(key request.Key, value []byte) bool {
	s := m.shard(key)
	s.mu.Lock()
	_, ok := s.data[key]
	if ok {
		s.data[key] = append([]byte(nil), value...)
	}
	s.mu.Unlock()
	return ok
}

// Delete implements Database.
func (m *MemDB) Delete(key request.Key) bool {
	s := m.shard(key)
	s.mu.Lock()
	_, ok := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()
	return ok
}

// Scan implements Database. The hash sharding scatters the keyspace,
// so a scan collects matches from every shard and sorts them.
func (m *MemDB) Scan(start request.Key, amount uint32) ([]KV, bool) {
	var out []KV
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for k, v := range s.data {
			if k >= start {
				out = append(out, KV{Key: k, Value: append([]byte(nil), v...)})
			}
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if uint32(len(out)) > amount {
		out = out[:amount]
	}
	return out, true
}

// Size returns the number of stored records.
func (m *MemDB) Size() int {
	total := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		total += len(s.data)
		s.mu.RUnlock()
	}
	return total
}
