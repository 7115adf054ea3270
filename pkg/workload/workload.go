package workload

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/keyline/keyline/pkg/request"
	"github.com/keyline/keyline/pkg/trace"
)

// PhasedWorkload is a workload described by a declarative config: an
// initial dataset plus an ordered list of run phases. It synthesizes
// the dataset, accepts custom key lists, and hands out one Producer
// per worker.
type PhasedWorkload struct {
	cfg         *Config
	seed        uint64
	loadKeys    []request.Key
	customLists map[string][]request.Key
}

// LoadWorkloadFile builds a PhasedWorkload from a config file. The seed
// fixes every random choice the workload makes; recordSizeOverride
// applies when the file does not set record_size_bytes (0 for none).
func LoadWorkloadFile(path string, seed uint64, recordSizeOverride int) (*PhasedWorkload, error) {
	cfg, err := LoadConfigFile(path, recordSizeOverride)
	if err != nil {
		return nil, err
	}
	return NewPhasedWorkload(cfg, seed)
}

// ParseWorkload builds a PhasedWorkload from raw config bytes.
func ParseWorkload(data []byte, seed uint64, recordSizeOverride int) (*PhasedWorkload, error) {
	cfg, err := ParseConfig(data, recordSizeOverride)
	if err != nil {
		return nil, err
	}
	return NewPhasedWorkload(cfg, seed)
}

// NewPhasedWorkload builds a workload from an already validated config.
// Unless the config declares a custom dataset, the initial load keys
// are synthesized here, tagged as load keys, and sorted.
func NewPhasedWorkload(cfg *Config, seed uint64) (*PhasedWorkload, error) {
	w := &PhasedWorkload{
		cfg:         cfg,
		seed:        seed,
		customLists: make(map[string][]request.Key),
	}
	if cfg.UsingCustomDataset() {
		return w, nil
	}

	gen, err := makeGenerator(&cfg.Load.Distribution, cfg.Load.NumRecords)
	if err != nil {
		return nil, fmt.Errorf("load distribution: %w", err)
	}
	keys := make([]request.Key, cfg.Load.NumRecords)
	gen.Generate(rand.New(rand.NewSource(seed)), keys)
	request.TagAll(keys, 0, 0)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	w.loadKeys = keys
	return w, nil
}

// Config returns the workload's validated configuration.
func (w *PhasedWorkload) Config() *Config { return w.cfg }

// RecordSizeBytes returns the effective record size.
func (w *PhasedWorkload) RecordSizeBytes() int { return w.cfg.RecordSize() }

// SetCustomLoadDataset replaces the initial dataset with caller-supplied
// logical keys. The keys are tagged as load keys and sorted.
func (w *PhasedWorkload) SetCustomLoadDataset(keys []request.Key) error {
	if len(keys) == 0 {
		return fmt.Errorf("custom datasets must contain at least one key")
	}
	tagged := make([]request.Key, len(keys))
	for i, k := range keys {
		if uint64(k) > request.MaxLogicalKey {
			return fmt.Errorf("custom dataset key %d exceeds the largest logical key", uint64(k))
		}
		tagged[i] = request.Tag(uint64(k), 0, 0)
	}
	sort.Slice(tagged, func(i, j int) bool { return tagged[i] < tagged[j] })
	w.loadKeys = tagged
	return nil
}

// AddCustomInsertList registers a named list of logical keys that
// phases with a "custom" insert distribution consume.
func (w *PhasedWorkload) AddCustomInsertList(name string, keys []request.Key) error {
	if name == "" {
		return fmt.Errorf("custom key lists must be referenced by name")
	}
	for _, k := range keys {
		if uint64(k) > request.MaxLogicalKey {
			return fmt.Errorf("custom insert key %d exceeds the largest logical key", uint64(k))
		}
	}
	w.customLists[name] = keys
	return nil
}

// GetLoadTrace materializes the initial dataset as a bulk-load trace,
// with payloads sized to the configured record size. If sortRequests is
// false the insert order is shuffled, which better exercises engines
// whose load path is sensitive to key order.
func (w *PhasedWorkload) GetLoadTrace(sortRequests bool) (*trace.BulkLoadTrace, error) {
	if len(w.loadKeys) == 0 {
		return nil, fmt.Errorf("the workload has no dataset to load")
	}
	rng := rand.New(rand.NewSource(w.seed))
	vg := newValueGenerator(rng, w.cfg.ValueSize())

	keys := w.loadKeys
	if !sortRequests {
		shuffled := make([]request.Key, len(keys))
		copy(shuffled, keys)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		keys = shuffled
	}

	reqs := make([]request.Request, len(keys))
	for i, k := range keys {
		reqs[i] = request.Request{Op: request.OpInsert, Key: k, Value: vg.nextValue()}
	}
	return trace.NewBulkLoadTrace(reqs)
}

// GetProducers returns one prepared-to-run Producer per worker. The
// producer count is capped so the producer tag byte never saturates.
func (w *PhasedWorkload) GetProducers(numProducers int) ([]*Producer, error) {
	if numProducers <= 0 {
		return nil, fmt.Errorf("at least one producer is required")
	}
	if numProducers > MaxProducers {
		return nil, fmt.Errorf("too many producers (only %d are supported)", MaxProducers)
	}
	if len(w.loadKeys) == 0 {
		if w.cfg.UsingCustomDataset() {
			return nil, fmt.Errorf("the workload declares a custom dataset but none was set")
		}
		return nil, fmt.Errorf("the workload has no dataset")
	}

	coord := newCoordinator(w.loadKeys)
	producers := make([]*Producer, numProducers)
	for i := range producers {
		producers[i] = newProducer(w.cfg, coord, w.customLists,
			uint8(i), numProducers, w.seed^uint64(i))
	}
	return producers, nil
}
