// Package workload turns a declarative phase-based configuration into
// deterministic per-worker request streams. A PhasedWorkload owns the
// bulk-loaded dataset and hands out one Producer per worker; producers
// share the live key space through a coordinator guarded by one mutex.
package workload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keyline/keyline/internal/dist"
	"github.com/keyline/keyline/internal/keygen"
	"github.com/keyline/keyline/pkg/request"
)

// Distribution type names accepted in workload configs. Insert and load
// sections take generator types (uniform, hotspot, linspace, custom);
// access sections take chooser types (uniform, zipfian,
// zipfian_clustered, latest). "zipfian" scatters the hot ranks across
// the key space; "zipfian_clustered" leaves them at the low indices.
const (
	DistUniform          = "uniform"
	DistZipfian          = "zipfian"
	DistZipfianClustered = "zipfian_clustered"
	DistLatest           = "latest"
	DistHotspot          = "hotspot"
	DistLinspace         = "linspace"
	DistCustom           = "custom"
)

// MaxPhases bounds the number of run phases; the phase tag byte must
// stay below the saturated value reserved for negative reads.
const MaxPhases = 254

// MaxProducers bounds the number of producers per workload so that the
// producer tag byte (producer id + 1) never saturates.
const MaxProducers = 254

// MinRecordSizeBytes is the smallest usable record: an 8-byte key plus
// at least one value byte.
const MinRecordSizeBytes = 9

// Config is the parsed form of a workload configuration file.
type Config struct {
	// RecordSizeBytes is the total record size (key plus value). If
	// zero, the override passed at load time applies.
	RecordSizeBytes int         `yaml:"record_size_bytes,omitempty"`
	Load            LoadConfig  `yaml:"load"`
	Run             []PhaseSpec `yaml:"run"`

	recordSize int
}

// LoadConfig describes the initial dataset.
type LoadConfig struct {
	NumRecords   uint64     `yaml:"num_records"`
	Distribution DistConfig `yaml:"distribution"`
}

// PhaseSpec is one stage of the run, with per-operation proportions.
// Absent operations have proportion zero.
type PhaseSpec struct {
	NumRequests     uint64      `yaml:"num_requests"`
	Read            *OpConfig   `yaml:"read,omitempty"`
	Scan            *ScanConfig `yaml:"scan,omitempty"`
	Update          *OpConfig   `yaml:"update,omitempty"`
	Insert          *OpConfig   `yaml:"insert,omitempty"`
	ReadModifyWrite *OpConfig   `yaml:"readmodifywrite,omitempty"`
	NegativeRead    *OpConfig   `yaml:"negativeread,omitempty"`
	Delete          *OpConfig   `yaml:"delete,omitempty"`
}

// OpConfig configures one operation within a phase.
type OpConfig struct {
	ProportionPct uint32     `yaml:"proportion_pct"`
	Distribution  DistConfig `yaml:"distribution"`
}

// ScanConfig additionally carries the maximum scan length.
type ScanConfig struct {
	OpConfig  `yaml:",inline"`
	MaxLength uint64 `yaml:"max_length"`
}

// DistConfig selects a distribution and its type-specific parameters.
type DistConfig struct {
	Type             string  `yaml:"type"`
	Theta            float64 `yaml:"theta,omitempty"`
	Salt             uint64  `yaml:"salt,omitempty"`
	RangeMin         uint64  `yaml:"range_min,omitempty"`
	RangeMax         uint64  `yaml:"range_max,omitempty"`
	HotRangeMin      uint64  `yaml:"hot_range_min,omitempty"`
	HotRangeMax      uint64  `yaml:"hot_range_max,omitempty"`
	HotProportionPct uint32  `yaml:"hot_proportion_pct,omitempty"`
	StartKey         uint64  `yaml:"start_key,omitempty"`
	StepSize         uint64  `yaml:"step_size,omitempty"`
	Name             string  `yaml:"name,omitempty"`
	Offset           uint64  `yaml:"offset,omitempty"`
}

// LoadConfigFile reads and validates a workload configuration.
// recordSizeOverride applies when the file does not set
// record_size_bytes; pass 0 for no override.
func LoadConfigFile(path string, recordSizeOverride int) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload config: %w", err)
	}
	return ParseConfig(data, recordSizeOverride)
}

// ParseConfig parses and validates a workload configuration document.
func ParseConfig(data []byte, recordSizeOverride int) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing workload config: %w", err)
	}
	if err := cfg.validate(recordSizeOverride); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal serializes the configuration back to YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// RecordSize returns the effective record size in bytes.
func (c *Config) RecordSize() int { return c.recordSize }

// ValueSize returns the record size minus the 8 bytes taken by the key.
func (c *Config) ValueSize() int { return c.recordSize - 8 }

// UsingCustomDataset reports whether the initial dataset must be
// supplied by the caller instead of being synthesized.
func (c *Config) UsingCustomDataset() bool {
	return c.Load.Distribution.Type == DistCustom
}

func (c *Config) validate(recordSizeOverride int) error {
	rs := c.RecordSizeBytes
	if rs == 0 {
		rs = recordSizeOverride
	}
	if rs < MinRecordSizeBytes {
		return fmt.Errorf("record size must be at least %d bytes (got %d)", MinRecordSizeBytes, rs)
	}
	c.recordSize = rs

	if !c.UsingCustomDataset() {
		if c.Load.NumRecords == 0 {
			return fmt.Errorf("load section must request at least one record")
		}
		if _, err := makeGenerator(&c.Load.Distribution, c.Load.NumRecords); err != nil {
			return fmt.Errorf("load distribution: %w", err)
		}
	}

	if len(c.Run) == 0 {
		return fmt.Errorf("run section must contain at least one phase")
	}
	if len(c.Run) > MaxPhases {
		return fmt.Errorf("too many workload phases (only %d are supported)", MaxPhases)
	}
	for i := range c.Run {
		if err := c.Run[i].validate(); err != nil {
			return fmt.Errorf("phase %d: %w", i, err)
		}
	}
	return nil
}

func (p *PhaseSpec) validate() error {
	if p.NumRequests == 0 {
		return fmt.Errorf("num_requests must be positive")
	}

	var sum uint32
	access := []struct {
		name string
		op   *OpConfig
	}{
		{"read", p.Read},
		{"update", p.Update},
		{"readmodifywrite", p.ReadModifyWrite},
		{"negativeread", p.NegativeRead},
		{"delete", p.Delete},
	}
	for _, a := range access {
		if a.op == nil {
			continue
		}
		sum += a.op.ProportionPct
		if err := checkChooserDist(&a.op.Distribution); err != nil {
			return fmt.Errorf("%s distribution: %w", a.name, err)
		}
	}
	if p.Scan != nil {
		sum += p.Scan.ProportionPct
		if p.Scan.MaxLength == 0 {
			return fmt.Errorf("the maximum scan length must be at least 1")
		}
		if err := checkChooserDist(&p.Scan.Distribution); err != nil {
			return fmt.Errorf("scan distribution: %w", err)
		}
	}
	if p.Insert != nil {
		sum += p.Insert.ProportionPct
		if err := checkGeneratorDist(&p.Insert.Distribution); err != nil {
			return fmt.Errorf("insert distribution: %w", err)
		}
	}
	if sum != 100 {
		return fmt.Errorf("request proportions must sum to exactly 100%% (got %d)", sum)
	}
	return nil
}

func checkTheta(theta float64) error {
	if theta <= 0.0 || theta >= 1.0 {
		return fmt.Errorf("zipfian theta must be in the range (0, 1), got %g", theta)
	}
	return nil
}

// checkChooserDist validates an access-operation distribution without
// building it; choosers are built per producer with placeholder counts.
func checkChooserDist(d *DistConfig) error {
	switch d.Type {
	case DistUniform:
		return nil
	case DistZipfian, DistZipfianClustered, DistLatest:
		return checkTheta(d.Theta)
	case DistHotspot, DistLinspace, DistCustom:
		return fmt.Errorf("%q cannot be used for access operations", d.Type)
	default:
		return fmt.Errorf("unknown distribution type %q", d.Type)
	}
}

// checkGeneratorDist validates an insert distribution. Construction is
// deferred until the per-producer insert count is known; a unit-sized
// probe catches parameter errors early.
func checkGeneratorDist(d *DistConfig) error {
	if d.Type == DistCustom {
		if d.Name == "" {
			return fmt.Errorf("custom key lists must be referenced by name")
		}
		return nil
	}
	_, err := makeGenerator(d, 1)
	return err
}

// makeChooser builds an access chooser with a placeholder item count;
// Producer.Prepare sets the real counts.
func makeChooser(d *DistConfig) (dist.Chooser, error) {
	const initialChooserSize = 1
	switch d.Type {
	case DistUniform:
		return dist.NewUniform(initialChooserSize), nil
	case DistZipfian:
		if err := checkTheta(d.Theta); err != nil {
			return nil, err
		}
		return dist.NewScatteredZipfian(initialChooserSize, d.Theta, d.Salt), nil
	case DistZipfianClustered:
		if err := checkTheta(d.Theta); err != nil {
			return nil, err
		}
		return dist.NewZipfian(initialChooserSize, d.Theta), nil
	case DistLatest:
		if err := checkTheta(d.Theta); err != nil {
			return nil, err
		}
		return dist.NewLatest(initialChooserSize, d.Theta), nil
	default:
		return nil, fmt.Errorf("distribution type %q cannot be used for access operations", d.Type)
	}
}

// makeGenerator builds a key generator for numKeys keys. Custom lists
// are resolved by the producer, not here.
func makeGenerator(d *DistConfig, numKeys uint64) (keygen.Generator, error) {
	switch d.Type {
	case DistUniform:
		return keygen.NewUniform(numKeys, request.KeyRange{Min: d.RangeMin, Max: d.RangeMax})
	case DistHotspot:
		overall := request.KeyRange{Min: d.RangeMin, Max: d.RangeMax}
		hot := request.KeyRange{Min: d.HotRangeMin, Max: d.HotRangeMax}
		return keygen.NewHotspot(overall, hot, d.HotProportionPct)
	case DistLinspace:
		return keygen.NewLinspace(d.StartKey, d.StepSize, numKeys)
	default:
		return nil, fmt.Errorf("distribution type %q cannot be used to generate keys", d.Type)
	}
}

// phase materializes the per-producer view of phase phaseID: the
// request partition, the insert budget, cumulative thresholds, and
// fresh chooser instances.
func (c *Config) phase(phaseID uint8, producerID uint8, numProducers int) (*Phase, error) {
	spec := &c.Run[phaseID]
	ph := &Phase{ID: phaseID}

	// Split the phase's requests across producers; the remainder goes
	// to the lowest producer ids.
	total := spec.NumRequests
	ph.NumRequests = total / uint64(numProducers)
	if uint64(producerID) < total%uint64(numProducers) {
		ph.NumRequests++
	}
	ph.NumRequestsLeft = ph.NumRequests

	var insertPct uint32
	if spec.Insert != nil {
		insertPct = spec.Insert.ProportionPct
	}
	ph.NumInserts = ph.NumRequests * uint64(insertPct) / 100
	ph.NumInsertsLeft = ph.NumInserts

	var err error
	if spec.Read != nil {
		ph.ReadThres = spec.Read.ProportionPct
		if ph.ReadChooser, err = makeChooser(&spec.Read.Distribution); err != nil {
			return nil, fmt.Errorf("read chooser: %w", err)
		}
	}
	if spec.ReadModifyWrite != nil {
		ph.RMWThres = spec.ReadModifyWrite.ProportionPct
		if ph.RMWChooser, err = makeChooser(&spec.ReadModifyWrite.Distribution); err != nil {
			return nil, fmt.Errorf("readmodifywrite chooser: %w", err)
		}
	}
	if spec.NegativeRead != nil {
		ph.NegativeReadThres = spec.NegativeRead.ProportionPct
		if ph.NegativeReadChooser, err = makeChooser(&spec.NegativeRead.Distribution); err != nil {
			return nil, fmt.Errorf("negativeread chooser: %w", err)
		}
	}
	if spec.Scan != nil {
		ph.ScanThres = spec.Scan.ProportionPct
		ph.MaxScanLength = spec.Scan.MaxLength
		if ph.ScanChooser, err = makeChooser(&spec.Scan.Distribution); err != nil {
			return nil, fmt.Errorf("scan chooser: %w", err)
		}
		// The +1 keeps the top of the configured range reachable after
		// the 0-based draw is shifted up by one.
		ph.ScanLengthChooser = dist.NewUniform(ph.MaxScanLength + 1)
	}
	if spec.Update != nil {
		ph.UpdateThres = spec.Update.ProportionPct
		if ph.UpdateChooser, err = makeChooser(&spec.Update.Distribution); err != nil {
			return nil, fmt.Errorf("update chooser: %w", err)
		}
	}
	if spec.Delete != nil {
		ph.DeleteThres = spec.Delete.ProportionPct
		if ph.DeleteChooser, err = makeChooser(&spec.Delete.Distribution); err != nil {
			return nil, fmt.Errorf("delete chooser: %w", err)
		}
	}

	// Fold the proportions into cumulative comparator thresholds
	// against a single U[0, 100) draw. Delete stacks directly on read;
	// the remaining access operations stack in sequence.
	ph.DeleteThres += ph.ReadThres
	ph.RMWThres += ph.ReadThres
	ph.NegativeReadThres += ph.RMWThres
	ph.ScanThres += ph.NegativeReadThres
	ph.UpdateThres += ph.ScanThres

	return ph, nil
}

// insertSource returns how phase phaseID obtains its insert keys: a
// custom list reference, or nil meaning a synthesized generator.
func (c *Config) insertSource(phaseID uint8) *DistConfig {
	spec := &c.Run[phaseID]
	if spec.Insert == nil {
		return nil
	}
	return &spec.Insert.Distribution
}
