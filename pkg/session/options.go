package session

// RunOptions tunes how a workload run is measured and checked.
type RunOptions struct {
	// LatencySamplePeriod records the latency of every Nth request.
	// Zero means every request.
	LatencySamplePeriod uint64

	// ThroughputSamplePeriod emits a throughput sample every N
	// requests per thread. Zero disables sampling.
	ThroughputSamplePeriod uint64

	// OutputDir is where throughput sample files are written. Empty
	// means the current directory.
	OutputDir string

	// ThroughputOutputFilePrefix names the per-thread sample files:
	// <OutputDir>/<prefix><threadID>.csv.
	ThroughputOutputFilePrefix string

	// ExpectRequestSuccess makes any failed request abort the run
	// with an error.
	ExpectRequestSuccess bool

	// ExpectScanAmountFound makes a scan returning fewer records than
	// requested abort the run with an error. Only meaningful together
	// with ExpectRequestSuccess-style closed workloads.
	ExpectScanAmountFound bool
}

func (o RunOptions) normalized() RunOptions {
	if o.LatencySamplePeriod == 0 {
		o.LatencySamplePeriod = 1
	}
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.ThroughputOutputFilePrefix == "" {
		o.ThroughputOutputFilePrefix = "throughput-"
	}
	return o
}
