// Package main implements the keyline binary: it loads a workload
// configuration (or a captured trace), primes the chosen database
// backend, runs the benchmark, and reports the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	kerrors "github.com/keyline/keyline/internal/errors"
	"github.com/keyline/keyline/pkg/db"
	"github.com/keyline/keyline/pkg/metrics"
	"github.com/keyline/keyline/pkg/session"
	"github.com/keyline/keyline/pkg/trace"
	"github.com/keyline/keyline/pkg/workload"
)

var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	workloadFile string
	traceFile    string
	backend      string
	threads      int
	seed         uint64
	recordSize   int
	coreList     string

	skipLoad   bool
	loadOnly   bool
	sortedLoad bool

	outputDir        string
	csvOutput        bool
	latencyPeriod    uint64
	throughputPeriod uint64
	expectSuccess    bool
	expectScanAmount bool

	sqlitePath  string
	s3Bucket    string
	s3Region    string
	s3Endpoint  string
	s3PathStyle bool
	s3Prefix    string
}

func main() {
	// A .env file may carry AWS credentials for the s3 backend.
	_ = godotenv.Load()

	var opts options
	var showVersion bool

	flag.StringVar(&opts.workloadFile, "workload", "", "Path to the workload configuration file")
	flag.StringVar(&opts.traceFile, "trace", "", "Path to a captured trace file to replay instead of a workload")
	flag.StringVar(&opts.backend, "db", "mem", "Database backend: mem, sqlite, s3")
	flag.IntVar(&opts.threads, "threads", 1, "Number of executor threads")
	flag.Uint64Var(&opts.seed, "seed", 42, "Master seed fixing every random choice")
	flag.IntVar(&opts.recordSize, "record-size", 0, "Record size in bytes when the workload file does not set one")
	flag.StringVar(&opts.coreList, "pin-cores", "", "Comma-separated CPU cores to pin executor threads to (Linux)")
	flag.BoolVar(&opts.skipLoad, "skip-load", false, "Skip the bulk load (the dataset must already be present)")
	flag.BoolVar(&opts.loadOnly, "load-only", false, "Bulk load the dataset and exit without running the workload")
	flag.BoolVar(&opts.sortedLoad, "sorted-load", false, "Bulk load keys in sorted order instead of shuffled")
	flag.StringVar(&opts.outputDir, "output-dir", ".", "Directory for throughput sample files")
	flag.BoolVar(&opts.csvOutput, "csv", false, "Print the result as CSV instead of a table")
	flag.Uint64Var(&opts.latencyPeriod, "latency-sample-period", 1, "Record the latency of every Nth request")
	flag.Uint64Var(&opts.throughputPeriod, "throughput-sample-period", 0, "Emit a throughput sample every N requests per thread (0 disables)")
	flag.BoolVar(&opts.expectSuccess, "expect-success", false, "Abort if any request fails")
	flag.BoolVar(&opts.expectScanAmount, "expect-scan-amount", false, "Abort if a scan returns fewer records than requested")
	flag.StringVar(&opts.sqlitePath, "sqlite-path", "keyline.db", "Database file for the sqlite backend")
	flag.StringVar(&opts.s3Bucket, "s3-bucket", "", "Bucket for the s3 backend")
	flag.StringVar(&opts.s3Region, "s3-region", "us-east-1", "Region for the s3 backend")
	flag.StringVar(&opts.s3Endpoint, "s3-endpoint", "", "Custom endpoint for the s3 backend (MinIO, LocalStack)")
	flag.BoolVar(&opts.s3PathStyle, "s3-path-style", false, "Use path-style addressing for the s3 backend")
	flag.StringVar(&opts.s3Prefix, "s3-prefix", "keyline/", "Object name prefix for the s3 backend")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Keyline - Workload Generator and Benchmark Harness for Key-Value Stores\n\n")
		fmt.Fprintf(os.Stderr, "Usage: keyline [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  keyline --workload workloads/a.yml --threads 4\n")
		fmt.Fprintf(os.Stderr, "  keyline --workload workloads/a.yml --db sqlite --sqlite-path /tmp/bench.db\n")
		fmt.Fprintf(os.Stderr, "  keyline --trace captured.kltr --db s3 --s3-bucket bench-bucket\n")
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("keyline version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if err := run(&opts); err != nil {
		if kerrors.IsRetryable(err) {
			log.Printf("The failure looks transient; retrying may succeed.")
		}
		log.Fatalf("%v", err)
	}
}

func run(opts *options) error {
	if opts.workloadFile == "" && opts.traceFile == "" {
		return kerrors.NewConfigError(kerrors.CodeMissingArgument,
			"either --workload or --trace is required")
	}
	if opts.workloadFile != "" && opts.traceFile != "" {
		return kerrors.NewConfigError(kerrors.CodeInvalidConfig,
			"--workload and --trace are mutually exclusive")
	}
	if opts.threads < 1 {
		return kerrors.NewConfigError(kerrors.CodeInvalidConfig,
			"--threads must be at least 1")
	}

	coreMap, err := parseCoreList(opts.coreList, opts.threads)
	if err != nil {
		return err
	}

	database, err := openDatabase(opts)
	if err != nil {
		return err
	}

	s, err := session.NewSession(database, opts.threads, coreMap)
	if err != nil {
		return err
	}
	if err := s.Initialize(); err != nil {
		return kerrors.NewDatabaseError(kerrors.CodeInitFailed, "database initialization failed", err)
	}
	defer func() {
		if err := s.Terminate(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	runOpts := session.RunOptions{
		LatencySamplePeriod:        opts.latencyPeriod,
		ThroughputSamplePeriod:     opts.throughputPeriod,
		OutputDir:                  opts.outputDir,
		ThroughputOutputFilePrefix: fmt.Sprintf("throughput-%s-", uuid.New().String()[:8]),
		ExpectRequestSuccess:       opts.expectSuccess,
		ExpectScanAmountFound:      opts.expectScanAmount,
	}

	var result *metrics.BenchmarkResult
	if opts.traceFile != "" {
		captured, err := trace.ReadFile(opts.traceFile)
		if err != nil {
			return kerrors.NewTraceError("loading trace", err)
		}
		log.Printf("Replaying %d requests from %s on %d threads", captured.Len(), opts.traceFile, opts.threads)
		result, err = session.ReplayTrace(s, captured, runOpts)
		if err != nil {
			return kerrors.NewSessionError("trace replay failed", err)
		}
	} else {
		w, err := workload.LoadWorkloadFile(opts.workloadFile, opts.seed, opts.recordSize)
		if err != nil {
			return kerrors.NewConfigError(kerrors.CodeInvalidConfig, err.Error())
		}

		if !opts.skipLoad {
			load, err := w.GetLoadTrace(opts.sortedLoad)
			if err != nil {
				return err
			}
			log.Printf("Bulk loading %d records (%d MiB)",
				load.Len(), load.DatasetSizeBytes()/(1024*1024))
			if err := s.ReplayBulkLoadTrace(load); err != nil {
				return kerrors.NewDatabaseError(kerrors.CodeBulkLoadFailed, "bulk load failed", err)
			}
		}
		if opts.loadOnly {
			log.Printf("Load complete.")
			return nil
		}

		log.Printf("Running workload %s on %d threads (seed %d)",
			opts.workloadFile, opts.threads, opts.seed)
		result, err = session.RunWorkload[*workload.Producer](s, w, runOpts)
		if err != nil {
			return kerrors.NewSessionError("workload run failed", err)
		}
	}

	if opts.csvOutput {
		if err := metrics.WriteCSVHeader(os.Stdout); err != nil {
			return err
		}
		return result.WriteCSV(os.Stdout)
	}
	fmt.Println(result.String())
	return nil
}

func openDatabase(opts *options) (db.Database, error) {
	switch opts.backend {
	case "mem":
		return db.NewMemDB(), nil
	case "sqlite":
		return db.NewSQLiteDB(opts.sqlitePath)
	case "s3":
		if opts.s3Bucket == "" {
			return nil, kerrors.NewConfigError(kerrors.CodeMissingArgument,
				"--s3-bucket is required for the s3 backend")
		}
		cfg := db.S3Config{
			Region:       opts.s3Region,
			Endpoint:     opts.s3Endpoint,
			UsePathStyle: opts.s3PathStyle,
			Prefix:       opts.s3Prefix,
		}
		s3db, err := db.NewS3DB(context.Background(), opts.s3Bucket, cfg)
		if err != nil {
			return nil, kerrors.NewDatabaseError(kerrors.CodeUnreachable, "s3 backend setup failed", err)
		}
		return s3db, nil
	default:
		return nil, kerrors.NewConfigError(kerrors.CodeUnknownBackend,
			fmt.Sprintf("unknown database backend %q", opts.backend))
	}
}

// parseCoreList turns "0,2,4,6" into a per-thread core map.
func parseCoreList(list string, threads int) ([]int, error) {
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	if len(parts) != threads {
		return nil, kerrors.NewConfigError(kerrors.CodeInvalidConfig,
			fmt.Sprintf("--pin-cores names %d cores for %d threads", len(parts), threads))
	}
	cores := make([]int, len(parts))
	for i, p := range parts {
		core, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || core < 0 {
			return nil, kerrors.NewConfigError(kerrors.CodeInvalidConfig,
				fmt.Sprintf("invalid core %q in --pin-cores", p))
		}
		cores[i] = core
	}
	return cores, nil
}
