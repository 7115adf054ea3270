// Package benchmark provides performance benchmarks for the Keyline
// harness itself: request generation must stay cheap enough that the
// database under test, not the generator, is the bottleneck.
package benchmark

import (
	"fmt"
	"path/filepath"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/keyline/keyline/internal/dist"
	"github.com/keyline/keyline/pkg/db"
	"github.com/keyline/keyline/pkg/request"
	"github.com/keyline/keyline/pkg/session"
	"github.com/keyline/keyline/pkg/trace"
	"github.com/keyline/keyline/pkg/workload"
)

const benchConfig = `
record_size_bytes: 64
load:
  num_records: 100000
  distribution:
    type: linspace
    start_key: 0
    step_size: 1
run:
  - num_requests: 1000000
    read:
      proportion_pct: 75
      distribution:
        type: zipfian
        theta: 0.99
    update:
      proportion_pct: 20
      distribution:
        type: uniform
    insert:
      proportion_pct: 5
      distribution:
        type: uniform
        range_min: 200000
        range_max: 2000000
`

// BenchmarkProducerNext measures raw request generation throughput.
func BenchmarkProducerNext(b *testing.B) {
	w, err := workload.ParseWorkload([]byte(benchConfig), 42, 0)
	if err != nil {
		b.Fatal(err)
	}
	producers, err := w.GetProducers(1)
	if err != nil {
		b.Fatal(err)
	}
	p := producers[0]
	if err := p.Prepare(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	generated := 0
	for i := 0; i < b.N; i++ {
		if !p.HasNext() {
			b.StopTimer()
			producers, err = w.GetProducers(1)
			if err != nil {
				b.Fatal(err)
			}
			p = producers[0]
			if err := p.Prepare(); err != nil {
				b.Fatal(err)
			}
			b.StartTimer()
		}
		_ = p.Next()
		generated++
	}
	b.ReportMetric(float64(generated)/b.Elapsed().Seconds(), "requests/sec")
}

// BenchmarkZipfianNext measures the scattered Zipfian chooser alone.
func BenchmarkZipfianNext(b *testing.B) {
	c := dist.NewScatteredZipfian(1_000_000, 0.99, 0)
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	b.ReportAllocs()
	var sink uint64
	for i := 0; i < b.N; i++ {
		sink ^= c.Next(rng)
	}
	_ = sink
}

// BenchmarkZipfianGrow measures the incremental zeta extension on
// insert-heavy workloads.
func BenchmarkZipfianGrow(b *testing.B) {
	c := dist.NewZipfian(1_000_000, 0.99)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.GrowItemCount(1)
	}
}

// BenchmarkMemDBReads measures the in-memory backend under point reads.
func BenchmarkMemDBReads(b *testing.B) {
	mem := db.NewMemDB()
	const numKeys = 100000
	value := make([]byte, 56)
	for k := request.Key(0); k < numKeys; k++ {
		mem.Insert(k, value)
	}
	rng := rand.New(rand.NewSource(2))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, ok := mem.Read(request.Key(rng.Uint64n(numKeys))); !ok {
			b.Fatal("missing key")
		}
	}
}

// BenchmarkSessionEndToEnd runs a small workload through the full
// stack: producers, executors, metering, and the in-memory backend.
func BenchmarkSessionEndToEnd(b *testing.B) {
	doc := `
record_size_bytes: 64
load:
  num_records: 10000
  distribution:
    type: linspace
    start_key: 0
    step_size: 1
run:
  - num_requests: 100000
    read:
      proportion_pct: 90
      distribution:
        type: zipfian
        theta: 0.9
    update:
      proportion_pct: 10
      distribution:
        type: uniform
`
	for _, threads := range []int{1, 4} {
		b.Run(fmt.Sprintf("threads=%d", threads), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				w, err := workload.ParseWorkload([]byte(doc), uint64(i), 0)
				if err != nil {
					b.Fatal(err)
				}
				s, err := session.NewSession(db.NewMemDB(), threads, nil)
				if err != nil {
					b.Fatal(err)
				}
				if err := s.Initialize(); err != nil {
					b.Fatal(err)
				}
				load, err := w.GetLoadTrace(true)
				if err != nil {
					b.Fatal(err)
				}
				if err := s.ReplayBulkLoadTrace(load); err != nil {
					b.Fatal(err)
				}
				b.StartTimer()

				res, err := session.RunWorkload[*workload.Producer](s, w, session.RunOptions{
					LatencySamplePeriod: 100,
				})
				if err != nil {
					b.Fatal(err)
				}
				b.StopTimer()
				b.ReportMetric(res.KRequestsPerSecond(), "krequests/sec")
				if err := s.Terminate(); err != nil {
					b.Fatal(err)
				}
				b.StartTimer()
			}
		})
	}
}

// BenchmarkTraceFileRoundTrip measures the snappy trace codec.
func BenchmarkTraceFileRoundTrip(b *testing.B) {
	reqs := make([]request.Request, 100000)
	value := make([]byte, 56)
	for i := range reqs {
		reqs[i] = request.Request{Op: request.OpInsert, Key: request.Key(i), Value: value}
	}
	tr := trace.NewTrace(reqs)
	path := filepath.Join(b.TempDir(), "bench.kltr")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := tr.WriteFile(path); err != nil {
			b.Fatal(err)
		}
		loaded, err := trace.ReadFile(path)
		if err != nil {
			b.Fatal(err)
		}
		if loaded.Len() != len(reqs) {
			b.Fatal("length mismatch")
		}
	}
}
