package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/keyline/keyline/pkg/db"
	"github.com/keyline/keyline/pkg/metrics"
	"github.com/keyline/keyline/pkg/trace"
)

// Session owns the executor threads driving one database instance.
// The usual lifecycle is NewSession, Initialize, ReplayBulkLoadTrace,
// one or more RunWorkload calls, Terminate.
type Session struct {
	database   db.Database
	numThreads int
	coreMap    []int

	pool        *pool
	initialized bool
	terminated  bool
}

// NewSession creates a session with numThreads executor threads.
// coreMap is either empty or names one CPU core per thread to pin it
// to (effective on Linux only).
func NewSession(database db.Database, numThreads int, coreMap []int) (*Session, error) {
	if database == nil {
		return nil, errors.New("session: database must not be nil")
	}
	if numThreads < 1 {
		return nil, fmt.Errorf("session: need at least one thread, got %d", numThreads)
	}
	if len(coreMap) != 0 && len(coreMap) != numThreads {
		return nil, fmt.Errorf("session: core map has %d entries for %d threads", len(coreMap), numThreads)
	}
	return &Session{database: database, numThreads: numThreads, coreMap: coreMap}, nil
}

// NumThreads returns the number of executor threads.
func (s *Session) NumThreads() int { return s.numThreads }

// Initialize starts the executor threads and initializes the database.
// Calling it again after success is a no-op.
func (s *Session) Initialize() error {
	if s.terminated {
		return errors.New("session: already terminated")
	}
	if s.initialized {
		return nil
	}
	p, err := newPool(s.numThreads, s.coreMap,
		func(id int) { s.database.InitializeWorker(id) },
		func(id int) { s.database.ShutdownWorker(id) })
	if err != nil {
		return err
	}
	s.pool = p

	var initErr error
	s.pool.submit(func() { initErr = s.database.InitializeDatabase() })
	s.pool.wait()
	if initErr != nil {
		s.pool.shutdown()
		s.pool = nil
		return fmt.Errorf("session: failed to initialize database: %w", initErr)
	}
	s.initialized = true
	return nil
}

// Terminate shuts the executor threads down and closes the database.
func (s *Session) Terminate() error {
	if s.terminated {
		return nil
	}
	s.terminated = true
	if s.pool != nil {
		s.pool.shutdown()
		s.pool = nil
	}
	if !s.initialized {
		return nil
	}
	s.initialized = false
	if err := s.database.ShutdownDatabase(); err != nil {
		return fmt.Errorf("session: failed to shut down database: %w", err)
	}
	return nil
}

// ReplayBulkLoadTrace installs the load trace through the database's
// bulk path, on an executor thread.
func (s *Session) ReplayBulkLoadTrace(load *trace.BulkLoadTrace) error {
	if !s.initialized {
		return errors.New("session: not initialized")
	}
	var loadErr error
	s.pool.submit(func() { loadErr = s.database.BulkLoad(load) })
	s.pool.wait()
	if loadErr != nil {
		return fmt.Errorf("session: bulk load failed: %w", loadErr)
	}
	return nil
}

// WorkloadSource hands out exactly one producer per executor thread.
type WorkloadSource[P Producer] interface {
	GetProducers(numProducers int) ([]P, error)
}

// RunWorkload runs w on the session's threads and returns the merged
// result. Producers are prepared on their own threads; the clock
// starts once every thread is ready, so preparation cost never skews
// the measurement.
func RunWorkload[P Producer](s *Session, w WorkloadSource[P], opts RunOptions) (*metrics.BenchmarkResult, error) {
	if !s.initialized {
		return nil, errors.New("session: not initialized")
	}
	opts = opts.normalized()

	producers, err := w.GetProducers(s.numThreads)
	if err != nil {
		return nil, err
	}
	if len(producers) != s.numThreads {
		return nil, fmt.Errorf("session: got %d producers for %d threads", len(producers), s.numThreads)
	}

	trackers := make([]*metrics.Tracker, s.numThreads)
	runErrs := make([]error, s.numThreads)
	start := NewFlag()
	var ready sync.WaitGroup
	ready.Add(s.numThreads)

	for i := range producers {
		i := i
		p := producers[i]
		trackers[i] = metrics.NewTracker()
		exec := newExecutor(s.database, trackers[i], opts, i)
		s.pool.submit(func() {
			prepErr := p.Prepare()
			ready.Done()
			start.Wait()
			if prepErr != nil {
				runErrs[i] = fmt.Errorf("session: producer %d failed to prepare: %w", i, prepErr)
				return
			}
			runErrs[i] = exec.run(p)
		})
	}

	ready.Wait()
	begin := time.Now()
	start.Raise()
	s.pool.wait()
	runTime := time.Since(begin)

	if err := errors.Join(runErrs...); err != nil {
		return nil, err
	}
	return metrics.Finalize(runTime, trackers), nil
}

// ReplayTrace runs a previously captured request trace against the
// database, split evenly across the session's threads.
func ReplayTrace(s *Session, t *trace.Trace, opts RunOptions) (*metrics.BenchmarkResult, error) {
	return RunWorkload[*trace.Producer](s, trace.NewWorkload(t), opts)
}
