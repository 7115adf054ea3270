package session

import (
	"fmt"
	"sync"
)

// pool is a fixed set of worker goroutines consuming a FIFO queue.
// Each worker is locked to an OS thread so databases that keep
// per-thread state (and, on Linux, CPU pinning) behave as expected.
type pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	inflight int
	stopping bool

	wg         sync.WaitGroup
	numWorkers int
}

// newPool starts numWorkers workers. coreMap is either empty or holds
// one CPU core per worker to pin it to. onStart and onShutdown run on
// the worker's own thread at the boundaries of its life.
func newPool(numWorkers int, coreMap []int, onStart, onShutdown func(workerID int)) (*pool, error) {
	if numWorkers < 1 {
		return nil, fmt.Errorf("session: pool needs at least one worker, got %d", numWorkers)
	}
	if len(coreMap) != 0 && len(coreMap) != numWorkers {
		return nil, fmt.Errorf("session: core map has %d entries for %d workers", len(coreMap), numWorkers)
	}
	p := &pool{numWorkers: numWorkers}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < numWorkers; i++ {
		core := -1
		if len(coreMap) != 0 {
			core = coreMap[i]
		}
		p.wg.Add(1)
		go p.worker(i, core, onStart, onShutdown)
	}
	return p, nil
}

func (p *pool) worker(id, core int, onStart, onShutdown func(int)) {
	defer p.wg.Done()
	pinWorker(core)
	if onStart != nil {
		onStart(id)
	}
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopping {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			break
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		job()

		p.mu.Lock()
		p.inflight--
		if p.inflight == 0 {
			p.cond.Broadcast()
		}
		p.mu.Unlock()
	}
	if onShutdown != nil {
		onShutdown(id)
	}
}

// submit queues a job. Panics after shutdown has begun.
func (p *pool) submit(job func()) {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		panic("session: submit on a stopped pool")
	}
	p.queue = append(p.queue, job)
	p.inflight++
	p.cond.Broadcast()
	p.mu.Unlock()
}

// wait blocks until every submitted job has finished.
func (p *pool) wait() {
	p.mu.Lock()
	for p.inflight > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// shutdown drains the queue and joins the workers.
func (p *pool) shutdown() {
	p.mu.Lock()
	p.stopping = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
