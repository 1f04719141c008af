package workerpool

import (
	"context"
	"sync"
)

// Job encapsulates a unit of work to run on the pool
type Job func() error

// Pool runs jobs on a fixed number of goroutines
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan Job

	wg sync.WaitGroup

	m   sync.Mutex
	err error
}

// New creates a new Pool with the provided number of workers
func New(numWorkers int) *Pool {
	return NewWithCtx(context.Background(), numWorkers)
}

// NewWithCtx creates a new Pool with the provided number of workers,
// stopping when the provided context is cancelled.
func NewWithCtx(ctx context.Context, numWorkers int) *Pool {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan Job),
	}
	for i := 0; i < numWorkers; i++ {
		go p.work()
	}
	return p
}

// Add the jobs to the pool without blocking the caller
func (p *Pool) Add(jobs []Job) {
	p.wg.Add(len(jobs))
	go func() {
		for _, job := range jobs {
			select {
			case <-p.ctx.Done():
				// unstarted jobs are dropped once the pool is stopped
				p.wg.Done()
			case p.jobs <- job:
			}
		}
	}()
}

// AddBlocking adds the jobs to the pool, blocking until all of them have been handed to a worker
func (p *Pool) AddBlocking(jobs []Job) {
	p.wg.Add(len(jobs))
	for _, job := range jobs {
		select {
		case <-p.ctx.Done():
			p.wg.Done()
		case p.jobs <- job:
		}
	}
}

// Wait blocks until all added jobs have either run or been dropped by Stop,
// and returns the first error any job returned.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.m.Lock()
	defer p.m.Unlock()
	return p.err
}

// Stop cancels any unstarted jobs; jobs already running are allowed to finish.
func (p *Pool) Stop() {
	p.cancel()
}

func (p *Pool) work() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			if err := job(); err != nil {
				p.m.Lock()
				if p.err == nil {
					p.err = err
				}
				p.m.Unlock()
			}
			p.wg.Done()
		}
	}
}
