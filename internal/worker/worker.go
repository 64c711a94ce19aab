package worker

import (
	"context"
	"sync"
)

type Job interface{}

type ProcessFunc func(ctx context.Context, job Job) error

// WorkerPool runs submitted jobs on a fixed set of goroutines. Submit is
// non-blocking and safe to race with Stop: a job offered to a stopped pool
// (or a full queue) is rejected, never queued.
type WorkerPool struct {
	numWorkers int
	jobs       chan Job
	processor  ProcessFunc
	mu         sync.RWMutex
	stopped    bool
	wg         sync.WaitGroup
}

func NewWorkerPool(numWorkers int, bufferSize int, processor ProcessFunc) *WorkerPool {
	return &WorkerPool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processor(ctx, job)
		}
	}
}

// Submit offers a job to the queue. Returns false when the pool has been
// stopped or the queue is full; the job is not run in either case.
func (wp *WorkerPool) Submit(job Job) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return false
	}
	select {
	case wp.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for the workers to drain it. Safe to call
// more than once.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.jobs)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}
