package pool

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Submit after Close
var ErrClosed = errors.New("worker pool closed")

// WorkerPool runs submitted jobs on a fixed set of goroutines. Dispatch is
// serialized through one queue; execution is not.
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once
	mu       sync.RWMutex
	closed   bool

	submitted atomic.Int64
	completed atomic.Int64
	active    atomic.Int64
}

// Stats is a snapshot of pool counters
type Stats struct {
	Workers       int
	TotalJobs     int64
	CompletedJobs int64
	ActiveWorkers int64
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// workers <= 0 uses one worker per logical CPU.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Workers returns the fixed pool size
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		wp.active.Add(1)
		job()
		wp.active.Add(-1)
		wp.completed.Add(1)
		wp.wg.Done()
	}
}

// Submit queues a job. It blocks while the queue is full and returns ErrClosed
// once the pool has been closed.
func (wp *WorkerPool) Submit(job func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrClosed
	}
	wp.wg.Add(1)
	wp.submitted.Add(1)
	wp.jobQueue <- job
	return nil
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Close stops accepting jobs, lets queued jobs finish and stops the workers.
// Closing twice returns ErrClosed.
func (wp *WorkerPool) Close() error {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return ErrClosed
	}
	wp.closed = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.Start()
	wp.wg.Wait()
	return nil
}

// Stats returns current counters
func (wp *WorkerPool) Stats() Stats {
	return Stats{
		Workers:       wp.workers,
		TotalJobs:     wp.submitted.Load(),
		CompletedJobs: wp.completed.Load(),
		ActiveWorkers: wp.active.Load(),
	}
}
