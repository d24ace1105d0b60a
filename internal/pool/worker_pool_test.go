package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	require.NotNil(t, pool)
	assert.Equal(t, 4, pool.Workers())
}

func TestNewWorkerPool_ZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	assert.Equal(t, runtime.NumCPU(), pool.Workers())
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	var counter int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(func() {
			mu.Lock()
			counter++
			mu.Unlock()
		}))
	}

	pool.Wait()
	assert.Equal(t, 5, counter)
}

func TestWorkerPool_StartOnce(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	pool.Start()
	defer pool.Close()

	var executed atomic.Bool
	require.NoError(t, pool.Submit(func() { executed.Store(true) }))
	pool.Wait()
	assert.True(t, executed.Load())
}

func TestWorkerPool_CloseAndResubmit(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()

	var executed atomic.Bool
	require.NoError(t, pool.Submit(func() { executed.Store(true) }))
	require.NoError(t, pool.Close())
	assert.True(t, executed.Load(), "queued job must finish before Close returns")

	assert.ErrorIs(t, pool.Submit(func() {}), ErrClosed)
	assert.ErrorIs(t, pool.Close(), ErrClosed)
}

func TestWorkerPool_CloseWithoutStart(t *testing.T) {
	pool := NewWorkerPool(1)
	var ran atomic.Int32
	require.NoError(t, pool.Submit(func() { ran.Add(1) }))
	require.NoError(t, pool.Close())
	assert.Equal(t, int32(1), ran.Load())
}

func TestWorkerPool_Stats(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Close()

	const numJobs = 20
	for i := 0; i < numJobs; i++ {
		require.NoError(t, pool.Submit(func() {
			for j := 0; j < 1000; j++ {
				_ = j * j
			}
		}))
	}
	pool.Wait()

	stats := pool.Stats()
	assert.Equal(t, int64(numJobs), stats.TotalJobs)
	assert.Equal(t, int64(numJobs), stats.CompletedJobs)
	assert.Equal(t, int64(0), stats.ActiveWorkers)
	assert.Equal(t, 4, stats.Workers)
}

func TestWorkerPool_BoundedConcurrency(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	var current, peak atomic.Int32
	var gate sync.WaitGroup
	for i := 0; i < 30; i++ {
		gate.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer gate.Done()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			runtime.Gosched()
			current.Add(-1)
		}))
	}
	gate.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(3))
}
