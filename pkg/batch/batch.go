// Package batch fans a batch of independent items out over a worker pool.
//
// Item i owns dst[i*blockSize:(i+1)*blockSize]. The slices never overlap, so
// items write their results without locks and no merge step is needed.
package batch

import (
	"fmt"
	"sync"

	"github.com/menta2k/parallel-crop/pkg/types"
)

// Submitter queues a task for asynchronous execution
type Submitter interface {
	Submit(task func()) error
}

// ItemFunc computes item i into its block
type ItemFunc func(i int, block []byte) error

// Run processes n items through sub and waits for all of them. It returns nil
// or a *types.BatchError listing every failed index. Items keep running after
// another item fails; the batch as a whole is still reported as failed.
func Run(sub Submitter, n, blockSize int, dst []byte, fn ItemFunc) error {
	if n < 0 || blockSize <= 0 {
		return types.NewInvalidRequestError(fmt.Sprintf("batch of %d items with block size %d", n, blockSize), nil)
	}
	if need := n * blockSize; len(dst) < need {
		return types.NewCapacityError(fmt.Sprintf("destination holds %d bytes, batch needs %d", len(dst), need), nil)
	}
	if n == 0 {
		return nil
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		block := dst[i*blockSize : (i+1)*blockSize : (i+1)*blockSize]
		wg.Add(1)
		err := sub.Submit(func() {
			defer wg.Done()
			errs[i] = runItem(fn, i, block)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return types.NewLifecycleError(fmt.Sprintf("dispatch item %d", i), err)
		}
	}
	wg.Wait()

	return types.NewBatchError(errs)
}

func runItem(fn ItemFunc, i int, block []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = types.NewInternalError(fmt.Sprintf("item panicked: %v", r), nil)
		}
	}()
	return fn(i, block)
}

// Sequential runs tasks inline on the calling goroutine
type Sequential struct{}

// Submit runs task immediately
func (Sequential) Submit(task func()) error {
	task()
	return nil
}
