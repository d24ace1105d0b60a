// Package engine owns the long-lived execution context: one worker pool and
// one codec backend, created once and reused by every batch.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/parallel-crop/internal/logger"
	"github.com/menta2k/parallel-crop/internal/pool"
	"github.com/menta2k/parallel-crop/pkg/batch"
	"github.com/menta2k/parallel-crop/pkg/codec"
	"github.com/menta2k/parallel-crop/pkg/cropper"
	"github.com/menta2k/parallel-crop/pkg/types"
)

// Options configures a Context
type Options struct {
	// Workers is the pool size; 0 uses one worker per logical CPU.
	Workers int
	// Backend selects the codec. Empty means the imaging codec.
	Backend codec.Backend
	// Logger receives lifecycle and failure logs; nil uses the package default.
	Logger *logrus.Logger
}

// Context is an execution context. It is not reentrant: callers must not run
// batches concurrently on one Context or Close it while a batch is running.
type Context struct {
	id        string
	pool      *pool.WorkerPool
	processor *cropper.Processor
	backend   string
	log       *logrus.Entry
	closed    atomic.Bool
}

// New starts a worker pool and selects the codec backend
func New(opts Options) (*Context, error) {
	if opts.Workers < 0 {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("workers %d must not be negative", opts.Workers), nil)
	}
	c, err := codec.New(opts.Backend)
	if err != nil {
		return nil, types.NewInternalError("select codec", err)
	}

	l := opts.Logger
	if l == nil {
		l = logger.Logger
	}

	p := pool.NewWorkerPool(opts.Workers)
	p.Start()

	ctx := &Context{
		id:        ulid.Make().String(),
		pool:      p,
		processor: cropper.NewProcessor(c),
		backend:   c.Name(),
	}
	ctx.log = l.WithFields(logrus.Fields{
		"context_id": ctx.id,
		"backend":    ctx.backend,
	})
	activeContexts.Inc()
	ctx.log.WithField("workers", p.Workers()).Info("execution context created")
	return ctx, nil
}

// ID returns the context identifier used in logs
func (c *Context) ID() string { return c.id }

// Workers returns the pool size
func (c *Context) Workers() int { return c.pool.Workers() }

// Backend returns the codec name
func (c *Context) Backend() string { return c.backend }

// Run crops and resizes every request into dst. Result i lands at
// dst[i*cfg.BlockSize():]. dst must hold at least len(requests)*cfg.BlockSize()
// bytes. On error the contents of dst are unspecified.
func (c *Context) Run(requests []types.CropRequest, paths []string, cfg types.CropConfig, dst []byte) error {
	if c.closed.Load() {
		return types.NewLifecycleError("execution context used after close", nil)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(requests) != len(paths) {
		return types.NewInvalidRequestError(fmt.Sprintf("%d requests but %d paths", len(requests), len(paths)), nil)
	}
	n := len(requests)
	if need := n * cfg.BlockSize(); len(dst) < need {
		return types.NewCapacityError(fmt.Sprintf("destination holds %d bytes, batch needs %d", len(dst), need), nil)
	}
	if n == 0 {
		return nil
	}

	batchID := ulid.Make().String()
	log := c.log.WithField("batch_id", batchID)

	invalid := make([]error, n)
	rejected := false
	for i, req := range requests {
		if err := req.Validate(); err != nil {
			invalid[i] = err
			rejected = true
		}
	}
	if rejected {
		err := types.NewBatchError(invalid)
		log.WithError(err).Warn("batch rejected before dispatch")
		return err
	}

	start := time.Now()
	err := batch.Run(c.pool, n, cfg.BlockSize(), dst, func(i int, block []byte) error {
		return c.processor.Process(types.ImageRef{Path: paths[i]}, requests[i], cfg, block)
	})
	elapsed := time.Since(start)

	failed := 0
	var be *types.BatchError
	if errors.As(err, &be) {
		failed = len(be.Items)
	} else if err != nil {
		failed = n
	}
	recordBatch(c.backend, n, failed, elapsed.Seconds())

	fields := logrus.Fields{
		"items":       n,
		"window_size": cfg.WindowSize,
		"channels":    cfg.Channels.String(),
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		log.WithFields(fields).WithError(err).WithField("failed", failed).Warn("batch failed")
		return err
	}
	log.WithFields(fields).Debug("batch finished")
	return nil
}

// RunBlocks is Run with a freshly allocated destination
func (c *Context) RunBlocks(requests []types.CropRequest, paths []string, cfg types.CropConfig) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dst := make([]byte, len(requests)*cfg.BlockSize())
	if err := c.Run(requests, paths, cfg, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// Process handles one request on the calling goroutine
func (c *Context) Process(path string, req types.CropRequest, cfg types.CropConfig) ([]byte, error) {
	if c.closed.Load() {
		return nil, types.NewLifecycleError("execution context used after close", nil)
	}
	return c.processor.ProcessBlock(types.ImageRef{Path: path}, req, cfg)
}

// Close releases the worker pool. Closing twice returns a lifecycle error.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return types.NewLifecycleError("execution context already closed", nil)
	}
	if err := c.pool.Close(); err != nil {
		return types.NewLifecycleError("close worker pool", err)
	}
	activeContexts.Dec()
	c.log.WithField("jobs", c.pool.Stats().CompletedJobs).Info("execution context closed")
	return nil
}
