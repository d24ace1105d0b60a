// Package parallelcrop crops and resizes batches of images in parallel.
//
// Every request names a source image and a normalized crop: a scale and a
// top-left anchor, all in [0,1]. The crop is capped at a maximum fraction of
// each dimension, clamped inside the image, and resized with bilinear
// interpolation to a fixed square window. Results are packed back to back
// into one contiguous 8-bit buffer in request order.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		parallelcrop "github.com/menta2k/parallel-crop"
//		"github.com/menta2k/parallel-crop/pkg/types"
//	)
//
//	func main() {
//		c, err := parallelcrop.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer c.Close()
//
//		paths := []string{"a.jpg", "b.png"}
//		reqs := []types.CropRequest{
//			{Scale: 0.2, X: 0.5, Y: 0.5},
//			{Scale: 0.1, X: 0.0, Y: 0.9},
//		}
//		tensor, err := c.CropBatch(paths, reqs)
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("%d bytes", len(tensor))
//	}
//
// The package is layered:
//
//  1. Cropper (pkg/cropper): geometry resolution and the single-item pipeline
//  2. Codec (pkg/codec): decoding through imaging (pure Go) or libvips
//  3. Engine (pkg/engine): the reusable execution context and its worker pool
//
// The same engine is exported to C by cmd/libparallelcrop.
package parallelcrop

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/parallel-crop/pkg/codec"
	"github.com/menta2k/parallel-crop/pkg/engine"
	"github.com/menta2k/parallel-crop/pkg/types"
)

// Version of the parallel crop library
const Version = "1.0.0"

// DefaultConfig is the crop configuration used by New: a 32x32 RGB window and
// crops of at most a quarter of each dimension.
var DefaultConfig = types.CropConfig{
	WindowSize:      32,
	Channels:        types.RGB,
	MaxCropFraction: 0.25,
}

// Cropper binds an execution context to one crop configuration
type Cropper struct {
	engine *engine.Context
	config types.CropConfig
}

// New creates a Cropper with default configuration, one worker per CPU and
// the pure Go codec
func New() (*Cropper, error) {
	return NewWithConfig(DefaultConfig, engine.Options{})
}

// NewWithConfig creates a Cropper with custom crop settings and engine options
func NewWithConfig(cfg types.CropConfig, opts engine.Options) (*Cropper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, err := engine.New(opts)
	if err != nil {
		return nil, err
	}
	return &Cropper{engine: ctx, config: cfg}, nil
}

// Config returns the crop configuration
func (c *Cropper) Config() types.CropConfig {
	return c.config
}

// Engine exposes the underlying execution context
func (c *Cropper) Engine() *engine.Context {
	return c.engine
}

// CropBatch processes paths[i] with reqs[i] and returns the packed tensor
func (c *Cropper) CropBatch(paths []string, reqs []types.CropRequest) ([]byte, error) {
	return c.engine.RunBlocks(reqs, paths, c.config)
}

// CropBatchInto writes the packed tensor into dst
func (c *Cropper) CropBatchInto(dst []byte, paths []string, reqs []types.CropRequest) error {
	return c.engine.Run(reqs, paths, c.config, dst)
}

// CropOne processes a single request
func (c *Cropper) CropOne(path string, req types.CropRequest) ([]byte, error) {
	return c.engine.Process(path, req, c.config)
}

// Block returns block i of a tensor produced by this Cropper
func (c *Cropper) Block(tensor []byte, i int) ([]byte, error) {
	bs := c.config.BlockSize()
	if i < 0 || (i+1)*bs > len(tensor) {
		return nil, fmt.Errorf("block %d out of range for %d byte tensor", i, len(tensor))
	}
	return tensor[i*bs : (i+1)*bs], nil
}

// Close releases the worker pool
func (c *Cropper) Close() error {
	return c.engine.Close()
}

// WithBackend returns engine options selecting backend with the given worker
// count and logger
func WithBackend(backend codec.Backend, workers int, logger *logrus.Logger) engine.Options {
	return engine.Options{Workers: workers, Backend: backend, Logger: logger}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
