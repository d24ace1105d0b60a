// Package cropper resolves normalized crop requests and turns one request into
// one fixed-size output block.
package cropper

import (
	"fmt"

	"github.com/menta2k/parallel-crop/pkg/codec"
	"github.com/menta2k/parallel-crop/pkg/types"
)

// Processor runs the open, resolve, extract and resample steps for a single
// request. It holds no mutable state and is safe for concurrent use.
type Processor struct {
	codec codec.Codec
}

// NewProcessor creates a processor backed by c
func NewProcessor(c codec.Codec) *Processor {
	return &Processor{codec: c}
}

// Codec returns the codec the processor decodes with
func (p *Processor) Codec() codec.Codec {
	return p.codec
}

// Process writes the block for req into dst, which must be exactly
// cfg.BlockSize() bytes. The request is validated before the image is opened.
func (p *Processor) Process(ref types.ImageRef, req types.CropRequest, cfg types.CropConfig, dst []byte) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(dst) != cfg.BlockSize() {
		return types.NewCapacityError(fmt.Sprintf("block needs %d bytes, got %d", cfg.BlockSize(), len(dst)), nil)
	}

	src, err := p.codec.Open(ref)
	if err != nil {
		return err
	}
	defer src.Close()

	w, h := src.Size()
	if w <= 0 || h <= 0 {
		return types.NewDecodeError(fmt.Sprintf("%s has no pixels", ref.Path), nil)
	}
	rect := Resolve(req, w, h, cfg.MaxCropFraction)

	region, err := src.Extract(rect)
	if err != nil {
		return err
	}
	return codec.Resample(region, cfg.WindowSize, cfg.Channels, dst)
}

// ProcessBlock allocates and returns the block for req
func (p *Processor) ProcessBlock(ref types.ImageRef, req types.CropRequest, cfg types.CropConfig) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dst := make([]byte, cfg.BlockSize())
	if err := p.Process(ref, req, cfg, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
