package types

import (
	"fmt"
	"image"
	"math"
)

// Channels is the number of interleaved samples per output pixel
type Channels uint32

const (
	// Gray produces one luma sample per pixel
	Gray Channels = 1
	// RGB produces three samples per pixel, alpha dropped
	RGB Channels = 3
)

// Valid reports whether c is a supported channel layout
func (c Channels) Valid() bool {
	return c == Gray || c == RGB
}

func (c Channels) String() string {
	switch c {
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	default:
		return fmt.Sprintf("channels(%d)", uint32(c))
	}
}

// CropRequest is one normalized crop. Scale is the requested fraction of each
// dimension, X and Y are the normalized top-left anchor. All three lie in [0,1].
type CropRequest struct {
	Scale float32 `json:"scale"`
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
}

// Validate checks the request fields before any image is opened
func (r CropRequest) Validate() error {
	if !unit(r.Scale) {
		return NewInvalidRequestError(fmt.Sprintf("scale %v outside [0,1]", r.Scale), nil)
	}
	if !unit(r.X) {
		return NewInvalidRequestError(fmt.Sprintf("x %v outside [0,1]", r.X), nil)
	}
	if !unit(r.Y) {
		return NewInvalidRequestError(fmt.Sprintf("y %v outside [0,1]", r.Y), nil)
	}
	return nil
}

// ImageRef identifies a source image. Its dimensions are read by the codec
// when the image is opened.
type ImageRef struct {
	Path string `json:"path"`
}

// Rect is a resolved pixel rectangle, half-open on Right and Bottom.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Dx returns the rectangle width
func (r Rect) Dx() int { return r.Right - r.Left }

// Dy returns the rectangle height
func (r Rect) Dy() int { return r.Bottom - r.Top }

// Image converts r to an image.Rectangle anchored at origin
func (r Rect) Image(origin image.Point) image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom).Add(origin)
}

// In reports whether r is non-empty and lies within a width x height image
func (r Rect) In(width, height int) bool {
	return r.Left >= 0 && r.Top >= 0 &&
		r.Left < r.Right && r.Top < r.Bottom &&
		r.Right <= width && r.Bottom <= height
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// CropConfig holds the per-batch output settings shared by every request
type CropConfig struct {
	WindowSize      int      `json:"window_size"`
	Channels        Channels `json:"channels"`
	MaxCropFraction float32  `json:"max_crop_fraction"`
}

// BlockSize is the number of bytes one output block occupies
func (c CropConfig) BlockSize() int {
	return c.WindowSize * c.WindowSize * int(c.Channels)
}

// Validate checks the batch configuration
func (c CropConfig) Validate() error {
	if c.WindowSize <= 0 {
		return NewInvalidRequestError(fmt.Sprintf("window size %d must be positive", c.WindowSize), nil)
	}
	if !c.Channels.Valid() {
		return NewInvalidRequestError(fmt.Sprintf("channels %d must be 1 or 3", uint32(c.Channels)), nil)
	}
	if !unit(c.MaxCropFraction) {
		return NewInvalidRequestError(fmt.Sprintf("max crop fraction %v outside [0,1]", c.MaxCropFraction), nil)
	}
	return nil
}

func unit(v float32) bool {
	if math.IsNaN(float64(v)) {
		return false
	}
	return v >= 0 && v <= 1
}
