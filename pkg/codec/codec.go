// Package codec decodes source images and extracts pixel regions from them.
//
// Two interchangeable variants exist. The imaging codec is pure Go and always
// available. The vips codec decodes through libvips and is compiled in only
// with the "vips" build tag. Both hand the extracted region to the shared
// Resample step, so output bytes depend only on the decoded pixels.
package codec

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/parallel-crop/pkg/types"
)

// ErrBackendUnavailable is returned when a backend was not compiled in
var ErrBackendUnavailable = errors.New("codec backend unavailable")

// Backend selects a codec variant
type Backend string

const (
	// BackendImaging is the pure Go primary codec
	BackendImaging Backend = "imaging"
	// BackendVips is the libvips alternate codec
	BackendVips Backend = "vips"
)

// ParseBackend maps a configuration string to a Backend
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "imaging", "primary", "go":
		return BackendImaging, nil
	case "vips", "libvips", "alternate":
		return BackendVips, nil
	default:
		return "", fmt.Errorf("unknown codec backend %q (use imaging or vips)", s)
	}
}

// Codec opens source images
type Codec interface {
	Name() string
	Open(ref types.ImageRef) (Source, error)
}

// Source is an opened image. A Source is used by one goroutine at a time.
type Source interface {
	// Size returns the pixel dimensions of the image
	Size() (width, height int)
	// Extract returns exactly the pixels inside r
	Extract(r types.Rect) (image.Image, error)
	Close() error
}

// New returns the codec for the given backend
func New(b Backend) (Codec, error) {
	switch b {
	case BackendImaging, "":
		return NewImaging(), nil
	case BackendVips:
		return newVips()
	default:
		return nil, fmt.Errorf("unknown codec backend %q", b)
	}
}
