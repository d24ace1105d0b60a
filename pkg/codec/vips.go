//go:build vips

package codec

import (
	"fmt"
	"image"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/menta2k/parallel-crop/pkg/types"
)

var vipsOnce sync.Once

// startVips starts libvips once per process. It is never shut down: libvips
// cannot be restarted.
func startVips() {
	vipsOnce.Do(func() {
		vips.LoggingSettings(nil, vips.LogLevelCritical)
		// Parallelism comes from the engine's worker pool.
		vips.Startup(&vips.Config{ConcurrencyLevel: 1})
	})
}

// Vips decodes through libvips. Headers are read on open and pixels are only
// decoded for the extracted area when the format allows it.
type Vips struct{}

func newVips() (Codec, error) {
	startVips()
	return &Vips{}, nil
}

// Name returns the backend name
func (c *Vips) Name() string {
	return string(BackendVips)
}

// Open reads the image header
func (c *Vips) Open(ref types.ImageRef) (Source, error) {
	img, err := vips.NewImageFromFile(ref.Path)
	if err != nil {
		return nil, types.NewDecodeError(fmt.Sprintf("open %s", ref.Path), err)
	}
	return &vipsSource{img: img}, nil
}

type vipsSource struct {
	img *vips.ImageRef
}

func (s *vipsSource) Size() (int, int) {
	return s.img.Width(), s.img.Height()
}

func (s *vipsSource) Extract(r types.Rect) (image.Image, error) {
	w, h := s.Size()
	if !r.In(w, h) {
		return nil, types.NewInternalError(fmt.Sprintf("rectangle %s outside %dx%d image", r, w, h), nil)
	}

	region, err := s.img.Copy()
	if err != nil {
		return nil, types.NewDecodeError("copy image", err)
	}
	defer region.Close()

	if err := region.ExtractArea(r.Left, r.Top, r.Dx(), r.Dy()); err != nil {
		return nil, types.NewDecodeError(fmt.Sprintf("extract %s", r), err)
	}
	switch region.Interpretation() {
	case vips.InterpretationSRGB, vips.InterpretationBW:
	default:
		if err := region.ToColorSpace(vips.InterpretationSRGB); err != nil {
			return nil, types.NewDecodeError("convert to sRGB", err)
		}
	}
	if region.BandFormat() != vips.BandFormatUchar {
		if err := region.Cast(vips.BandFormatUchar); err != nil {
			return nil, types.NewDecodeError("cast to 8-bit", err)
		}
	}

	raw, err := region.ToBytes()
	if err != nil {
		return nil, types.NewDecodeError("read pixels", err)
	}
	return toNRGBA(raw, region.Width(), region.Height(), region.Bands())
}

func (s *vipsSource) Close() error {
	s.img.Close()
	return nil
}
