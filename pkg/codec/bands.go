package codec

import (
	"fmt"
	"image"

	"github.com/menta2k/parallel-crop/pkg/types"
)

// toNRGBA wraps an 8-bit band-interleaved pixel buffer as an image.
// 1 band is gray, 2 is gray+alpha, 3 is RGB and 4 is RGBA.
func toNRGBA(raw []byte, width, height, bands int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, types.NewDecodeError(fmt.Sprintf("invalid region %dx%d", width, height), nil)
	}
	if want := width * height * bands; len(raw) < want {
		return nil, types.NewDecodeError(fmt.Sprintf("pixel buffer holds %d bytes, want %d", len(raw), want), nil)
	}

	if bands == 1 {
		g := image.NewGray(image.Rect(0, 0, width, height))
		copy(g.Pix, raw[:width*height])
		return g, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	n := width * height
	switch bands {
	case 2:
		for i := 0; i < n; i++ {
			v := raw[i*2]
			dst.Pix[i*4], dst.Pix[i*4+1], dst.Pix[i*4+2], dst.Pix[i*4+3] = v, v, v, raw[i*2+1]
		}
	case 3:
		for i := 0; i < n; i++ {
			copy(dst.Pix[i*4:i*4+3], raw[i*3:i*3+3])
			dst.Pix[i*4+3] = 0xff
		}
	case 4:
		copy(dst.Pix, raw[:n*4])
	default:
		return nil, types.NewDecodeError(fmt.Sprintf("unsupported band count %d", bands), nil)
	}
	return dst, nil
}
