package codec

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/parallel-crop/pkg/types"
)

// Resample resizes region to a window x window square with bilinear
// interpolation and writes it row-major and channel-interleaved into dst.
// dst must be exactly window*window*channels bytes.
func Resample(region image.Image, window int, channels types.Channels, dst []byte) error {
	if window <= 0 || !channels.Valid() {
		return types.NewInvalidRequestError(fmt.Sprintf("window %d channels %d", window, channels), nil)
	}
	if want := window * window * int(channels); len(dst) != want {
		return types.NewCapacityError(fmt.Sprintf("block needs %d bytes, got %d", want, len(dst)), nil)
	}
	if region.Bounds().Empty() {
		return types.NewInternalError("empty region", nil)
	}

	resized := imaging.Resize(region, window, window, imaging.Linear)
	pack(resized, channels, dst)
	return nil
}

// pack drops alpha. Gray uses the ITU-R 601 weights of color.GrayModel on the
// unpremultiplied samples.
func pack(src *image.NRGBA, channels types.Channels, dst []byte) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	o := 0
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			r, g, b := row[x], row[x+1], row[x+2]
			if channels == types.Gray {
				dst[o] = luma(r, g, b)
				o++
				continue
			}
			dst[o], dst[o+1], dst[o+2] = r, g, b
			o += 3
		}
	}
}

func luma(r, g, b uint8) uint8 {
	r16 := uint32(r) * 0x101
	g16 := uint32(g) * 0x101
	b16 := uint32(b) * 0x101
	return uint8((19595*r16 + 38470*g16 + 7471*b16 + 1<<15) >> 24)
}
