package cropper

import (
	"math"

	"github.com/menta2k/parallel-crop/pkg/types"
)

// Resolve maps a normalized request onto a width x height image.
//
// The request scale is capped at maxCropFraction, each side spans
// floor(dim*fraction)-1 pixels (at least one), and the anchor is pulled back
// so the rectangle never leaves the image. The anchor is truncated, never
// rounded. All arithmetic stays in float32 so results are reproducible across
// platforms and backends. The request must already be valid.
func Resolve(req types.CropRequest, width, height int, maxCropFraction float32) types.Rect {
	f := req.Scale
	if maxCropFraction < f {
		f = maxCropFraction
	}

	left, spanW := axis(req.X, width, f)
	top, spanH := axis(req.Y, height, f)
	return types.Rect{
		Left:   left,
		Top:    top,
		Right:  left + spanW,
		Bottom: top + spanH,
	}
}

// axis resolves one dimension and returns the start offset and span
func axis(coord float32, dim int, fraction float32) (int, int) {
	pos := int(float32(coord * float32(dim)))

	span := int(math.Floor(float64(float32(float32(dim)*fraction)))) - 1
	if span < 1 {
		span = 1
	}

	if maxStart := dim - span; pos > maxStart {
		pos = maxStart
	}
	if pos < 0 {
		pos = 0
	}
	return pos, span
}
