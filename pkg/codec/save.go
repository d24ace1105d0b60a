package codec

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/menta2k/parallel-crop/pkg/types"
)

// BlockImage wraps one output block as an image for inspection or export
func BlockImage(block []byte, window int, channels types.Channels) (image.Image, error) {
	if want := window * window * int(channels); window <= 0 || len(block) != want {
		return nil, fmt.Errorf("block of %d bytes does not match %dx%dx%d", len(block), window, window, channels)
	}

	switch channels {
	case types.Gray:
		g := image.NewGray(image.Rect(0, 0, window, window))
		copy(g.Pix, block)
		return g, nil
	case types.RGB:
		return toNRGBA(block, window, window, 3)
	default:
		return nil, fmt.Errorf("unsupported channels %d", channels)
	}
}

// SaveImage saves an image to a file with the specified format and quality
func SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		if err := webp.Encode(f, img, opts); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}
