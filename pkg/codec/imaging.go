package codec

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/parallel-crop/pkg/types"
)

// Imaging decodes with the standard decoders registered through imaging and
// x/image, falling back to libwebp for WebP files.
type Imaging struct{}

// NewImaging creates the pure Go codec
func NewImaging() *Imaging {
	return &Imaging{}
}

// Name returns the backend name
func (c *Imaging) Name() string {
	return string(BackendImaging)
}

// Open decodes the whole image. The standard decoders cannot decode a region.
func (c *Imaging) Open(ref types.ImageRef) (Source, error) {
	img, err := LoadImage(ref.Path)
	if err != nil {
		return nil, types.NewDecodeError(fmt.Sprintf("open %s", ref.Path), err)
	}
	return &imageSource{img: img}, nil
}

// LoadImage loads an image from a file path with WebP support
func LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("image: unknown format for %s: %w", path, err)
	}
	return img, nil
}

type imageSource struct {
	img image.Image
}

func (s *imageSource) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *imageSource) Extract(r types.Rect) (image.Image, error) {
	w, h := s.Size()
	if !r.In(w, h) {
		return nil, types.NewInternalError(fmt.Sprintf("rectangle %s outside %dx%d image", r, w, h), nil)
	}
	return imaging.Crop(s.img, r.Image(s.img.Bounds().Min)), nil
}

func (s *imageSource) Close() error {
	s.img = nil
	return nil
}
