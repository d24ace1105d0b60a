// Package testutil writes image fixtures for package tests.
package testutil

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Uniform returns a width x height image filled with c
func Uniform(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// Gradient returns an image whose samples depend on position and seed, so
// distinct seeds give distinct crops.
func Gradient(width, height int, seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*7) + seed,
				G: uint8(y*5) + seed*3,
				B: uint8((x+y)*3) ^ seed,
				A: 0xff,
			})
		}
	}
	return img
}

// WithSquare fills the half-open square [x0,x1)x[y0,y1) of img with c
func WithSquare(img *image.NRGBA, x0, y0, x1, y1 int, c color.Color) *image.NRGBA {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// WritePNG encodes img into dir and returns the file path
func WritePNG(t testing.TB, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	return path
}
