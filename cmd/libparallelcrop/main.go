// Command libparallelcrop builds the shared library exposing the crop engine
// to foreign callers:
//
//	go build -buildmode=c-shared -o libparallelcrop.so ./cmd/libparallelcrop
//
// Build with -tags vips to make the alternate libvips backend available.
// The output buffer passed to parallel_crop_and_resize is allocated and owned
// by the caller; the library never returns memory it allocated.
package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"os"
	"unsafe"

	"github.com/menta2k/parallel-crop/internal/cabi"
	"github.com/menta2k/parallel-crop/internal/config"
	"github.com/menta2k/parallel-crop/internal/logger"
)

var registry *cabi.Registry

func init() {
	cfg, err := config.FromEnv()
	if err != nil {
		cfg = config.Default()
	}
	registry = cabi.NewRegistry(logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr))
}

//export initialize
func initialize(threadCount C.uint64_t, useAlternateBackend C.bool) C.uintptr_t {
	h, _ := registry.Initialize(uint64(threadCount), bool(useAlternateBackend))
	return C.uintptr_t(h)
}

//export destroy
func destroy(ctx C.uintptr_t) {
	_ = registry.Destroy(uintptr(ctx))
}

//export parallel_crop_and_resize
func parallel_crop_and_resize(ctx C.uintptr_t, paths **C.char, out *C.uint8_t,
	scale, x, y *C.float, windowSize, channels C.uint32_t, maxCropFraction C.float, batchSize C.size_t) {
	_ = registry.ParallelCropAndResize(uintptr(ctx),
		unsafe.Pointer(paths), unsafe.Pointer(out),
		unsafe.Pointer(scale), unsafe.Pointer(x), unsafe.Pointer(y),
		uint32(windowSize), uint32(channels), float32(maxCropFraction), uintptr(batchSize))
}

//export crop_last_error
func crop_last_error(ctx C.uintptr_t, buf *C.char, bufLen C.size_t) C.size_t {
	return C.size_t(registry.CopyLastError(uintptr(ctx), unsafe.Pointer(buf), uintptr(bufLen)))
}

func main() {}
