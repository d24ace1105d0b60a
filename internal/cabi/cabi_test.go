package cabi

import (
	"fmt"
	"io"
	"runtime"
	"testing"
	"unsafe"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/parallel-crop/internal/testutil"
	"github.com/menta2k/parallel-crop/pkg/codec"
	"github.com/menta2k/parallel-crop/pkg/engine"
	"github.com/menta2k/parallel-crop/pkg/types"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func quietRegistry() *Registry {
	return NewRegistry(quietLogger())
}

// foreignBatch lays out a batch the way a C caller would
type foreignBatch struct {
	strs  [][]byte
	ptrs  []unsafe.Pointer
	scale []float32
	x     []float32
	y     []float32
}

func newForeignBatch(paths []string, reqs []types.CropRequest) *foreignBatch {
	fb := &foreignBatch{}
	for i, p := range paths {
		b := append([]byte(p), 0)
		fb.strs = append(fb.strs, b)
		fb.ptrs = append(fb.ptrs, unsafe.Pointer(&b[0]))
		fb.scale = append(fb.scale, reqs[i].Scale)
		fb.x = append(fb.x, reqs[i].X)
		fb.y = append(fb.y, reqs[i].Y)
	}
	return fb
}

func (fb *foreignBatch) run(r *Registry, h uintptr, out []byte, cfg types.CropConfig) error {
	var outPtr unsafe.Pointer
	if len(out) > 0 {
		outPtr = unsafe.Pointer(&out[0])
	}
	err := r.ParallelCropAndResize(h,
		unsafe.Pointer(&fb.ptrs[0]), outPtr,
		unsafe.Pointer(&fb.scale[0]), unsafe.Pointer(&fb.x[0]), unsafe.Pointer(&fb.y[0]),
		uint32(cfg.WindowSize), uint32(cfg.Channels), cfg.MaxCropFraction, uintptr(len(fb.ptrs)))
	runtime.KeepAlive(fb)
	return err
}

func fixtures(t *testing.T, n int) ([]string, []types.CropRequest) {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	reqs := make([]types.CropRequest, n)
	for i := range paths {
		paths[i] = testutil.WritePNG(t, dir, fmt.Sprintf("f%d.png", i), testutil.Gradient(80+i*11, 50+i*5, uint8(i*41)))
		reqs[i] = types.CropRequest{Scale: 0.15 + float32(i)*0.05, X: float32(i) / float32(n), Y: 1 - float32(i)/float32(n)}
	}
	return paths, reqs
}

var gray32 = types.CropConfig{WindowSize: 32, Channels: types.Gray, MaxCropFraction: 0.25}

func TestHandleLifecycle(t *testing.T) {
	r := quietRegistry()

	h1, err := r.Initialize(2, false)
	require.NoError(t, err)
	h2, err := r.Initialize(0, false)
	require.NoError(t, err)
	assert.NotEqual(t, NoHandle, h1)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, r.Len())

	require.NoError(t, r.Destroy(h1))
	err = r.Destroy(h1)
	assert.True(t, types.IsKind(err, types.ErrorKindLifecycle))
	assert.Contains(t, r.LastError(NoHandle), "lifecycle")

	assert.True(t, types.IsKind(r.Destroy(12345), types.ErrorKindLifecycle))
	require.NoError(t, r.Destroy(h2))
	assert.Equal(t, 0, r.Len())
}

func TestInitializeAlternateBackend(t *testing.T) {
	r := quietRegistry()
	h, err := r.Initialize(1, true)
	if err != nil {
		assert.ErrorIs(t, err, codec.ErrBackendUnavailable)
		assert.Equal(t, NoHandle, h)
		assert.NotEmpty(t, r.LastError(NoHandle))
		return
	}
	require.NoError(t, r.Destroy(h))
}

func TestMatchesEngine(t *testing.T) {
	paths, reqs := fixtures(t, 7)

	ctx, err := engine.New(engine.Options{Workers: 3, Logger: quietLogger()})
	require.NoError(t, err)
	defer ctx.Close()
	want, err := ctx.RunBlocks(reqs, paths, gray32)
	require.NoError(t, err)

	r := quietRegistry()
	h, err := r.Initialize(4, false)
	require.NoError(t, err)
	defer r.Destroy(h)

	out := make([]byte, len(reqs)*gray32.BlockSize())
	require.NoError(t, newForeignBatch(paths, reqs).run(r, h, out, gray32))
	assert.Equal(t, want, out)
	assert.Empty(t, r.LastError(h))
}

func TestUseAfterDestroy(t *testing.T) {
	paths, reqs := fixtures(t, 1)
	r := quietRegistry()
	h, err := r.Initialize(1, false)
	require.NoError(t, err)
	require.NoError(t, r.Destroy(h))

	out := make([]byte, gray32.BlockSize())
	err = newForeignBatch(paths, reqs).run(r, h, out, gray32)
	assert.True(t, types.IsKind(err, types.ErrorKindLifecycle))
}

func TestNullPointers(t *testing.T) {
	paths, reqs := fixtures(t, 2)
	r := quietRegistry()
	h, err := r.Initialize(1, false)
	require.NoError(t, err)
	defer r.Destroy(h)

	fb := newForeignBatch(paths, reqs)
	err = fb.run(r, h, nil, gray32)
	assert.True(t, types.IsKind(err, types.ErrorKindCapacity))
	assert.Contains(t, r.LastError(h), "capacity")

	out := make([]byte, 2*gray32.BlockSize())
	err = r.ParallelCropAndResize(h, nil, unsafe.Pointer(&out[0]),
		unsafe.Pointer(&fb.scale[0]), unsafe.Pointer(&fb.x[0]), nil,
		32, 1, 0.25, 2)
	assert.True(t, types.IsKind(err, types.ErrorKindInvalidRequest))

	fb.ptrs[1] = nil
	err = fb.run(r, h, out, gray32)
	assert.True(t, types.IsKind(err, types.ErrorKindInvalidRequest))
}

func TestZeroBatchIsNoop(t *testing.T) {
	r := quietRegistry()
	h, err := r.Initialize(1, false)
	require.NoError(t, err)
	defer r.Destroy(h)

	assert.NoError(t, r.ParallelCropAndResize(h, nil, nil, nil, nil, nil, 32, 3, 0.25, 0))
}

func TestInvalidRequestSetsLastError(t *testing.T) {
	paths, reqs := fixtures(t, 2)
	reqs[1].X = 1.5

	r := quietRegistry()
	h, err := r.Initialize(2, false)
	require.NoError(t, err)
	defer r.Destroy(h)

	out := make([]byte, 2*gray32.BlockSize())
	err = newForeignBatch(paths, reqs).run(r, h, out, gray32)
	assert.True(t, types.IsKind(err, types.ErrorKindInvalidRequest))
	assert.Contains(t, r.LastError(h), "1:invalid_request")

	reqs[1].X = 0.5
	require.NoError(t, newForeignBatch(paths, reqs).run(r, h, out, gray32))
	assert.Empty(t, r.LastError(h))

	bad := gray32
	bad.Channels = 2
	err = newForeignBatch(paths, reqs).run(r, h, out, bad)
	assert.True(t, types.IsKind(err, types.ErrorKindInvalidRequest))
}

func TestCopyLastError(t *testing.T) {
	r := quietRegistry()
	_ = r.Destroy(99)
	msg := r.LastError(NoHandle)
	require.NotEmpty(t, msg)

	buf := make([]byte, 8)
	n := r.CopyLastError(NoHandle, unsafe.Pointer(&buf[0]), uintptr(len(buf)))
	assert.Equal(t, uintptr(len(msg)), n)
	assert.Equal(t, msg[:7], string(buf[:7]))
	assert.Equal(t, byte(0), buf[7])

	big := make([]byte, len(msg)+10)
	r.CopyLastError(NoHandle, unsafe.Pointer(&big[0]), uintptr(len(big)))
	assert.Equal(t, msg, string(big[:len(msg)]))
	assert.Equal(t, byte(0), big[len(msg)])

	assert.Equal(t, uintptr(len(msg)), r.CopyLastError(NoHandle, nil, 0))
}
