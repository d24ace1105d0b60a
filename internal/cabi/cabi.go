// Package cabi implements the C calling convention of the shared library in
// plain Go. Foreign callers see execution contexts as opaque non-zero tokens
// and pass flattened arrays. Nothing here imports "C", so the conversions are
// testable without cgo.
package cabi

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/parallel-crop/pkg/codec"
	"github.com/menta2k/parallel-crop/pkg/engine"
	"github.com/menta2k/parallel-crop/pkg/types"
)

// NoHandle is the token returned when initialization fails. Errors that cannot
// be attributed to a live context are reported under it.
const NoHandle uintptr = 0

// maxPathLen bounds the scan for a path's NUL terminator
const maxPathLen = 1 << 16

type session struct {
	ctx     *engine.Context
	lastErr string
}

// Registry maps tokens to live execution contexts
type Registry struct {
	mu       sync.Mutex
	next     uintptr
	sessions map[uintptr]*session
	orphan   string
	log      *logrus.Logger
}

// NewRegistry creates an empty registry that logs through l
func NewRegistry(l *logrus.Logger) *Registry {
	return &Registry{
		next:     1,
		sessions: make(map[uintptr]*session),
		log:      l,
	}
}

// Initialize creates an execution context and returns its token.
// threads == 0 uses one worker per logical CPU.
func (r *Registry) Initialize(threads uint64, useAlternate bool) (uintptr, error) {
	if threads > math.MaxInt32 {
		err := types.NewInvalidRequestError(fmt.Sprintf("thread count %d too large", threads), nil)
		r.setOrphan(err)
		return NoHandle, err
	}

	backend := codec.BackendImaging
	if useAlternate {
		backend = codec.BackendVips
	}
	ctx, err := engine.New(engine.Options{Workers: int(threads), Backend: backend, Logger: r.log})
	if err != nil {
		r.log.WithError(err).WithField("backend", backend).Error("initialize failed")
		r.setOrphan(err)
		return NoHandle, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.next
	r.next++
	r.sessions[h] = &session{ctx: ctx}
	r.orphan = ""
	return h, nil
}

// Destroy closes the context behind h and invalidates the token
func (r *Registry) Destroy(h uintptr) error {
	r.mu.Lock()
	s, ok := r.sessions[h]
	delete(r.sessions, h)
	r.mu.Unlock()

	if !ok {
		err := types.NewLifecycleError(fmt.Sprintf("destroy of unknown or destroyed context %d", h), nil)
		r.log.WithError(err).Warn("destroy rejected")
		r.setOrphan(err)
		return err
	}
	return s.ctx.Close()
}

// Len returns the number of live contexts
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ParallelCropAndResize runs one batch described by foreign memory.
//
// paths points at n pointers to NUL-terminated strings; scale, x and y each
// point at n float32 values; out points at n*window*window*channels writable
// bytes owned by the caller.
func (r *Registry) ParallelCropAndResize(h uintptr, paths, out, scale, x, y unsafe.Pointer,
	window, channels uint32, maxCropFraction float32, n uintptr) error {

	r.mu.Lock()
	s, ok := r.sessions[h]
	r.mu.Unlock()
	if !ok {
		err := types.NewLifecycleError(fmt.Sprintf("unknown or destroyed context %d", h), nil)
		r.setOrphan(err)
		return err
	}

	err := r.run(s, paths, out, scale, x, y, window, channels, maxCropFraction, n)
	r.mu.Lock()
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	r.mu.Unlock()
	return err
}

func (r *Registry) run(s *session, paths, out, scale, x, y unsafe.Pointer,
	window, channels uint32, maxCropFraction float32, n uintptr) error {

	cfg := types.CropConfig{
		WindowSize:      int(window),
		Channels:        types.Channels(channels),
		MaxCropFraction: maxCropFraction,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if out == nil {
		return types.NewCapacityError("output buffer is null", nil)
	}
	if paths == nil || scale == nil || x == nil || y == nil {
		return types.NewInvalidRequestError("null input array", nil)
	}
	if n > uintptr(math.MaxInt32) || uint64(n)*uint64(cfg.BlockSize()) > uint64(math.MaxInt) {
		return types.NewCapacityError(fmt.Sprintf("batch of %d blocks does not fit in memory", n), nil)
	}

	names, err := readPaths(paths, int(n))
	if err != nil {
		return err
	}
	requests := readRequests(scale, x, y, int(n))
	dst := unsafe.Slice((*byte)(out), int(n)*cfg.BlockSize())

	return s.ctx.Run(requests, names, cfg, dst)
}

// LastError returns the message of the last failed call on h, or "" after a
// success. h == NoHandle or an unknown token reports errors not tied to a
// live context.
func (r *Registry) LastError(h uintptr) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[h]; ok {
		return s.lastErr
	}
	return r.orphan
}

// CopyLastError writes LastError(h) into the caller buffer buf of bufLen bytes,
// truncating and always NUL-terminating when bufLen > 0. It returns the full
// message length.
func (r *Registry) CopyLastError(h uintptr, buf unsafe.Pointer, bufLen uintptr) uintptr {
	msg := r.LastError(h)
	if buf != nil && bufLen > 0 {
		dst := unsafe.Slice((*byte)(buf), bufLen)
		k := copy(dst[:bufLen-1], msg)
		dst[k] = 0
	}
	return uintptr(len(msg))
}

func (r *Registry) setOrphan(err error) {
	r.mu.Lock()
	r.orphan = err.Error()
	r.mu.Unlock()
}

func readPaths(p unsafe.Pointer, n int) ([]string, error) {
	ptrs := unsafe.Slice((*unsafe.Pointer)(p), n)
	out := make([]string, n)
	for i, cp := range ptrs {
		if cp == nil {
			return nil, types.NewInvalidRequestError("null path", nil).AtIndex(i)
		}
		s, ok := goString(cp)
		if !ok {
			return nil, types.NewInvalidRequestError("path is not NUL-terminated", nil).AtIndex(i)
		}
		out[i] = s
	}
	return out, nil
}

func goString(p unsafe.Pointer) (string, bool) {
	for i := 0; i < maxPathLen; i++ {
		if *(*byte)(unsafe.Add(p, i)) == 0 {
			return string(unsafe.Slice((*byte)(p), i)), true
		}
	}
	return "", false
}

func readRequests(scale, x, y unsafe.Pointer, n int) []types.CropRequest {
	ss := unsafe.Slice((*float32)(scale), n)
	xs := unsafe.Slice((*float32)(x), n)
	ys := unsafe.Slice((*float32)(y), n)
	reqs := make([]types.CropRequest, n)
	for i := range reqs {
		reqs[i] = types.CropRequest{Scale: ss[i], X: xs[i], Y: ys[i]}
	}
	return reqs
}
