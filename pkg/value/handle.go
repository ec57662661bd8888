package value

import (
	"io"
	"sync/atomic"
)

// Handle is a reference counted box around a host object.
// A new handle has no owners; the first Retain takes ownership and the Release
// that brings the count back to zero frees it.
type Handle struct {
	obj    any
	refs   atomic.Int32
	freed  atomic.Bool
	onFree func(any)
}

// NewHandle boxes obj.
func NewHandle(obj any) *Handle {
	return &Handle{obj: obj}
}

// OnFree registers a callback run when the last owner releases the handle.
func (h *Handle) OnFree(fn func(any)) {
	h.onFree = fn
}

// Object returns the boxed object, or nil once freed.
func (h *Handle) Object() any {
	if h == nil || h.freed.Load() {
		return nil
	}
	return h.obj
}

// Refs returns the current owner count.
func (h *Handle) Refs() int {
	return int(h.refs.Load())
}

// Freed reports whether the handle has been released by its last owner.
func (h *Handle) Freed() bool {
	return h.freed.Load()
}

// Retain adds an owner.
func (h *Handle) Retain() {
	h.refs.Add(1)
}

// Release removes an owner, freeing the handle at zero.
// Closers are closed on free.
func (h *Handle) Release() {
	if h.refs.Add(-1) > 0 {
		return
	}
	if !h.freed.CompareAndSwap(false, true) {
		return
	}
	obj := h.obj
	h.obj = nil
	if c, ok := obj.(io.Closer); ok {
		_ = c.Close()
	}
	if h.onFree != nil {
		h.onFree(obj)
	}
}
