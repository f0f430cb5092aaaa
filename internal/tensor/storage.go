package tensor

import (
	"sync"
	"sync/atomic"
)

// Device represents the compute device a tensor lives on.
type Device int

// Supported compute devices. Only CPU kernels are implemented; the enum
// exists so cross-device misuse is detected rather than silently accepted.
const (
	CPU Device = iota
	CUDA
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// Storage is a reference-counted byte buffer shared by any number of views.
// Views only reference storage, never each other, so no cycles arise.
type Storage struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // For safe deallocation
}

// newStorage allocates a zeroed buffer with refCount = 1.
func newStorage(size int) *Storage {
	st := &Storage{
		data: make([]byte, size),
	}
	st.refCount.Store(1)
	return st
}

// addRef increments the reference count (another view now shares the buffer).
func (st *Storage) addRef() {
	st.refCount.Add(1)
}

// release decrements the reference count and drops the buffer at 0.
func (st *Storage) release() {
	if st.refCount.Add(-1) == 0 {
		st.mu.Lock()
		defer st.mu.Unlock()
		st.data = nil
	}
}

// isUnique returns true if exactly one view references this buffer.
func (st *Storage) isUnique() bool {
	return st.refCount.Load() == 1
}
