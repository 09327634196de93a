package pool

import (
	"sync"
)

const (
	// SmallBufferSize defines the size for small buffers (4KB)
	SmallBufferSize = 4 * 1024
	// MediumBufferSize defines the size for medium buffers (64KB)
	MediumBufferSize = 64 * 1024
	// LargeBufferSize defines the size for large buffers (1MB)
	LargeBufferSize = 1024 * 1024
)

// BufferPool manages reusable buffers in three size tiers to reduce
// allocations on hot copy paths.
type BufferPool struct {
	small  *sync.Pool
	medium *sync.Pool
	large  *sync.Pool
}

// NewBufferPool creates a new buffer pool with the default tier sizes.
func NewBufferPool() *BufferPool {
	newTier := func(size int) *sync.Pool {
		return &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		}
	}
	return &BufferPool{
		small:  newTier(SmallBufferSize),
		medium: newTier(MediumBufferSize),
		large:  newTier(LargeBufferSize),
	}
}

// Get returns a full-length buffer of at least the requested size.
// Requests beyond LargeBufferSize are satisfied with a fresh allocation.
// The caller returns the buffer with Put when done.
func (bp *BufferPool) Get(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		return (*bp.small.Get().(*[]byte))[:SmallBufferSize]
	case size <= MediumBufferSize:
		return (*bp.medium.Get().(*[]byte))[:MediumBufferSize]
	case size <= LargeBufferSize:
		return (*bp.large.Get().(*[]byte))[:LargeBufferSize]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer to the tier matching its capacity. Buffers that
// came from a fresh allocation are dropped for the GC to collect.
func (bp *BufferPool) Put(buf []byte) {
	buf = buf[:cap(buf)]
	switch cap(buf) {
	case SmallBufferSize:
		bp.small.Put(&buf)
	case MediumBufferSize:
		bp.medium.Put(&buf)
	case LargeBufferSize:
		bp.large.Put(&buf)
	}
}

// SizedPool recycles fixed-size buffers, sized once at construction.
// It backs multipart part staging where every buffer has the part size.
type SizedPool struct {
	size int
	pool sync.Pool
}

// NewSizedPool creates a pool handing out buffers of exactly size bytes.
func NewSizedPool(size int) *SizedPool {
	p := &SizedPool{size: size}
	p.pool.New = func() interface{} {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Get returns a full-length buffer of the pool's size.
func (p *SizedPool) Get() []byte {
	return (*p.pool.Get().(*[]byte))[:p.size]
}

// Put returns a buffer to the pool. Buffers of a different capacity are
// dropped.
func (p *SizedPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:cap(buf)]
	p.pool.Put(&buf)
}

// Global buffer pool instance shared across the module.
var globalBufferPool = NewBufferPool()

// Get returns a buffer of at least size bytes from the global pool.
func Get(size int) []byte {
	return globalBufferPool.Get(size)
}

// Put returns a buffer to the global pool.
func Put(buf []byte) {
	globalBufferPool.Put(buf)
}
