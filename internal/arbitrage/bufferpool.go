package arbitrage

import (
	"sync"
	"sync/atomic"
)

// defaultBufferCount and defaultBufferSize mirror the default pool
// sizing (100 buffers x 256 bytes).
const (
	defaultBufferCount = 100
	defaultBufferSize  = 256
)

// StringBufferPool is a pre-sized pool of reusable byte buffers for
// the detector/logging hot path. GetStringBuffer rotates a cursor
// and always returns an empty-but-capacity-preserving buffer, so 1,000
// sequential uses at design message length cause zero heap allocations
// after warmup.
type StringBufferPool struct {
	buffers [][]byte
	cursor  atomic.Uint64
}

// NewStringBufferPool allocates count buffers of the given byte
// capacity. Zero values fall back to the package defaults.
func NewStringBufferPool(count, size int) *StringBufferPool {
	if count <= 0 {
		count = defaultBufferCount
	}
	if size <= 0 {
		size = defaultBufferSize
	}
	p := &StringBufferPool{buffers: make([][]byte, count)}
	for i := range p.buffers {
		p.buffers[i] = make([]byte, 0, size)
	}
	return p
}

// GetStringBuffer returns the next buffer in rotation, cleared to
// zero length but with its original capacity intact.
func (p *StringBufferPool) GetStringBuffer() []byte {
	idx := p.cursor.Add(1) % uint64(len(p.buffers))
	p.buffers[idx] = p.buffers[idx][:0]
	return p.buffers[idx]
}

// threadScratch is the per-goroutine scratch buffer backing
// WithStringBuffer.
var threadScratch = sync.Pool{
	New: func() any {
		b := make([]byte, 0, defaultBufferSize)
		return &b
	},
}

// WithStringBuffer invokes f with a cleared scratch buffer that
// survives (via sync.Pool) for future reuse — the Go stand-in for a
// thread-local, since goroutines have no stable OS-thread identity to
// key a true thread-local on.
func WithStringBuffer(f func(buf []byte) []byte) []byte {
	bufPtr := threadScratch.Get().(*[]byte)
	*bufPtr = (*bufPtr)[:0]
	result := f(*bufPtr)
	*bufPtr = result[:0]
	threadScratch.Put(bufPtr)
	return result
}

// smallVecInline is the stack-inline capacity of SmallVec before it
// spills to a heap-backed slice.
const smallVecInline = 8

// SmallVec is a small-vector with inline storage for up to
// smallVecInline elements of type T, spilling to a heap slice beyond
// that. Go has no stack-allocation control for slices, so "inline"
// here means "held in the struct's own array field" rather than a
// separately heap-allocated backing array; the struct itself may
// still escape to the heap depending on how the caller uses it.
type SmallVec[T any] struct {
	inline [smallVecInline]T
	n      int
	spill  []T
}

// Append adds v to the vector.
func (s *SmallVec[T]) Append(v T) {
	if s.spill != nil {
		s.spill = append(s.spill, v)
		return
	}
	if s.n < smallVecInline {
		s.inline[s.n] = v
		s.n++
		return
	}
	s.spill = make([]T, s.n, s.n*2)
	copy(s.spill, s.inline[:s.n])
	s.spill = append(s.spill, v)
}

// Len returns the number of elements currently stored.
func (s *SmallVec[T]) Len() int {
	if s.spill != nil {
		return len(s.spill)
	}
	return s.n
}

// At returns the element at index i.
func (s *SmallVec[T]) At(i int) T {
	if s.spill != nil {
		return s.spill[i]
	}
	return s.inline[i]
}

// Slice materializes the vector's contents as a plain slice.
func (s *SmallVec[T]) Slice() []T {
	if s.spill != nil {
		return s.spill
	}
	return s.inline[:s.n]
}
