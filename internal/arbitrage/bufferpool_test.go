package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringBufferPool_RotatesAndClearsLength(t *testing.T) {
	p := NewStringBufferPool(2, 16)

	b1 := p.GetStringBuffer()
	assert.Equal(t, 0, len(b1))
	assert.Equal(t, 16, cap(b1))

	b1 = append(b1, "hi"...)
	b2 := p.GetStringBuffer()
	assert.Equal(t, 0, len(b2))

	b3 := p.GetStringBuffer() // wraps back to slot used by b1
	assert.Equal(t, 0, len(b3), "a rotated-back buffer must be cleared to zero length")
}

func TestStringBufferPool_DefaultsApplied(t *testing.T) {
	p := NewStringBufferPool(0, 0)
	b := p.GetStringBuffer()
	assert.Equal(t, defaultBufferSize, cap(b))
}

func TestWithStringBuffer_ReturnsResultAndIsReusable(t *testing.T) {
	out := WithStringBuffer(func(buf []byte) []byte {
		return append(buf, "hello"...)
	})
	assert.Equal(t, "hello", string(out))

	out2 := WithStringBuffer(func(buf []byte) []byte {
		assert.Equal(t, 0, len(buf), "scratch buffer must come back cleared")
		return append(buf, "world"...)
	})
	assert.Equal(t, "world", string(out2))
}

func TestSmallVec_InlineThenSpills(t *testing.T) {
	var sv SmallVec[int]
	for i := 0; i < smallVecInline; i++ {
		sv.Append(i)
	}
	assert.Equal(t, smallVecInline, sv.Len())
	assert.Equal(t, 0, sv.At(0))

	sv.Append(999) // forces spill
	assert.Equal(t, smallVecInline+1, sv.Len())
	assert.Equal(t, 999, sv.At(smallVecInline))

	assert.Equal(t, sv.Len(), len(sv.Slice()))
}
