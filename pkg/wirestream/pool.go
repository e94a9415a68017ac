package wirestream

import (
	"math/bits"
	"sync"
)

// Size-tiered buffer pools for the reader's I/O window and the writer's
// output buffer. A buffer handed out by GetBuffer is exclusively owned by
// its consumer until ReleaseBuffer returns it; the pool is a checkout/return
// pool, never a cache of shared data.
//
// Buffers are pooled in size classes: 1024, 4096, 16384, 65536 bytes.
var bufferPools = [4]sync.Pool{
	{New: func() any { return make([]byte, 1024) }},
	{New: func() any { return make([]byte, 4096) }},
	{New: func() any { return make([]byte, 16384) }},
	{New: func() any { return make([]byte, 65536) }},
}

// bufferSizes maps pool index to capacity.
var bufferSizes = [4]int{1024, 4096, 16384, 65536}

// defaultBufferSize is the initial window size for a new reader.
const defaultBufferSize = 1024

// poolIndex returns the pool index for a given size, or -1 if the size is
// too large for pooling.
func poolIndex(size int) int {
	for i, s := range bufferSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// GetBuffer gets a full-length buffer of at least minSize bytes from the
// appropriate size-tiered pool. Buffers larger than the biggest class are
// allocated directly and left to the GC on release.
func GetBuffer(minSize int) []byte {
	idx := poolIndex(minSize)
	if idx < 0 {
		// Round up to the next power of 2 to keep growth amortized.
		return make([]byte, 1<<bits.Len(uint(minSize-1)))
	}
	return bufferPools[idx].Get().([]byte)
}

// ReleaseBuffer returns a buffer to its size-tiered pool.
// The caller must not retain any reference to the buffer afterwards.
func ReleaseBuffer(buf []byte) {
	c := cap(buf)
	for i, s := range bufferSizes {
		if c == s {
			bufferPools[i].Put(buf[:c])
			return
		}
	}
	// Off-class buffers are not pooled.
}

// ResizeAndFlushLeft returns a buffer of at least minSize bytes holding
// buf[offset:offset+count] at its start, releasing buf if a new buffer was
// taken. When buf is already large enough the data is compacted in place.
func ResizeAndFlushLeft(buf []byte, minSize, offset, count int) []byte {
	if minSize <= len(buf) {
		if offset > 0 {
			copy(buf, buf[offset:offset+count])
		}
		return buf
	}
	grown := GetBuffer(minSize)
	copy(grown, buf[offset:offset+count])
	ReleaseBuffer(buf)
	return grown
}
