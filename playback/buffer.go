// Package playback buffers decoded audio between the network receive path
// and the real-time render callback, and implements barge-in.
package playback

import "sync"

// Buffer is an append-at-tail / consume-at-head queue of normalized float
// samples. Single producer (the receive path) and single consumer (the
// render callback) share one mutex; every critical section is O(1) per
// chunk so the render path keeps its real-time deadline.
type Buffer struct {
	mu     sync.Mutex
	chunks [][]float32
	off    int // consumed samples within chunks[0]
	length int

	appended uint64
	consumed uint64
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append enqueues samples at the tail. The slice is retained; callers must
// not reuse it.
func (b *Buffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	b.chunks = append(b.chunks, samples)
	b.length += len(samples)
	b.appended += uint64(len(samples))
	b.mu.Unlock()
}

// Read fills dst from the head and zero-fills whatever is left, returning
// the number of real samples written. It never blocks: when the buffer is
// empty the whole frame is silence.
func (b *Buffer) Read(dst []float32) int {
	b.mu.Lock()
	n := 0
	for n < len(dst) && len(b.chunks) > 0 {
		head := b.chunks[0][b.off:]
		c := copy(dst[n:], head)
		n += c
		b.off += c
		if b.off == len(b.chunks[0]) {
			b.chunks[0] = nil
			b.chunks = b.chunks[1:]
			b.off = 0
		}
	}
	b.length -= n
	b.consumed += uint64(n)
	b.mu.Unlock()

	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return n
}

// Flush discards all queued samples and returns how many were dropped.
// Sequenced under the same lock as Append and Read, so an append racing a
// barge-in is either fully discarded (it won the lock before the flush) or
// fully retained (it came after).
func (b *Buffer) Flush() int {
	b.mu.Lock()
	dropped := b.length
	b.chunks = nil
	b.off = 0
	b.length = 0
	b.consumed += uint64(dropped)
	b.mu.Unlock()
	return dropped
}

// Len returns the number of buffered samples. Invariant: appended minus
// consumed, never negative.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Stats returns lifetime appended/consumed sample counts.
func (b *Buffer) Stats() (appended, consumed uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appended, b.consumed
}
